// Package modelselect picks a model and resolves a credential for a named
// stage, with ordered fallback when the selected model fails. It holds a
// static configuration only; Select and Fallback never mutate the Catalog.
package modelselect

import (
	"os"
	"strings"
)

// Selection is the result of Select or Fallback: a model name, the resolved
// credential value (empty if none of the configured env vars were set), and
// which env var produced it (empty when Credential is empty).
type Selection struct {
	Model            string
	Credential       string
	CredentialSource string
}

// Selector resolves models and credentials against a static Catalog.
type Selector struct {
	catalog Catalog
}

// New constructs a Selector over catalog.
func New(catalog Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Select implements spec §4.2: look up stage's first model option and
// resolve a credential for it. Unknown stages fall back to the catalog's
// global default entry.
func (s *Selector) Select(stageName string) Selection {
	options := s.catalog.Stages[stageName]
	if len(options) == 0 {
		return s.resolve(s.catalog.Default)
	}
	return s.resolve(options[0])
}

// Fallback implements spec §4.2's fallback contract: find failedModel in the
// stage's option list and return the next entry, resolving its credential.
// Returns ok=false if failedModel is the last entry or isn't found.
func (s *Selector) Fallback(stageName, failedModel string) (Selection, bool) {
	options := s.catalog.Stages[stageName]
	for i, opt := range options {
		if opt.Model != failedModel {
			continue
		}
		if i+1 >= len(options) {
			return Selection{}, false
		}
		return s.resolve(options[i+1]), true
	}
	return Selection{}, false
}

func (s *Selector) resolve(opt ModelOption) Selection {
	for _, envVar := range opt.CredentialEnvVars {
		if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
			return Selection{Model: opt.Model, Credential: v, CredentialSource: envVar}
		}
	}
	return Selection{Model: opt.Model}
}
