package modelselect

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ModelOption is one entry in a stage's ordered model list: a model name
// paired with the ordered list of environment variables to try for a
// credential.
type ModelOption struct {
	Model             string   `yaml:"model"`
	CredentialEnvVars []string `yaml:"credential_env_vars"`
}

// Catalog maps a stage name to its ordered list of model options, plus a
// global default used for unknown stages (spec §4.2 step 3).
type Catalog struct {
	Stages  map[string][]ModelOption `yaml:"stages"`
	Default ModelOption              `yaml:"default"`
}

// DefaultCatalog mirrors the original AGENT_LLM_CONFIG in
// original_source/backend/services/llm_selector.py: one preferred model per
// stage, with an explicit fallback entry where the original declared one.
func DefaultCatalog() Catalog {
	return Catalog{
		Stages: map[string][]ModelOption{
			"parse": {
				{Model: "claude-3-5-sonnet-20241022", CredentialEnvVars: []string{"ESTIMO_ANTHROPIC_KEY_PRIMARY", "ESTIMO_ANTHROPIC_KEY_FALLBACK"}},
				{Model: "gpt-4.1", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY"}},
			},
			"classify_trades": {
				{Model: "gpt-4.1-mini", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_MINI", "ESTIMO_OPENAI_KEY"}},
				{Model: "claude-3-5-haiku-20241022", CredentialEnvVars: []string{"ESTIMO_ANTHROPIC_KEY_PRIMARY"}},
			},
			"extract_scope": {
				{Model: "gpt-4.1-mini", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_MINI", "ESTIMO_OPENAI_KEY"}},
			},
			"takeoff": {
				{Model: "gpt-4.1-mini", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_MINI", "ESTIMO_OPENAI_KEY"}},
			},
			"estimate": {
				{Model: "o3", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_O3", "ESTIMO_OPENAI_KEY"}},
				{Model: "gpt-4o", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY"}},
			},
			"qa": {
				{Model: "o4-mini", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_O4MINI", "ESTIMO_OPENAI_KEY"}},
				{Model: "gpt-4o", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY"}},
			},
			"export": {
				{Model: "gpt-4o", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY"}},
			},
			"smartsheet_integration": {
				{Model: "gpt-4o", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY"}},
			},
			"manager": {
				{Model: "o4-mini", CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_O4MINI", "ESTIMO_OPENAI_KEY"}},
			},
		},
		Default: ModelOption{
			Model:             "o4-mini",
			CredentialEnvVars: []string{"ESTIMO_OPENAI_KEY_O4MINI", "ESTIMO_OPENAI_KEY"},
		},
	}
}

// LoadCatalog reads a Catalog from a YAML file at path. Callers typically
// fall back to DefaultCatalog() when path is empty or loading fails.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, err
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
