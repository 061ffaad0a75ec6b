// Package llmclient implements the single entry point to the external model
// providers. It is the only place in the module that issues a model call;
// every stage and the intent classifier route their completions through
// Caller so retries, fallback, and error classification happen exactly once.
package llmclient

import (
	"context"
	"strings"
	"time"

	"goa.design/estimo/internal/modelselect"
	"goa.design/estimo/internal/telemetry"
)

// Caller is the LLM Caller contract from spec §4.3.
type Caller interface {
	// Complete issues a prompt against model using credential, retrying with
	// escalating fallbacks (resolved via the Selector for stageName) until
	// maxRetries is exhausted. Returns the trimmed response text or an
	// *LLMCallError.
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

// CompleteRequest is the input to Complete.
type CompleteRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Credential   string
	// StageName, when non-empty, lets Complete consult the Model Selector
	// for a fallback model on failure. Empty means no fallback is attempted.
	StageName  string
	MaxRetries int
	Params     map[string]any
}

// caller is the default Caller implementation: it dispatches to the first
// registered Provider whose Supports(model) is true, and on failure asks a
// modelselect.Selector for the next fallback.
type caller struct {
	providers []Provider
	selector  *modelselect.Selector
	logger    telemetry.Logger
}

// New constructs a Caller that dispatches across providers in registration
// order and falls back via selector.
func New(selector *modelselect.Selector, logger telemetry.Logger, providers ...Provider) Caller {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &caller{providers: providers, selector: selector, logger: logger}
}

// Complete implements spec §4.3's retry-with-fallback loop.
func (c *caller) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	if strings.TrimSpace(req.Credential) == "" {
		return "", NewLLMCallError(ErrorKindMissingCredential, false, "no credential supplied for model "+req.Model, nil)
	}

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	model := req.Model
	credential := req.Credential
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		provider := c.pick(model)
		if provider == nil {
			return "", NewLLMCallError(ErrorKindModelNotFound, false, "no provider registered for model "+model, nil)
		}

		text, err := provider.Complete(ctx, Request{
			Prompt:       req.Prompt,
			SystemPrompt: req.SystemPrompt,
			Model:        model,
			Credential:   credential,
			Params:       req.Params,
		})
		if err == nil {
			return strings.TrimSpace(text), nil
		}

		kind := classify(err)
		lastErr = err
		c.logger.Warn(ctx, "llm call failed", "model", model, "provider", provider.Name(), "kind", string(kind), "attempt", attempt+1)

		if req.StageName == "" || c.selector == nil {
			break
		}
		fallback, ok := c.selector.Fallback(req.StageName, model)
		if !ok {
			break
		}
		if fallback.Credential == "" {
			c.logger.Warn(ctx, "fallback model has no credential, stopping retry loop", "model", fallback.Model)
			break
		}
		model, credential = fallback.Model, fallback.Credential
	}

	return "", NewLLMCallError(classify(lastErr), false, errMessage(lastErr), lastErr)
}

func (c *caller) pick(model string) Provider {
	for _, p := range c.providers {
		if p.Supports(model) {
			return p
		}
	}
	return nil
}

func errMessage(err error) string {
	if err == nil {
		return "exhausted retries"
	}
	return err.Error()
}

// WithTimeout derives a context bounded by d, for callers that want to cap a
// single Complete call independent of the stage deadline enforced by the
// Manager.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
