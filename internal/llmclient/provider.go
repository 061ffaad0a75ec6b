package llmclient

import (
	"context"
	"errors"
	"fmt"
)

// Provider is implemented once per model backend (Anthropic, OpenAI,
// Bedrock). Caller selects which Provider handles a request by matching the
// resolved model name against the provider's Supports predicate.
type Provider interface {
	// Name identifies the provider for tracing and error messages (for
	// example "anthropic").
	Name() string
	// Supports reports whether this provider can serve the given model name.
	Supports(model string) bool
	// Complete issues a single completion call. Implementations translate
	// their native SDK errors into *providerError via newProviderError so
	// Caller.Complete can classify failures uniformly.
	Complete(ctx context.Context, req Request) (string, error)
}

// Request is the normalized request shape every Provider implementation
// accepts, independent of the underlying SDK's request type.
type Request struct {
	Prompt       string
	SystemPrompt string
	Model        string
	Credential   string
	Params       map[string]any
}

// providerError is the structured failure a Provider returns. It is
// intentionally unexported: callers outside this package only ever observe
// an *LLMCallError, which is built by classifying a providerError.
type providerError struct {
	provider string
	kind     ErrorKind
	message  string
	cause    error
}

// newProviderError constructs a providerError. Provider adapters call this
// to report failures in a form Caller.Complete can classify without
// inspecting SDK-specific error types.
func newProviderError(provider string, kind ErrorKind, message string, cause error) error {
	return &providerError{provider: provider, kind: kind, message: message, cause: cause}
}

func (e *providerError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.provider, e.kind, e.message)
}

func (e *providerError) Unwrap() error { return e.cause }

func asProviderError(err error) (*providerError, bool) {
	var pe *providerError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
