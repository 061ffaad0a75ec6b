package llmclient

import "fmt"

// ErrorKind classifies an LLM call failure into the closed set spec §4.3
// requires callers to be able to branch on without inspecting a raw
// transport error.
type ErrorKind string

// ErrorKind values.
const (
	ErrorKindMissingCredential ErrorKind = "missing_credential"
	ErrorKindRateLimit         ErrorKind = "rate_limit"
	ErrorKindQuotaExceeded     ErrorKind = "quota_exceeded"
	ErrorKindAuth              ErrorKind = "auth_error"
	ErrorKindModelNotFound     ErrorKind = "model_not_found"
	ErrorKindNetwork           ErrorKind = "network_error"
	ErrorKindServer            ErrorKind = "server_error"
	ErrorKindUnknown           ErrorKind = "unknown"
)

// LLMCallError is the only error type Complete ever returns. Callers never
// see a raw provider/transport exception (spec §4.3).
type LLMCallError struct {
	Kind            ErrorKind
	RetryWithFallback bool
	Message         string
	cause           error
}

// NewLLMCallError constructs an LLMCallError.
func NewLLMCallError(kind ErrorKind, retryWithFallback bool, message string, cause error) *LLMCallError {
	return &LLMCallError{Kind: kind, RetryWithFallback: retryWithFallback, Message: message, cause: cause}
}

func (e *LLMCallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm call failed (%s): %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("llm call failed (%s)", e.Kind)
}

// Unwrap exposes the underlying transport error, if any, for errors.Is/As.
func (e *LLMCallError) Unwrap() error { return e.cause }

// classify maps a transport error from a provider adapter into the closed
// ErrorKind set. It reads the kind a Provider recorded via newProviderError;
// any other error (one no Provider classified) is reported as
// ErrorKindNetwork. The message text is not inspected.
func classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	if pe, ok := asProviderError(err); ok {
		return pe.kind
	}
	return ErrorKindNetwork
}
