package llmclient

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicProvider dispatches completions for model names matching
// "claude-*" to the Anthropic Messages API.
type anthropicProvider struct{}

// NewAnthropicProvider constructs the Provider backing models named
// "claude-*".
func NewAnthropicProvider() Provider { return anthropicProvider{} }

func (anthropicProvider) Name() string { return "anthropic" }

func (anthropicProvider) Supports(model string) bool {
	return strings.HasPrefix(model, "claude-")
}

func (anthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	client := anthropic.NewClient(option.WithAPIKey(req.Credential))

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: 4096,
		Messages:  messages,
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", newProviderError("anthropic", classifyAnthropicError(err), err.Error(), err)
	}
	if len(msg.Content) == 0 {
		return "", newProviderError("anthropic", ErrorKindUnknown, "empty response", nil)
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// classifyAnthropicError maps the SDK's error into our closed ErrorKind set.
// The SDK surfaces an *anthropic.Error carrying an HTTP status; we classify
// on that status the same way the spec's categorization implies for any
// HTTP-backed provider.
func classifyAnthropicError(err error) ErrorKind {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return ErrorKindNetwork
	}
	switch apiErr.StatusCode {
	case 401, 403:
		return ErrorKindAuth
	case 404:
		return ErrorKindModelNotFound
	case 429:
		return ErrorKindRateLimit
	default:
		if apiErr.StatusCode >= 500 {
			return ErrorKindServer
		}
		return ErrorKindUnknown
	}
}
