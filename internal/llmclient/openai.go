package llmclient

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiModelPattern matches the GPT and "o-series" reasoning model names
// the original catalog used (gpt-4o, gpt-4.1, gpt-4.1-mini, o3, o4-mini, ...).
var openaiModelPattern = regexp.MustCompile(`^(gpt-|o[0-9])`)

// openaiProvider dispatches completions for OpenAI model names.
type openaiProvider struct{}

// NewOpenAIProvider constructs the Provider backing "gpt-*"/"o<N>*" models.
func NewOpenAIProvider() Provider { return openaiProvider{} }

func (openaiProvider) Name() string { return "openai" }

func (openaiProvider) Supports(model string) bool {
	return openaiModelPattern.MatchString(model)
}

func (openaiProvider) Complete(ctx context.Context, req Request) (string, error) {
	client := openai.NewClient(option.WithAPIKey(req.Credential))

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	})
	if err != nil {
		return "", newProviderError("openai", classifyOpenAIError(err), err.Error(), err)
	}
	if len(resp.Choices) == 0 {
		return "", newProviderError("openai", ErrorKindUnknown, "empty response", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func classifyOpenAIError(err error) ErrorKind {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return ErrorKindNetwork
	}
	switch apiErr.StatusCode {
	case 401, 403:
		return ErrorKindAuth
	case 404:
		return ErrorKindModelNotFound
	case 429:
		if strings.Contains(strings.ToLower(apiErr.Message), "quota") {
			return ErrorKindQuotaExceeded
		}
		return ErrorKindRateLimit
	default:
		if apiErr.StatusCode >= 500 {
			return ErrorKindServer
		}
		return ErrorKindUnknown
	}
}
