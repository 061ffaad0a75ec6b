package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// bedrockProvider dispatches completions for model names prefixed
// "bedrock/", demonstrating that the Selector's model-name-driven routing
// spans three independent providers. req.Credential is interpreted as
// "accessKeyID:secretAccessKey:region" — a deliberately simple encoding
// since Bedrock needs a key pair plus region rather than a bearer token.
type bedrockProvider struct{}

// NewBedrockProvider constructs the Provider backing "bedrock/*" models.
func NewBedrockProvider() Provider { return bedrockProvider{} }

func (bedrockProvider) Name() string { return "bedrock" }

func (bedrockProvider) Supports(model string) bool {
	return strings.HasPrefix(model, "bedrock/")
}

type bedrockConverseRequest struct {
	AnthropicVersion string                   `json:"anthropic_version"`
	MaxTokens        int                      `json:"max_tokens"`
	System           string                   `json:"system,omitempty"`
	Messages         []bedrockConverseMessage `json:"messages"`
}

type bedrockConverseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bedrockConverseResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (bedrockProvider) Complete(ctx context.Context, req Request) (string, error) {
	akID, secret, region, err := splitBedrockCredential(req.Credential)
	if err != nil {
		return "", newProviderError("bedrock", ErrorKindAuth, err.Error(), err)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(akID, secret, "")),
	)
	if err != nil {
		return "", newProviderError("bedrock", ErrorKindUnknown, err.Error(), err)
	}

	client := bedrockruntime.NewFromConfig(cfg)

	body, err := json.Marshal(bedrockConverseRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        4096,
		System:           req.SystemPrompt,
		Messages:         []bedrockConverseMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", newProviderError("bedrock", ErrorKindUnknown, err.Error(), err)
	}

	modelID := strings.TrimPrefix(req.Model, "bedrock/")
	out, err := client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", newProviderError("bedrock", classifyBedrockError(err), err.Error(), err)
	}

	var parsed bedrockConverseResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return "", newProviderError("bedrock", ErrorKindUnknown, err.Error(), err)
	}
	var sb bytes.Buffer
	for _, c := range parsed.Content {
		sb.WriteString(c.Text)
	}
	return sb.String(), nil
}

func splitBedrockCredential(cred string) (accessKeyID, secret, region string, err error) {
	parts := strings.SplitN(cred, ":", 3)
	if len(parts) != 3 {
		return "", "", "", errors.New("bedrock credential must be \"accessKeyID:secretAccessKey:region\"")
	}
	return parts[0], parts[1], parts[2], nil
}

func classifyBedrockError(err error) ErrorKind {
	var respErr *smithyhttp.ResponseError
	if !errors.As(err, &respErr) {
		return ErrorKindNetwork
	}
	switch respErr.HTTPStatusCode() {
	case 401, 403:
		return ErrorKindAuth
	case 404:
		return ErrorKindModelNotFound
	case 429:
		return ErrorKindRateLimit
	default:
		if respErr.HTTPStatusCode() >= 500 {
			return ErrorKindServer
		}
		return ErrorKindUnknown
	}
}
