package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient talks to an OpenAI-compatible chat-completion endpoint for
// one (credential, model) pair.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client against the default OpenAI endpoint.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithBaseURL(apiKey, model, "")
}

// NewOpenAIClientWithBaseURL points the client at a compatible third-party
// endpoint (Gemini's OpenAI facade, a local gateway).
func NewOpenAIClientWithBaseURL(apiKey, model, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// OpenAIFactory adapts the constructor to the Factory contract.
func OpenAIFactory(baseURL string) Factory {
	return func(apiKey, model string) Client {
		return NewOpenAIClientWithBaseURL(apiKey, model, baseURL)
	}
}

// Generate submits the prompt as a single user turn and returns the
// assistant text. Failures come back classified.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", NewFault(KindOther, errors.New("empty completion"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps the API error surface onto a Fault kind. Status codes are
// authoritative; the quota/billing distinction additionally needs the error
// body since OpenAI reports exhausted quota as a 429.
func classify(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return NewFault(KindOther, err)
	}

	msg := strings.ToLower(apiErr.Message)
	typ := strings.ToLower(apiErr.Type)

	switch {
	case typ == "insufficient_quota" ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing") ||
		apiErr.HTTPStatusCode == http.StatusPaymentRequired:
		return NewFault(KindQuota, err)
	case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
		return NewFault(KindRateLimit, err)
	case apiErr.HTTPStatusCode == http.StatusUnauthorized ||
		apiErr.HTTPStatusCode == http.StatusForbidden:
		return NewFault(KindAuth, err)
	default:
		return NewFault(KindOther, err)
	}
}
