package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openaigo "github.com/sashabaranov/go-openai"

	"comic-server/internal/config"
	"comic-server/internal/models"
)

// openAIClient реализует Client с использованием go-openai (OpenAI и совместимые API).
type openAIClient struct {
	client    *openaigo.Client
	model     string
	maxTokens int
}

func newOpenAIClient(cfg config.TextConfig, httpClient *http.Client) *openAIClient {
	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = httpClient
	return &openAIClient{
		client:    openaigo.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *openAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", models.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Close() error { return nil }

func mapOpenAIError(err error) error {
	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) {
		return &UpstreamTextError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) {
		return &UpstreamTextError{StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return transportError(err)
}
