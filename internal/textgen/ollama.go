package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"comic-server/internal/config"
	"comic-server/internal/models"
)

const defaultOllamaBaseURL = "http://localhost:11434"

// ollamaClient реализует Client с использованием ollama/api
type ollamaClient struct {
	client    *api.Client
	model     string
	maxTokens int
}

func newOllamaClient(cfg config.TextConfig, httpClient *http.Client) (*ollamaClient, error) {
	// api.NewClient требует URL без суффикса /v1
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}
	return &ollamaClient{
		client:    api.NewClient(parsedURL, httpClient),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *ollamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]interface{}{
			"num_predict": c.maxTokens,
		},
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(r api.ChatResponse) error {
		content.WriteString(r.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) {
			body := statusErr.ErrorMessage
			if body == "" {
				body = statusErr.Status
			}
			return "", &UpstreamTextError{StatusCode: statusErr.StatusCode, Body: body}
		}
		return "", transportError(err)
	}

	if content.Len() == 0 {
		return "", fmt.Errorf("%w: empty message content", models.ErrMalformedResponse)
	}
	return content.String(), nil
}

func (c *ollamaClient) Close() error { return nil }
