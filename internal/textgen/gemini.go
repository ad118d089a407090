package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"comic-server/internal/config"
	"comic-server/internal/models"
)

// geminiClient реализует Client через Google Generative AI SDK.
type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGeminiClient(ctx context.Context, cfg config.TextConfig) (*geminiClient, error) {
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var gErr *googleapi.Error
		if errors.As(err, &gErr) {
			return "", &UpstreamTextError{StatusCode: gErr.Code, Body: gErr.Message}
		}
		return "", transportError(err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("%w: no text in candidates", models.ErrMalformedResponse)
	}
	return text, nil
}

func (c *geminiClient) Close() error { return c.client.Close() }

// responseText склеивает текстовые части первого кандидата.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}
