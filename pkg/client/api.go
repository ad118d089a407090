package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Choice - выбор игрока, как его хранит клиент и принимает сервер.
type Choice struct {
	Choice    int    `json:"choice"`
	Character string `json:"character"`
}

// GenerateStoryRequest - тело POST /api/generate-story.
type GenerateStoryRequest struct {
	Character       string   `json:"character"`
	PageNumber      int      `json:"pageNumber"`
	PreviousChoices []Choice `json:"previousChoices"`
	PreviousStory   string   `json:"previousStory"`
	SessionID       string   `json:"sessionId,omitempty"`
}

// GeneratedPage - ответ сервера на генерацию страницы.
type GeneratedPage struct {
	StoryText            string   `json:"storyText"`
	Choices              []string `json:"choices"`
	ImageURL             *string  `json:"imageUrl"`
	PreviousPlaythroughs int      `json:"previousPlaythroughs"`
}

// APIError - не-2xx ответ сервера.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("story server returned %d: %s", e.StatusCode, e.Message)
}

// StoryAPI - методы сервера, которые нужны менеджеру сессии.
type StoryAPI interface {
	GenerateStory(ctx context.Context, req GenerateStoryRequest) (*GeneratedPage, error)
	SaveChoice(ctx context.Context, sessionID string, pageNumber, choiceIndex int) error
}

// HTTPClient ходит в story server по HTTP.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ StoryAPI = (*HTTPClient)(nil)

// NewHTTPClient создает клиента. httpClient == nil - клиент с таймаутом 3 минуты
// (генерация страницы вместе с картинкой может длиться больше минуты).
func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 3 * time.Minute}
	}
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *HTTPClient) GenerateStory(ctx context.Context, req GenerateStoryRequest) (*GeneratedPage, error) {
	if req.PreviousChoices == nil {
		req.PreviousChoices = []Choice{}
	}
	var page GeneratedPage
	if err := c.post(ctx, "/api/generate-story", req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *HTTPClient) SaveChoice(ctx context.Context, sessionID string, pageNumber, choiceIndex int) error {
	body := map[string]any{
		"sessionId":   sessionID,
		"pageNumber":  pageNumber,
		"choiceIndex": choiceIndex,
	}
	return c.post(ctx, "/api/save-choice", body, nil)
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request for %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}
