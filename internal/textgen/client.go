package textgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"comic-server/internal/config"
)

// Client генерирует продолжение истории по готовому промпту.
type Client interface {
	// Complete отправляет промпт одним user-сообщением и возвращает текст ответа.
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
}

// ErrUpstream базовая ошибка апстрима генерации текста.
var ErrUpstream = errors.New("text generation upstream error")

// UpstreamTextError ответ апстрима с не-2xx статусом либо транспортная ошибка (StatusCode == 0).
type UpstreamTextError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamTextError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("text generation transport error: %s", e.Body)
	}
	return fmt.Sprintf("text generation upstream returned %d: %s", e.StatusCode, e.Body)
}

func (e *UpstreamTextError) Unwrap() error { return ErrUpstream }

func transportError(err error) error {
	return &UpstreamTextError{StatusCode: 0, Body: err.Error()}
}

// newHTTPClient: timeout <= 0 означает без ограничения, только таймауты транспорта.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		return &http.Client{}
	}
	return &http.Client{Timeout: timeout}
}

// NewClient создает клиента по cfg.Provider и оборачивает его метриками.
func NewClient(ctx context.Context, cfg config.TextConfig, logger *zap.Logger) (Client, error) {
	log := logger.Named("TextGen")
	httpClient := newHTTPClient(cfg.Timeout)

	var (
		inner Client
		err   error
	)
	switch cfg.Provider {
	case config.ProviderAnthropic:
		inner = newAnthropicClient(cfg, httpClient)
	case config.ProviderOpenAI:
		inner = newOpenAIClient(cfg, httpClient)
	case config.ProviderOllama:
		inner, err = newOllamaClient(cfg, httpClient)
	case config.ProviderGemini:
		inner, err = newGeminiClient(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported text provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", cfg.Provider, err)
	}

	if cfg.APIKey == "" && cfg.Provider != config.ProviderOllama {
		log.Warn("API key for text provider is empty, upstream will likely reject requests",
			zap.String("provider", cfg.Provider))
	}
	log.Info("Text generation client created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("max_tokens", cfg.MaxTokens),
	)

	return newInstrumentedClient(inner, cfg, log), nil
}
