package textgen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"comic-server/internal/config"
	"comic-server/internal/models"
)

var (
	textRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_server_text_requests_total",
			Help: "Total number of requests to the text generation API.",
		},
		[]string{"provider", "model", "status"},
	)
	textRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comic_server_text_request_duration_seconds",
			Help:    "Histogram of text generation request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
	textPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "comic_server_text_prompt_tokens",
			Help:    "Estimated prompt token counts (tiktoken).",
			Buckets: prometheus.LinearBuckets(250, 250, 20), // 250, 500, ..., 5000
		},
		[]string{"provider", "model"},
	)
)

// instrumentedClient считает метрики и логирует каждый вызов провайдера.
type instrumentedClient struct {
	inner    Client
	provider string
	model    string
	logger   *zap.Logger
	counter  *tokenCounter
}

func newInstrumentedClient(inner Client, cfg config.TextConfig, logger *zap.Logger) *instrumentedClient {
	c := &instrumentedClient{
		inner:    inner,
		provider: cfg.Provider,
		model:    cfg.Model,
		logger:   logger,
	}
	if cfg.EstimateTokens {
		c.counter = &tokenCounter{model: cfg.Model}
	}
	return c
}

func (c *instrumentedClient) Complete(ctx context.Context, prompt string) (string, error) {
	labels := prometheus.Labels{"provider": c.provider, "model": c.model}
	if n, ok := c.counter.count(prompt); ok {
		textPromptTokens.With(labels).Observe(float64(n))
	}

	start := time.Now()
	text, err := c.inner.Complete(ctx, prompt)
	duration := time.Since(start)
	textRequestDuration.With(labels).Observe(duration.Seconds())

	if err != nil {
		textRequestsTotal.WithLabelValues(c.provider, c.model, errorStatus(err)).Inc()
		c.logger.Error("Text generation failed",
			zap.String("provider", c.provider),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", err
	}

	textRequestsTotal.WithLabelValues(c.provider, c.model, "success").Inc()
	c.logger.Debug("Text generation completed",
		zap.String("provider", c.provider),
		zap.Duration("duration", duration),
		zap.Int("prompt_len", len(prompt)),
		zap.Int("response_len", len(text)),
	)
	return text, nil
}

func (c *instrumentedClient) Close() error { return c.inner.Close() }

func errorStatus(err error) string {
	switch {
	case errors.Is(err, models.ErrMalformedResponse):
		return "error_malformed"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "error_canceled"
	case errors.Is(err, ErrUpstream):
		return "error_upstream"
	default:
		return "error"
	}
}

// tokenCounter лениво загружает кодировку tiktoken.
// Для моделей, которых tiktoken не знает, используется cl100k_base как приближение.
type tokenCounter struct {
	model string
	once  sync.Once
	enc   *tiktoken.Tiktoken
}

func (t *tokenCounter) count(text string) (int, bool) {
	if t == nil {
		return 0, false
	}
	t.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(t.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding("cl100k_base")
		}
		if err == nil {
			t.enc = enc
		}
	})
	if t.enc == nil {
		return 0, false
	}
	return len(t.enc.Encode(text, nil, nil)), true
}
