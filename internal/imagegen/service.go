package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"comic-server/internal/config"
)

const (
	promptPrefix   = "comic book style art, detailed professional illustration of: "
	negativePrompt = "blurry, low quality, distorted, bad anatomy, text, word bubbles, watermark"

	statusSucceeded = "succeeded"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

var (
	// ErrGenerationFailed - предсказание завершилось со статусом failed/canceled либо апстрим вернул ошибку.
	ErrGenerationFailed = errors.New("image generation failed")
	// ErrGenerationTimeout - исчерпаны попытки опроса.
	ErrGenerationTimeout = errors.New("image generation timed out")
)

var (
	imageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_server_image_requests_total",
			Help: "Total number of image generation requests by outcome.",
		},
		[]string{"status"},
	)
	imageRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comic_server_image_request_duration_seconds",
			Help:    "Histogram of image generation durations including polling.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s ... 64s
		},
	)
)

// ImageGenerator генерирует иллюстрацию к тексту страницы.
type ImageGenerator interface {
	// GenerateImage возвращает URL картинки. Пустая строка без ошибки - генерация отключена.
	GenerateImage(ctx context.Context, storyText string) (string, error)
}

// Prompt формирует промпт для модели иллюстраций.
func Prompt(storyText string) string {
	return promptPrefix + storyText
}

type predictionInput struct {
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
}

type createPredictionRequest struct {
	Version string          `json:"version"`
	Input   predictionInput `json:"input"`
}

type prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
}

// replicateGenerator - реализация ImageGenerator поверх Replicate predictions API.
type replicateGenerator struct {
	logger       *zap.Logger
	httpClient   *http.Client
	baseURL      string
	token        string
	version      string
	pollInterval time.Duration
	maxAttempts  int
}

// NewImageGenerator создает генератор по конфигурации. При IMAGE_ENABLED=false возвращает Disabled.
func NewImageGenerator(cfg config.ImageConfig, logger *zap.Logger) ImageGenerator {
	log := logger.Named("ImageGen")
	if !cfg.Enabled {
		log.Info("Image generation disabled")
		return Disabled{}
	}
	if cfg.APIToken == "" {
		log.Warn("Replicate API token is empty, image generation will fail")
	}
	return &replicateGenerator{
		logger:       log,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		token:        cfg.APIToken,
		version:      cfg.ModelVersion,
		pollInterval: cfg.PollInterval,
		maxAttempts:  cfg.MaxAttempts,
	}
}

// GenerateImage создает предсказание и опрашивает его до завершения.
func (g *replicateGenerator) GenerateImage(ctx context.Context, storyText string) (string, error) {
	start := time.Now()
	url, err := g.generate(ctx, storyText)
	imageRequestDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		imageRequestsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrGenerationTimeout):
		imageRequestsTotal.WithLabelValues("timeout").Inc()
	default:
		imageRequestsTotal.WithLabelValues("error").Inc()
	}
	return url, err
}

func (g *replicateGenerator) generate(ctx context.Context, storyText string) (string, error) {
	pred, err := g.createPrediction(ctx, storyText)
	if err != nil {
		return "", err
	}
	log := g.logger.With(zap.String("prediction_id", pred.ID))
	log.Debug("Prediction created", zap.String("status", pred.Status))

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		pred, err = g.getPrediction(ctx, pred.ID)
		if err != nil {
			return "", err
		}

		switch pred.Status {
		case statusSucceeded:
			imageURL, err := firstOutput(pred.Output)
			if err != nil {
				return "", err
			}
			log.Info("Image generated", zap.Int("attempts", attempt))
			return imageURL, nil
		case statusFailed, statusCanceled:
			log.Warn("Prediction did not succeed",
				zap.String("status", pred.Status),
				zap.ByteString("error", pred.Error),
			)
			return "", fmt.Errorf("%w: prediction %s", ErrGenerationFailed, pred.Status)
		}

		if attempt == g.maxAttempts {
			break
		}
		timer := time.NewTimer(g.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}

	log.Warn("Prediction polling exhausted", zap.Int("attempts", g.maxAttempts))
	return "", fmt.Errorf("%w after %d attempts", ErrGenerationTimeout, g.maxAttempts)
}

func (g *replicateGenerator) createPrediction(ctx context.Context, storyText string) (*prediction, error) {
	body, err := json.Marshal(createPredictionRequest{
		Version: g.version,
		Input: predictionInput{
			Prompt:         Prompt(storyText),
			NegativePrompt: negativePrompt,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/predictions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req)
}

func (g *replicateGenerator) getPrediction(ctx context.Context, id string) (*prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return g.do(req)
}

func (g *replicateGenerator) do(req *http.Request) (*prediction, error) {
	req.Header.Set("Authorization", "Token "+g.token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrGenerationFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.logger.Error("Replicate returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return nil, fmt.Errorf("%w: API returned status %d", ErrGenerationFailed, resp.StatusCode)
	}

	var pred prediction
	if err := json.Unmarshal(bodyBytes, &pred); err != nil {
		return nil, fmt.Errorf("%w: invalid prediction json: %v", ErrGenerationFailed, err)
	}
	return &pred, nil
}

// firstOutput: output бывает массивом URL или одной строкой.
func firstOutput(raw json.RawMessage) (string, error) {
	var urls []string
	if err := json.Unmarshal(raw, &urls); err == nil {
		if len(urls) == 0 || urls[0] == "" {
			return "", fmt.Errorf("%w: empty output", ErrGenerationFailed)
		}
		return urls[0], nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil && single != "" {
		return single, nil
	}
	return "", fmt.Errorf("%w: unexpected output format", ErrGenerationFailed)
}

// Disabled - генератор-заглушка для IMAGE_ENABLED=false.
type Disabled struct{}

func (Disabled) GenerateImage(context.Context, string) (string, error) { return "", nil }

var (
	_ ImageGenerator = (*replicateGenerator)(nil)
	_ ImageGenerator = Disabled{}
)
