package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"comic-server/internal/models"
	"comic-server/internal/textgen"
)

// handleServiceError переводит ошибку сервиса в HTTP статус и тело {"error": "..."}.
func (h *StoryHandler) handleServiceError(c *gin.Context, err error) {
	var (
		statusCode int
		message    string
		upstream   *textgen.UpstreamTextError
	)

	switch {
	case errors.Is(err, models.ErrMissingParameter), errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		message = "Not found"
	case errors.As(err, &upstream):
		statusCode = upstream.StatusCode
		if statusCode < http.StatusBadRequest || statusCode > 599 {
			statusCode = http.StatusBadGateway
		}
		message = upstream.Body
		if message == "" {
			message = http.StatusText(statusCode)
		}
	case errors.Is(err, models.ErrMalformedResponse):
		statusCode = http.StatusInternalServerError
		message = "Invalid response from text generation API"
	default:
		statusCode = http.StatusInternalServerError
		message = "Internal server error"
	}

	if statusCode >= http.StatusInternalServerError {
		h.logger.Error("Ошибка обработки запроса",
			zap.String("path", c.FullPath()),
			zap.Int("status", statusCode),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, APIError{Error: message})
}
