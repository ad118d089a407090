package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"comic-server/internal/models"
	"comic-server/internal/service"
	"comic-server/internal/story"
)

// StoryHandler обрабатывает HTTP запросы игры.
type StoryHandler struct {
	service   service.StoryService
	logger    *zap.Logger
	startedAt time.Time
}

// NewStoryHandler создает новый StoryHandler.
func NewStoryHandler(s service.StoryService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		service:   s,
		logger:    logger.Named("StoryHandler"),
		startedAt: time.Now(),
	}
}

// RegisterRoutes регистрирует маршруты API и healthcheck.
func (h *StoryHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.health)
	r.HEAD("/health", h.health)

	api := r.Group("/api")
	{
		api.GET("/characters", h.listCharacters)
		api.POST("/generate-story", h.generateStory)
		api.POST("/save-choice", h.saveChoice)
		api.GET("/story/:sessionId/:pageNumber", h.getStoryPage)

		sessions := api.Group("/sessions")
		sessions.POST("", h.createSession)
		sessions.GET("/:sessionId", h.getSession)
		sessions.GET("/:sessionId/achievements", h.listAchievements)
		sessions.GET("/:sessionId/export.pdf", h.exportPDF)
	}
}

func (h *StoryHandler) health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Uptime: time.Since(h.startedAt).Seconds(),
	})
}

func (h *StoryHandler) listCharacters(c *gin.Context) {
	c.JSON(http.StatusOK, story.Characters())
}

func (h *StoryHandler) generateStory(c *gin.Context) {
	var req generateStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	if strings.TrimSpace(req.Character) == "" {
		h.handleServiceError(c, fmt.Errorf("%w: Character not provided", models.ErrMissingParameter))
		return
	}

	svcReq := service.GeneratePageRequest{
		Character:       req.Character,
		PageNumber:      story.FirstPage,
		PreviousChoices: req.PreviousChoices,
		PreviousStory:   req.PreviousStory,
	}
	if req.PageNumber != nil {
		svcReq.PageNumber = *req.PageNumber
		if svcReq.PageNumber == 0 {
			h.handleServiceError(c, fmt.Errorf("%w: pageNumber must be between %d and %d",
				models.ErrInvalidInput, story.FirstPage, story.TerminalPage))
			return
		}
	}
	// Нераспознанный sessionId: страницу отдаем, но не сохраняем
	if req.SessionID != "" {
		if sessionID, err := parseSessionID(string(req.SessionID)); err == nil {
			svcReq.SessionID = &sessionID
		} else {
			h.logger.Warn("sessionId is not a UUID, page will not be persisted",
				zap.String("sessionId", string(req.SessionID)))
		}
	}

	page, err := h.service.GeneratePage(c.Request.Context(), svcReq)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *StoryHandler) saveChoice(c *gin.Context) {
	var req saveChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	switch {
	case req.SessionID == "":
		h.handleServiceError(c, fmt.Errorf("%w: sessionId", models.ErrMissingParameter))
		return
	case req.PageNumber == nil:
		h.handleServiceError(c, fmt.Errorf("%w: pageNumber", models.ErrMissingParameter))
		return
	case req.ChoiceIndex == nil:
		h.handleServiceError(c, fmt.Errorf("%w: choiceIndex", models.ErrMissingParameter))
		return
	}
	sessionID, err := parseSessionID(string(req.SessionID))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.service.SaveChoice(c.Request.Context(), sessionID, *req.PageNumber, *req.ChoiceIndex); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse{Success: true})
}

func (h *StoryHandler) getStoryPage(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	pageNumber, err := strconv.Atoi(c.Param("pageNumber"))
	if err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: pageNumber must be an integer", models.ErrInvalidInput))
		return
	}

	page, err := h.service.GetPage(c.Request.Context(), sessionID, pageNumber)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	choices := page.Choices
	if choices == nil {
		choices = []string{}
	}
	c.JSON(http.StatusOK, storyPageResponse{
		StoryID:    page.ID,
		StoryText:  page.StoryText,
		Choices:    choices,
		ChoiceMade: page.ChoiceMade,
		ImageURL:   page.ImageURL,
	})
}

func (h *StoryHandler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleServiceError(c, fmt.Errorf("%w: %v", models.ErrInvalidInput, err))
		return
	}
	session, err := h.service.CreateSession(c.Request.Context(), req.Character)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *StoryHandler) getSession(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	details, err := h.service.GetSessionDetails(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *StoryHandler) listAchievements(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	achievements, err := h.service.ListAchievements(c.Request.Context(), sessionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, achievements)
}

func (h *StoryHandler) exportPDF(c *gin.Context) {
	sessionID, err := parseSessionID(c.Param("sessionId"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	// Пишем в буфер, чтобы при ошибке отдать JSON, а не обрезанный PDF
	var buf bytes.Buffer
	if err := h.service.ExportPDF(c.Request.Context(), sessionID, &buf); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="story-%s.pdf"`, sessionID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func parseSessionID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: sessionId must be a UUID", models.ErrInvalidInput)
	}
	return id, nil
}
