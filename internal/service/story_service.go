package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"comic-server/internal/events"
	"comic-server/internal/export"
	"comic-server/internal/imagegen"
	"comic-server/internal/models"
	"comic-server/internal/repository"
	"comic-server/internal/story"
	"comic-server/internal/textgen"
)

var (
	pagesGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comic_server_pages_generated_total",
		Help: "Количество сгенерированных страниц по номеру страницы.",
	}, []string{"page"})
	choicesSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comic_server_choices_saved_total",
		Help: "Количество сохраненных выборов игроков.",
	})
	swallowedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "comic_server_swallowed_errors_total",
		Help: "Ошибки best-effort шагов, не прервавшие запрос.",
	}, []string{"step"})
)

// GeneratePageRequest - входные данные генерации страницы.
type GeneratePageRequest struct {
	Character       string
	PageNumber      int
	PreviousChoices []models.PreviousChoice
	PreviousStory   string
	SessionID       *uuid.UUID // nil - страница не сохраняется
}

// GeneratedPage - результат генерации, отдается клиенту как есть.
type GeneratedPage struct {
	StoryText            string   `json:"storyText"`
	Choices              []string `json:"choices"`
	ImageURL             *string  `json:"imageUrl"`
	PreviousPlaythroughs int      `json:"previousPlaythroughs"`
}

// SessionDetails - сессия вместе со страницами и достижениями.
type SessionDetails struct {
	models.Session
	Complete     bool                 `json:"complete"`
	Pages        []models.PageRecord  `json:"pages"`
	Achievements []models.Achievement `json:"achievements"`
}

// StoryService оркестрирует генерацию страниц и работу с сессиями.
type StoryService interface {
	GeneratePage(ctx context.Context, req GeneratePageRequest) (*GeneratedPage, error)
	SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber, choiceIndex int) error
	GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error)
	CreateSession(ctx context.Context, character string) (*models.Session, error)
	GetSessionDetails(ctx context.Context, sessionID uuid.UUID) (*SessionDetails, error)
	ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error)
	ExportPDF(ctx context.Context, sessionID uuid.UUID, w io.Writer) error
}

type storyServiceImpl struct {
	repo         repository.StoryRepository
	text         textgen.Client
	images       imagegen.ImageGenerator
	publisher    events.Publisher
	terminalPage int
	logger       *zap.Logger
	now          func() time.Time
}

// NewStoryService создает оркестратор. terminalPage <= 0 заменяется на story.TerminalPage.
func NewStoryService(
	repo repository.StoryRepository,
	text textgen.Client,
	images imagegen.ImageGenerator,
	publisher events.Publisher,
	terminalPage int,
	logger *zap.Logger,
) StoryService {
	if terminalPage <= 0 || terminalPage > story.TerminalPage {
		terminalPage = story.TerminalPage
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if images == nil {
		images = imagegen.Disabled{}
	}
	return &storyServiceImpl{
		repo:         repo,
		text:         text,
		images:       images,
		publisher:    publisher,
		terminalPage: terminalPage,
		logger:       logger.Named("StoryService"),
		now:          time.Now,
	}
}

func (s *storyServiceImpl) GeneratePage(ctx context.Context, req GeneratePageRequest) (*GeneratedPage, error) {
	if strings.TrimSpace(req.Character) == "" {
		return nil, fmt.Errorf("%w: character", models.ErrMissingParameter)
	}
	if req.PageNumber == 0 {
		req.PageNumber = story.FirstPage
	}
	if req.PageNumber < story.FirstPage || req.PageNumber > story.TerminalPage {
		return nil, fmt.Errorf("%w: pageNumber must be between %d and %d",
			models.ErrInvalidInput, story.FirstPage, story.TerminalPage)
	}

	character := story.ResolveCharacter(req.Character)
	log := s.logger.With(
		zap.String("character", character),
		zap.Int("pageNumber", req.PageNumber),
	)
	if req.SessionID != nil {
		log = log.With(zap.Stringer("sessionId", req.SessionID))
	}

	prompt, err := story.BuildPrompt(story.PromptInput{
		Character:       character,
		PageNumber:      req.PageNumber,
		PreviousChoices: req.PreviousChoices,
		PreviousStory:   req.PreviousStory,
	})
	if err != nil {
		return nil, err
	}

	raw, err := s.text.Complete(ctx, prompt)
	if err != nil {
		log.Error("Ошибка генерации текста страницы", zap.Error(err))
		return nil, fmt.Errorf("ошибка генерации текста: %w", err)
	}
	completion := story.ParseCompletion(raw)

	previousPlaythroughs, err := s.repo.CountCompletedPlaythroughs(ctx, character, s.terminalPage)
	if err != nil {
		log.Error("Не удалось посчитать прошлые прохождения, считаем 0", zap.Error(err))
		swallowedErrorsTotal.WithLabelValues("count_playthroughs").Inc()
		previousPlaythroughs = 0
	}
	storyText := story.AnnotateReplay(completion.StoryText, previousPlaythroughs)

	page := &GeneratedPage{
		StoryText:            storyText,
		Choices:              completion.Choices,
		PreviousPlaythroughs: previousPlaythroughs,
	}
	if page.Choices == nil {
		page.Choices = []string{}
	}

	// Отключение клиента не должно прерывать опрос генерации изображения
	imageURL, err := s.images.GenerateImage(context.WithoutCancel(ctx), storyText)
	if err != nil {
		log.Warn("Изображение не сгенерировано, продолжаем без него", zap.Error(err))
		swallowedErrorsTotal.WithLabelValues("image").Inc()
	} else if imageURL != "" {
		page.ImageURL = &imageURL
	}

	pagesGeneratedTotal.WithLabelValues(strconv.Itoa(req.PageNumber)).Inc()

	if req.SessionID != nil {
		// Страница уже сгенерирована, сохраняем ее даже если клиент отключился
		s.persistPage(context.WithoutCancel(ctx), log, *req.SessionID, character, req.PageNumber, page)
	}

	log.Info("Страница сгенерирована",
		zap.Int("choices", len(page.Choices)),
		zap.Bool("hasImage", page.ImageURL != nil),
		zap.Int("previousPlaythroughs", previousPlaythroughs),
	)
	return page, nil
}

// persistPage сохраняет страницу, выдает достижения и публикует события.
// Ошибки логируются: сгенерированная страница возвращается клиенту в любом случае.
func (s *storyServiceImpl) persistPage(ctx context.Context, log *zap.Logger, sessionID uuid.UUID, character string, pageNumber int, page *GeneratedPage) {
	if _, err := s.repo.EnsureSession(ctx, sessionID, character); err != nil {
		log.Error("Не удалось создать сессию для страницы", zap.Error(err))
		swallowedErrorsTotal.WithLabelValues("persist").Inc()
		return
	}

	record := &models.PageRecord{
		SessionID:  sessionID,
		PageNumber: pageNumber,
		StoryText:  page.StoryText,
		Choices:    page.Choices,
		ImageURL:   page.ImageURL,
		CreatedAt:  s.now().UTC(),
	}
	id, err := s.repo.UpsertPage(ctx, record)
	if err != nil {
		log.Error("Не удалось сохранить страницу", zap.Error(err))
		swallowedErrorsTotal.WithLabelValues("persist").Inc()
		return
	}
	log.Debug("Страница сохранена", zap.Int64("storyId", id))

	s.publish(ctx, log, events.StoryEvent{
		Type:       events.EventPageGenerated,
		SessionID:  sessionID,
		PageNumber: pageNumber,
		Character:  character,
	})

	for _, achievement := range story.EarnedAchievements(pageNumber, s.terminalPage, page.PreviousPlaythroughs) {
		added, err := s.repo.AddAchievement(ctx, sessionID, achievement)
		if err != nil {
			log.Error("Не удалось сохранить достижение",
				zap.String("achievement", string(achievement)), zap.Error(err))
			swallowedErrorsTotal.WithLabelValues("achievement").Inc()
			continue
		}
		if !added {
			continue
		}
		log.Info("Достижение получено", zap.String("achievement", string(achievement)))
		s.publish(ctx, log, events.StoryEvent{
			Type:        events.EventAchievementUnlocked,
			SessionID:   sessionID,
			PageNumber:  pageNumber,
			Character:   character,
			Achievement: achievement,
		})
	}
}

func (s *storyServiceImpl) publish(ctx context.Context, log *zap.Logger, event events.StoryEvent) {
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Warn("Не удалось опубликовать событие", zap.String("eventType", string(event.Type)), zap.Error(err))
		swallowedErrorsTotal.WithLabelValues("publish").Inc()
	}
}

func (s *storyServiceImpl) SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber, choiceIndex int) error {
	if pageNumber < story.FirstPage || pageNumber > story.TerminalPage {
		return fmt.Errorf("%w: pageNumber must be between %d and %d",
			models.ErrInvalidInput, story.FirstPage, story.TerminalPage)
	}
	if choiceIndex < 1 || choiceIndex > models.MaxChoices {
		return fmt.Errorf("%w: choiceIndex must be between 1 and %d", models.ErrInvalidInput, models.MaxChoices)
	}

	log := s.logger.With(
		zap.Stringer("sessionId", sessionID),
		zap.Int("pageNumber", pageNumber),
		zap.Int("choiceIndex", choiceIndex),
	)
	if err := s.repo.SaveChoice(ctx, sessionID, pageNumber, choiceIndex); err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			log.Error("Ошибка сохранения выбора", zap.Error(err))
		}
		return err
	}
	choicesSavedTotal.Inc()
	log.Info("Выбор сохранен")

	s.publish(ctx, log, events.StoryEvent{
		Type:        events.EventChoiceSaved,
		SessionID:   sessionID,
		PageNumber:  pageNumber,
		ChoiceIndex: choiceIndex,
	})
	return nil
}

func (s *storyServiceImpl) GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error) {
	if pageNumber < story.FirstPage {
		return nil, fmt.Errorf("%w: pageNumber must be positive", models.ErrInvalidInput)
	}
	return s.repo.GetPage(ctx, sessionID, pageNumber)
}

func (s *storyServiceImpl) CreateSession(ctx context.Context, character string) (*models.Session, error) {
	if strings.TrimSpace(character) == "" {
		return nil, fmt.Errorf("%w: character", models.ErrMissingParameter)
	}
	session := &models.Session{
		ID:          uuid.New(),
		Character:   story.ResolveCharacter(character),
		CurrentPage: 0,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.logger.Error("Ошибка создания сессии", zap.String("character", session.Character), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Сессия создана",
		zap.Stringer("sessionId", session.ID),
		zap.String("character", session.Character),
	)
	return session, nil
}

func (s *storyServiceImpl) GetSessionDetails(ctx context.Context, sessionID uuid.UUID) (*SessionDetails, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pages, err := s.repo.ListPages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения страниц сессии: %w", err)
	}
	achievements, err := s.repo.ListAchievements(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений сессии: %w", err)
	}
	if pages == nil {
		pages = []models.PageRecord{}
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	return &SessionDetails{
		Session:      *session,
		Complete:     session.IsComplete(s.terminalPage),
		Pages:        pages,
		Achievements: achievements,
	}, nil
}

func (s *storyServiceImpl) ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error) {
	if _, err := s.repo.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	achievements, err := s.repo.ListAchievements(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	return achievements, nil
}

func (s *storyServiceImpl) ExportPDF(ctx context.Context, sessionID uuid.UUID, w io.Writer) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	pages, err := s.repo.ListPages(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("ошибка получения страниц сессии: %w", err)
	}
	return export.SessionPDF(w, session, pages)
}
