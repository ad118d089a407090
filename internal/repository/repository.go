package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"comic-server/internal/models"
)

// StoryRepository определяет методы для работы с сессиями, страницами и достижениями.
type StoryRepository interface {
	// --- Sessions ---
	// CreateSession создает новую сессию. ID и CreatedAt задает вызывающий.
	CreateSession(ctx context.Context, session *models.Session) error
	// GetSession возвращает сессию по ID или models.ErrNotFound.
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	// EnsureSession создает сессию, если ее еще нет. Возвращает true, если запись создана.
	EnsureSession(ctx context.Context, id uuid.UUID, character string) (bool, error)
	// CountCompletedPlaythroughs считает сессии персонажа, дошедшие до terminalPage.
	CountCompletedPlaythroughs(ctx context.Context, character string, terminalPage int) (int, error)

	// --- Pages ---
	// UpsertPage сохраняет страницу (перезаписывая существующую для той же пары session+page,
	// выбор при этом сбрасывается) и продвигает current_page сессии. Возвращает ID записи.
	UpsertPage(ctx context.Context, page *models.PageRecord) (int64, error)
	// GetPage возвращает страницу или models.ErrNotFound.
	GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error)
	// ListPages возвращает страницы сессии по возрастанию номера.
	ListPages(ctx context.Context, sessionID uuid.UUID) ([]models.PageRecord, error)
	// SaveChoice записывает выбор игрока. models.ErrNotFound, если страницы нет.
	SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber int, choiceIndex int) error

	// --- Achievements ---
	// AddAchievement добавляет достижение. Повторное добавление того же типа - no-op (false).
	AddAchievement(ctx context.Context, sessionID uuid.UUID, achievementType models.AchievementType) (bool, error)
	// ListAchievements возвращает достижения сессии в порядке получения.
	ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error)
}

// pageRow - строка story_choices. Варианты выбора хранятся в трех колонках.
type pageRow struct {
	ID          int64     `db:"id"`
	SessionID   uuid.UUID `db:"session_id"`
	PageNumber  int       `db:"page_number"`
	StoryText   string    `db:"story_text"`
	Choice1Text *string   `db:"choice1_text"`
	Choice2Text *string   `db:"choice2_text"`
	Choice3Text *string   `db:"choice3_text"`
	ChoiceMade  *int      `db:"choice_made"`
	ImageURL    *string   `db:"image_url"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r pageRow) toModel() models.PageRecord {
	choices := make([]string, 0, models.MaxChoices)
	for _, c := range []*string{r.Choice1Text, r.Choice2Text, r.Choice3Text} {
		if c != nil && *c != "" {
			choices = append(choices, *c)
		}
	}
	return models.PageRecord{
		ID:         r.ID,
		SessionID:  r.SessionID,
		PageNumber: r.PageNumber,
		StoryText:  r.StoryText,
		Choices:    choices,
		ChoiceMade: r.ChoiceMade,
		ImageURL:   r.ImageURL,
		CreatedAt:  r.CreatedAt,
	}
}

// choiceColumns раскладывает варианты по колонкам choice1..3; отсутствующие - NULL.
func choiceColumns(choices []string) [models.MaxChoices]*string {
	var cols [models.MaxChoices]*string
	for i := 0; i < models.MaxChoices && i < len(choices); i++ {
		c := choices[i]
		cols[i] = &c
	}
	return cols
}

func pagesToModels(rows []pageRow) []models.PageRecord {
	pages := make([]models.PageRecord, 0, len(rows))
	for _, r := range rows {
		pages = append(pages, r.toModel())
	}
	return pages
}
