package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"comic-server/internal/models"
)

// DBTX - общий интерфейс пула и транзакции pgx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Compile-time check
var _ StoryRepository = (*pgStoryRepository)(nil)

const (
	pgCreateSessionQuery = `
        INSERT INTO game_sessions (id, character_type, current_page, created_at)
        VALUES ($1, $2, $3, $4)`
	pgEnsureSessionQuery = `
        INSERT INTO game_sessions (id, character_type, current_page, created_at)
        VALUES ($1, $2, 0, $3)
        ON CONFLICT (id) DO NOTHING`
	pgGetSessionQuery = `
        SELECT id, character_type, current_page, created_at
        FROM game_sessions
        WHERE id = $1`
	pgCountPlaythroughsQuery = `
        SELECT COUNT(DISTINCT id)
        FROM game_sessions
        WHERE character_type = $1 AND current_page >= $2`
	pgUpsertPageQuery = `
        INSERT INTO story_choices
            (session_id, page_number, story_text, choice1_text, choice2_text, choice3_text, choice_made, image_url, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8)
        ON CONFLICT (session_id, page_number) DO UPDATE SET
            story_text   = EXCLUDED.story_text,
            choice1_text = EXCLUDED.choice1_text,
            choice2_text = EXCLUDED.choice2_text,
            choice3_text = EXCLUDED.choice3_text,
            choice_made  = NULL,
            image_url    = EXCLUDED.image_url,
            created_at   = EXCLUDED.created_at
        RETURNING id`
	pgAdvanceSessionQuery = `
        UPDATE game_sessions SET current_page = GREATEST(current_page, $2)
        WHERE id = $1`
	pgPageColumns = `id, session_id, page_number, story_text, choice1_text, choice2_text, choice3_text, choice_made, image_url, created_at`
	pgGetPageQuery = `
        SELECT ` + pgPageColumns + `
        FROM story_choices
        WHERE session_id = $1 AND page_number = $2`
	pgListPagesQuery = `
        SELECT ` + pgPageColumns + `
        FROM story_choices
        WHERE session_id = $1
        ORDER BY page_number ASC`
	pgSaveChoiceQuery = `
        UPDATE story_choices SET choice_made = $3
        WHERE session_id = $1 AND page_number = $2`
	pgAddAchievementQuery = `
        INSERT INTO achievements (session_id, achievement_type, unlocked_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (session_id, achievement_type) DO NOTHING`
	pgListAchievementsQuery = `
        SELECT id, session_id, achievement_type, unlocked_at
        FROM achievements
        WHERE session_id = $1
        ORDER BY unlocked_at ASC, id ASC`
)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий поверх пула (или транзакции) pgx.
func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

func (r *pgStoryRepository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.Exec(ctx, pgCreateSessionQuery, session.ID, session.Character, session.CurrentPage, session.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create session", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *pgStoryRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	if err := pgxscan.Get(ctx, r.db, session, pgGetSessionQuery, id); err != nil {
		if pgxscan.NotFound(err) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии %s: %w", id, err)
	}
	return session, nil
}

func (r *pgStoryRepository) EnsureSession(ctx context.Context, id uuid.UUID, character string) (bool, error) {
	tag, err := r.db.Exec(ctx, pgEnsureSessionQuery, id, character, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ошибка создания сессии %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgStoryRepository) CountCompletedPlaythroughs(ctx context.Context, character string, terminalPage int) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, pgCountPlaythroughsQuery, character, terminalPage).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета прохождений: %w", err)
	}
	return count, nil
}

func (r *pgStoryRepository) UpsertPage(ctx context.Context, page *models.PageRecord) (int64, error) {
	logFields := []zap.Field{zap.String("sessionID", page.SessionID.String()), zap.Int("page", page.PageNumber)}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cols := choiceColumns(page.Choices)
	var id int64
	err = tx.QueryRow(ctx, pgUpsertPageQuery,
		page.SessionID, page.PageNumber, page.StoryText,
		cols[0], cols[1], cols[2],
		page.ImageURL, page.CreatedAt,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to upsert page", append(logFields, zap.Error(err))...)
		return 0, fmt.Errorf("ошибка сохранения страницы: %w", err)
	}

	if _, err := tx.Exec(ctx, pgAdvanceSessionQuery, page.SessionID, page.PageNumber); err != nil {
		return 0, fmt.Errorf("ошибка обновления current_page: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("ошибка коммита транзакции: %w", err)
	}

	r.logger.Debug("Page stored", append(logFields, zap.Int64("id", id))...)
	return id, nil
}

func (r *pgStoryRepository) GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error) {
	var row pageRow
	if err := pgxscan.Get(ctx, r.db, &row, pgGetPageQuery, sessionID, pageNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения страницы: %w", err)
	}
	page := row.toModel()
	return &page, nil
}

func (r *pgStoryRepository) ListPages(ctx context.Context, sessionID uuid.UUID) ([]models.PageRecord, error) {
	var rows []pageRow
	if err := pgxscan.Select(ctx, r.db, &rows, pgListPagesQuery, sessionID); err != nil {
		return nil, fmt.Errorf("ошибка получения страниц сессии %s: %w", sessionID, err)
	}
	return pagesToModels(rows), nil
}

func (r *pgStoryRepository) SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber int, choiceIndex int) error {
	tag, err := r.db.Exec(ctx, pgSaveChoiceQuery, sessionID, pageNumber, choiceIndex)
	if err != nil {
		return fmt.Errorf("ошибка сохранения выбора: %w", err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Attempted to save choice for non-existent page",
			zap.String("sessionID", sessionID.String()), zap.Int("page", pageNumber))
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) AddAchievement(ctx context.Context, sessionID uuid.UUID, achievementType models.AchievementType) (bool, error) {
	tag, err := r.db.Exec(ctx, pgAddAchievementQuery, sessionID, string(achievementType), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ошибка добавления достижения: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgStoryRepository) ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error) {
	achievements := make([]models.Achievement, 0)
	if err := pgxscan.Select(ctx, r.db, &achievements, pgListAchievementsQuery, sessionID); err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}
	return achievements, nil
}
