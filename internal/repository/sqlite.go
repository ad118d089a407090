package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comic-server/internal/models"
)

// Compile-time check
var _ StoryRepository = (*sqliteStoryRepository)(nil)

const (
	sqliteCreateSessionQuery = `
        INSERT INTO game_sessions (id, character_type, current_page, created_at)
        VALUES (?, ?, ?, ?)`
	sqliteEnsureSessionQuery = `
        INSERT INTO game_sessions (id, character_type, current_page, created_at)
        VALUES (?, ?, 0, ?)
        ON CONFLICT (id) DO NOTHING`
	sqliteGetSessionQuery = `
        SELECT id, character_type, current_page, created_at
        FROM game_sessions
        WHERE id = ?`
	sqliteCountPlaythroughsQuery = `
        SELECT COUNT(DISTINCT id)
        FROM game_sessions
        WHERE character_type = ? AND current_page >= ?`
	sqliteUpsertPageQuery = `
        INSERT INTO story_choices
            (session_id, page_number, story_text, choice1_text, choice2_text, choice3_text, choice_made, image_url, created_at)
        VALUES (?, ?, ?, ?, ?, ?, NULL, ?, ?)
        ON CONFLICT (session_id, page_number) DO UPDATE SET
            story_text   = excluded.story_text,
            choice1_text = excluded.choice1_text,
            choice2_text = excluded.choice2_text,
            choice3_text = excluded.choice3_text,
            choice_made  = NULL,
            image_url    = excluded.image_url,
            created_at   = excluded.created_at
        RETURNING id`
	sqliteAdvanceSessionQuery = `
        UPDATE game_sessions SET current_page = MAX(current_page, ?)
        WHERE id = ?`
	sqlitePageColumns = `id, session_id, page_number, story_text, choice1_text, choice2_text, choice3_text, choice_made, image_url, created_at`
	sqliteGetPageQuery = `
        SELECT ` + sqlitePageColumns + `
        FROM story_choices
        WHERE session_id = ? AND page_number = ?`
	sqliteListPagesQuery = `
        SELECT ` + sqlitePageColumns + `
        FROM story_choices
        WHERE session_id = ?
        ORDER BY page_number ASC`
	sqliteSaveChoiceQuery = `
        UPDATE story_choices SET choice_made = ?
        WHERE session_id = ? AND page_number = ?`
	sqliteAddAchievementQuery = `
        INSERT INTO achievements (session_id, achievement_type, unlocked_at)
        VALUES (?, ?, ?)
        ON CONFLICT (session_id, achievement_type) DO NOTHING`
	sqliteListAchievementsQuery = `
        SELECT id, session_id, achievement_type, unlocked_at
        FROM achievements
        WHERE session_id = ?
        ORDER BY unlocked_at ASC, id ASC`
)

// sqliteStoryRepository - локальное хранилище по умолчанию (client/.data/game.db).
type sqliteStoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStoryRepository создает репозиторий поверх *sql.DB (драйвер modernc sqlite).
func NewSQLiteStoryRepository(db *sql.DB, logger *zap.Logger) StoryRepository {
	return &sqliteStoryRepository{
		db:     db,
		logger: logger.Named("SQLiteStoryRepo"),
	}
}

func (r *sqliteStoryRepository) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := r.db.ExecContext(ctx, sqliteCreateSessionQuery,
		session.ID.String(), session.Character, session.CurrentPage, session.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create session", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return fmt.Errorf("ошибка создания сессии: %w", err)
	}
	return nil
}

func (r *sqliteStoryRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, sqliteGetSessionQuery, id.String()).Scan(
		&session.ID, &session.Character, &session.CurrentPage, &session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сессии %s: %w", id, err)
	}
	return session, nil
}

func (r *sqliteStoryRepository) EnsureSession(ctx context.Context, id uuid.UUID, character string) (bool, error) {
	res, err := r.db.ExecContext(ctx, sqliteEnsureSessionQuery, id.String(), character, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ошибка создания сессии %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка получения RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (r *sqliteStoryRepository) CountCompletedPlaythroughs(ctx context.Context, character string, terminalPage int) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, sqliteCountPlaythroughsQuery, character, terminalPage).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчета прохождений: %w", err)
	}
	return count, nil
}

func (r *sqliteStoryRepository) UpsertPage(ctx context.Context, page *models.PageRecord) (int64, error) {
	logFields := []zap.Field{zap.String("sessionID", page.SessionID.String()), zap.Int("page", page.PageNumber)}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cols := choiceColumns(page.Choices)
	var id int64
	err = tx.QueryRowContext(ctx, sqliteUpsertPageQuery,
		page.SessionID.String(), page.PageNumber, page.StoryText,
		cols[0], cols[1], cols[2],
		page.ImageURL, page.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		r.logger.Error("Failed to upsert page", append(logFields, zap.Error(err))...)
		return 0, fmt.Errorf("ошибка сохранения страницы: %w", err)
	}

	if _, err := tx.ExecContext(ctx, sqliteAdvanceSessionQuery, page.PageNumber, page.SessionID.String()); err != nil {
		return 0, fmt.Errorf("ошибка обновления current_page: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("ошибка коммита транзакции: %w", err)
	}

	r.logger.Debug("Page stored", append(logFields, zap.Int64("id", id))...)
	return id, nil
}

func (r *sqliteStoryRepository) GetPage(ctx context.Context, sessionID uuid.UUID, pageNumber int) (*models.PageRecord, error) {
	row, err := scanPageRow(r.db.QueryRowContext(ctx, sqliteGetPageQuery, sessionID.String(), pageNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения страницы: %w", err)
	}
	page := row.toModel()
	return &page, nil
}

func (r *sqliteStoryRepository) ListPages(ctx context.Context, sessionID uuid.UUID) ([]models.PageRecord, error) {
	rows, err := r.db.QueryContext(ctx, sqliteListPagesQuery, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка получения страниц сессии %s: %w", sessionID, err)
	}
	defer rows.Close()

	var result []pageRow
	for rows.Next() {
		row, err := scanPageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения страницы: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации страниц: %w", err)
	}
	return pagesToModels(result), nil
}

func (r *sqliteStoryRepository) SaveChoice(ctx context.Context, sessionID uuid.UUID, pageNumber int, choiceIndex int) error {
	res, err := r.db.ExecContext(ctx, sqliteSaveChoiceQuery, choiceIndex, sessionID.String(), pageNumber)
	if err != nil {
		return fmt.Errorf("ошибка сохранения выбора: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения RowsAffected: %w", err)
	}
	if n == 0 {
		r.logger.Warn("Attempted to save choice for non-existent page",
			zap.String("sessionID", sessionID.String()), zap.Int("page", pageNumber))
		return models.ErrNotFound
	}
	return nil
}

func (r *sqliteStoryRepository) AddAchievement(ctx context.Context, sessionID uuid.UUID, achievementType models.AchievementType) (bool, error) {
	res, err := r.db.ExecContext(ctx, sqliteAddAchievementQuery, sessionID.String(), string(achievementType), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("ошибка добавления достижения: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ошибка получения RowsAffected: %w", err)
	}
	return n == 1, nil
}

func (r *sqliteStoryRepository) ListAchievements(ctx context.Context, sessionID uuid.UUID) ([]models.Achievement, error) {
	rows, err := r.db.QueryContext(ctx, sqliteListAchievementsQuery, sessionID.String())
	if err != nil {
		return nil, fmt.Errorf("ошибка получения достижений: %w", err)
	}
	defer rows.Close()

	achievements := make([]models.Achievement, 0)
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Type, &a.UnlockedAt); err != nil {
			return nil, fmt.Errorf("ошибка чтения достижения: %w", err)
		}
		achievements = append(achievements, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации достижений: %w", err)
	}
	return achievements, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPageRow(s rowScanner) (pageRow, error) {
	var row pageRow
	err := s.Scan(
		&row.ID, &row.SessionID, &row.PageNumber, &row.StoryText,
		&row.Choice1Text, &row.Choice2Text, &row.Choice3Text,
		&row.ChoiceMade, &row.ImageURL, &row.CreatedAt,
	)
	return row, err
}
