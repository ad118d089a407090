package models

import (
	"time"

	"github.com/google/uuid"
)

// AchievementType - тег разблокированного достижения.
type AchievementType string

const (
	AchievementStoryStarted        AchievementType = "story_started"
	AchievementDejaVu              AchievementType = "deja_vu"
	AchievementPlaythroughComplete AchievementType = "playthrough_complete"
)

// Achievement - достижение, полученное в рамках сессии. Записи только добавляются.
type Achievement struct {
	ID         int64           `db:"id" json:"id"`
	SessionID  uuid.UUID       `db:"session_id" json:"sessionId"`
	Type       AchievementType `db:"achievement_type" json:"type"`
	UnlockedAt time.Time       `db:"unlocked_at" json:"unlockedAt"`
}
