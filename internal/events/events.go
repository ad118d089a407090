package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"comic-server/internal/models"
)

// EventType - тип доменного события истории.
type EventType string

const (
	EventPageGenerated       EventType = "page_generated"
	EventChoiceSaved         EventType = "choice_saved"
	EventAchievementUnlocked EventType = "achievement_unlocked"
)

// StoryEvent публикуется после сохранения страницы, выбора или достижения.
type StoryEvent struct {
	Type        EventType              `json:"type"`
	SessionID   uuid.UUID              `json:"sessionId"`
	PageNumber  int                    `json:"pageNumber"`
	Character   string                 `json:"character,omitempty"`
	ChoiceIndex int                    `json:"choiceIndex,omitempty"`
	Achievement models.AchievementType `json:"achievement,omitempty"`
	OccurredAt  time.Time              `json:"occurredAt"`
}

// Publisher отправляет события во внешний брокер.
type Publisher interface {
	Publish(ctx context.Context, event StoryEvent) error
	Close() error
}

// NoopPublisher используется, когда RABBITMQ_URL не задан.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, StoryEvent) error { return nil }
func (NoopPublisher) Close() error                               { return nil }

var _ Publisher = NoopPublisher{}
