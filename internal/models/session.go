package models

import (
	"time"

	"github.com/google/uuid"
)

// Session - одно прохождение истории игроком за выбранного персонажа.
type Session struct {
	ID          uuid.UUID `db:"id" json:"sessionId"`
	Character   string    `db:"character_type" json:"character"`
	CurrentPage int       `db:"current_page" json:"currentPage"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// IsComplete сообщает, дошла ли сессия до финальной страницы.
func (s *Session) IsComplete(terminalPage int) bool {
	return s.CurrentPage >= terminalPage
}
