package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxChoices - количество вариантов выбора на странице.
const MaxChoices = 3

// PageRecord - сгенерированная страница истории внутри сессии.
// На пару (SessionID, PageNumber) приходится не больше одной записи.
type PageRecord struct {
	ID         int64     `json:"storyId"`
	SessionID  uuid.UUID `json:"sessionId"`
	PageNumber int       `json:"pageNumber"`
	StoryText  string    `json:"storyText"`
	Choices    []string  `json:"choices"`
	ChoiceMade *int      `json:"choiceMade"` // nil, пока игрок не сделал выбор
	ImageURL   *string   `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ChoiceText возвращает текст выбранного варианта (1-based) или пустую строку.
func (p *PageRecord) ChoiceText(index int) string {
	if index < 1 || index > len(p.Choices) {
		return ""
	}
	return p.Choices[index-1]
}

// PreviousChoice - выбор, сделанный игроком на одной из предыдущих страниц.
type PreviousChoice struct {
	Choice    int    `json:"choice"`
	Character string `json:"character,omitempty"`
}
