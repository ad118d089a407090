package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"comic-server/internal/models"
)

// opaqueID - идентификатор сессии в теле запроса. Клиенты присылают строку или число.
type opaqueID string

func (id *opaqueID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = opaqueID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("sessionId must be a string or a number")
	}
	*id = opaqueID(n.String())
	return nil
}

// generateStoryRequest - тело POST /api/generate-story.
type generateStoryRequest struct {
	Character       string                  `json:"character"`
	PageNumber      *int                    `json:"pageNumber"`
	PreviousChoices []models.PreviousChoice `json:"previousChoices"`
	PreviousStory   string                  `json:"previousStory"`
	SessionID       opaqueID                `json:"sessionId"`
}

// saveChoiceRequest - тело POST /api/save-choice.
type saveChoiceRequest struct {
	SessionID   opaqueID `json:"sessionId"`
	PageNumber  *int     `json:"pageNumber"`
	ChoiceIndex *int     `json:"choiceIndex"`
}

type createSessionRequest struct {
	Character string `json:"character"`
}

// storyPageResponse - ответ GET /api/story/:sessionId/:pageNumber.
type storyPageResponse struct {
	StoryID    int64    `json:"storyId"`
	StoryText  string   `json:"storyText"`
	Choices    []string `json:"choices"`
	ChoiceMade *int     `json:"choiceMade"`
	ImageURL   *string  `json:"imageUrl"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type healthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime"`
}

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Error string `json:"error"`
}
