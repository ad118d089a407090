package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comic-server/internal/export"
	"comic-server/internal/models"
)

func TestSessionPDF(t *testing.T) {
	chosen := 2
	imageURL := "https://example.com/panel.png"
	session := &models.Session{ID: uuid.New(), Character: "FiFi", CurrentPage: 2, CreatedAt: time.Now()}
	pages := []models.PageRecord{
		{
			PageNumber: 1,
			StoryText:  "A sense of déjà vu washes over you... The screen flickers.",
			Choices:    []string{"Hack", "Run", "Wait"},
			ChoiceMade: &chosen,
			ImageURL:   &imageURL,
		},
		{PageNumber: 2, StoryText: "Second page.", Choices: []string{}},
	}

	var buf bytes.Buffer
	require.NoError(t, export.SessionPDF(&buf, session, pages))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")), "output must be a PDF document")
	assert.Greater(t, buf.Len(), 500)
}

func TestSessionPDF_NoPages(t *testing.T) {
	var buf bytes.Buffer
	err := export.SessionPDF(&buf, &models.Session{ID: uuid.New()}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, buf.Len())
}
