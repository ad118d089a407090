package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comic-server/pkg/client"
)

func TestHTTPClient_GenerateStory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate-story", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "steve", body["character"])
		assert.EqualValues(t, 2, body["pageNumber"])
		assert.Equal(t, []any{map[string]any{"choice": float64(1), "character": "steve"}}, body["previousChoices"])

		_, _ = w.Write([]byte(`{"storyText":"hi","choices":["a","b","c"],"imageUrl":null,"previousPlaythroughs":1}`))
	}))
	defer srv.Close()

	c := client.NewHTTPClient(srv.URL+"/", nil)
	page, err := c.GenerateStory(context.Background(), client.GenerateStoryRequest{
		Character:       "steve",
		PageNumber:      2,
		PreviousChoices: []client.Choice{{Choice: 1, Character: "steve"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", page.StoryText)
	assert.Len(t, page.Choices, 3)
	assert.Nil(t, page.ImageURL)
	assert.Equal(t, 1, page.PreviousPlaythroughs)
}

func TestHTTPClient_ErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	}))
	defer srv.Close()

	err := client.NewHTTPClient(srv.URL, nil).SaveChoice(context.Background(), "sid", 1, 2)
	require.Error(t, err)

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not found", apiErr.Message)
}
