package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comic-server/pkg/client"
)

func TestPlay_ReachesCredits(t *testing.T) {
	var (
		mu    sync.Mutex
		saved []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch r.URL.Path {
		case "/api/generate-story":
			page := int(body["pageNumber"].(float64))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"storyText":            fmt.Sprintf("Story page %d", page),
				"choices":              []string{"a", "b", "c"},
				"imageUrl":             nil,
				"previousPlaythroughs": 0,
			})
		case "/api/save-choice":
			mu.Lock()
			saved = append(saved, int(body["pageNumber"].(float64)))
			mu.Unlock()
			_, _ = w.Write([]byte(`{"success":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	manager := client.NewSessionManager(client.NewHTTPClient(srv.URL, nil), client.NewMemoryStorage(), 6, zap.NewNop())

	in := strings.NewReader("x\n1\n2\n3\n1\n2\n")
	var out bytes.Buffer
	require.NoError(t, play(context.Background(), manager, "steve", in, &out))
	manager.Wait()

	text := out.String()
	assert.Contains(t, text, "=== PAGE 1 ===")
	assert.Contains(t, text, "Story page 5")
	assert.Contains(t, text, "Invalid choice.")
	assert.Contains(t, text, "=== CREDITS ===")

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, saved)
}

func TestPlay_AsksForCharacter(t *testing.T) {
	manager := client.NewSessionManager(client.NewHTTPClient("http://127.0.0.1:0", nil), client.NewMemoryStorage(), 6, zap.NewNop())

	var out bytes.Buffer
	require.NoError(t, play(context.Background(), manager, "", strings.NewReader(""), &out))
	assert.Contains(t, out.String(), "Choose your character:")
	assert.Contains(t, out.String(), "PIXL_DRIFT")
}

func TestPlay_ResumesAfterCredits(t *testing.T) {
	ctx := context.Background()
	storage := client.NewMemoryStorage()
	manager := client.NewSessionManager(client.NewHTTPClient("http://127.0.0.1:0", nil), storage, 6, zap.NewNop())
	require.NoError(t, manager.SelectCharacter(ctx, "steve"))
	require.NoError(t, storage.Set(ctx, client.KeyCurrentPage, "6"))

	var out bytes.Buffer
	require.NoError(t, play(ctx, manager, "", strings.NewReader(""), &out))

	text := out.String()
	assert.Contains(t, text, "=== CREDITS ===")
	assert.Contains(t, text, "Choose your character:")
	assert.NotContains(t, text, "Error loading story")
}
