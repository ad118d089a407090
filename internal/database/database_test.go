package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comic-server/internal/database"
)

func TestMigrateSQLite_CreatesTables(t *testing.T) {
	db, err := database.OpenSQLite(":memory:", zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.MigrateSQLite(db, zap.NewNop()))
	// повторный прогон - no change
	require.NoError(t, database.MigrateSQLite(db, zap.NewNop()))

	for _, table := range []string{"game_sessions", "story_choices", "achievements"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestOpenSQLite_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client", ".data", "game.db")

	db, err := database.OpenSQLite(path, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, database.MigrateSQLite(db, zap.NewNop()))
	assert.FileExists(t, path)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := database.OpenSQLite("  ", zap.NewNop())
	assert.Error(t, err)
}
