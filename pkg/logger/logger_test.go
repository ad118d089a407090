package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comic-server/pkg/logger"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")

	log, err := logger.New(logger.Config{Level: "debug", Encoding: "json", OutputPath: out, Service: "comic-server"})
	require.NoError(t, err)

	log.Info("page generated")
	_ = log.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"page generated"`)
	assert.Contains(t, string(data), `"level":"INFO"`)
	assert.Contains(t, string(data), `"timestamp"`)
	assert.Contains(t, string(data), `"service":"comic-server"`)
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.log")

	log, err := logger.New(logger.Config{Level: "verbose", OutputPath: out})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(-1)) // debug выключен
	assert.True(t, log.Core().Enabled(0))
}

func TestNew_ConsoleWithoutService(t *testing.T) {
	out := filepath.Join(t.TempDir(), "play.log")

	log, err := logger.New(logger.Config{Level: "info", Encoding: "CONSOLE", OutputPath: out})
	require.NoError(t, err)

	log.Warn("save failed")
	_ = log.Sync()

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "save failed")
	assert.NotContains(t, string(data), `"msg"`)
	assert.NotContains(t, string(data), "service")
}
