package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSecretsDir(t *testing.T, dir string) {
	t.Helper()
	prev := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = prev })
}

func TestLoad_Defaults(t *testing.T) {
	withSecretsDir(t, t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DBDriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "client/.data/game.db", cfg.Database.SQLitePath)
	assert.Equal(t, ProviderAnthropic, cfg.Text.Provider)
	assert.Equal(t, "claude-3-opus-20240229", cfg.Text.Model)
	assert.Equal(t, 1000, cfg.Text.MaxTokens)
	assert.Equal(t, "sk-test", cfg.Text.APIKey)
	assert.Equal(t, 2*time.Second, cfg.Image.PollInterval)
	assert.Equal(t, 30, cfg.Image.MaxAttempts)
	assert.Equal(t, 5, cfg.Story.TerminalPage)
	assert.Zero(t, cfg.Text.Timeout)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Empty(t, cfg.RabbitMQ.URL)
}

func TestLoad_SecretFileFallback(t *testing.T) {
	dir := t.TempDir()
	withSecretsDir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "replicate_api_token"), []byte("r8_token\n"), 0o600))
	t.Setenv("REPLICATE_API_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "r8_token", cfg.Image.APIToken)
}

func TestLoad_ProviderSelectsKey(t *testing.T) {
	withSecretsDir(t, t.TempDir())
	t.Setenv("TEXT_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Text.Provider)
	assert.Equal(t, "sk-openai", cfg.Text.APIKey)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	withSecretsDir(t, t.TempDir())
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
}

func TestLoad_RejectsTerminalPageOutOfRange(t *testing.T) {
	for _, v := range []string{"0", "6"} {
		t.Run(v, func(t *testing.T) {
			withSecretsDir(t, t.TempDir())
			t.Setenv("TERMINAL_PAGE", v)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "TERMINAL_PAGE")
		})
	}
}

func TestReadSecret_Empty(t *testing.T) {
	dir := t.TempDir()
	withSecretsDir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "db_password"), []byte("  \n"), 0o600))

	_, err := ReadSecret("db_password")
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "5433", Name: "comic", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5433/comic?sslmode=disable", c.DSN())
}
