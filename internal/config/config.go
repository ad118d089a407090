package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"comic-server/internal/story"
	"comic-server/pkg/logger"
)

const (
	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderGemini    = "gemini"
)

// secretsDir путь Docker Secrets. Переменная, чтобы тесты могли подменить.
var secretsDir = "/run/secrets"

// Config структура для хранения всей конфигурации приложения.
type Config struct {
	AppEnv   string `env:"APP_ENV" env-default:"development"`
	Port     string `env:"PORT" env-default:"3000"`
	Logger   logger.Config
	CORS     CORSConfig
	Database DatabaseConfig
	Text     TextConfig
	Image    ImageConfig
	RabbitMQ RabbitMQConfig
	Story    StoryConfig
}

// CORSConfig настройки CORS.
type CORSConfig struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`
}

// DatabaseConfig настройки хранилища. sqlite по умолчанию, postgres опционально.
type DatabaseConfig struct {
	Driver     string        `env:"DB_DRIVER" env-default:"sqlite"`
	SQLitePath string        `env:"SQLITE_PATH" env-default:"client/.data/game.db"`
	Host       string        `env:"DB_HOST" env-default:"localhost"`
	Port       string        `env:"DB_PORT" env-default:"5432"`
	User       string        `env:"DB_USER" env-default:"postgres"`
	Name       string        `env:"DB_NAME" env-default:"comic"`
	SSLMode    string        `env:"DB_SSL_MODE" env-default:"disable"`
	MaxConns   int32         `env:"DB_MAX_CONNECTIONS" env-default:"10"`
	IdleTime   time.Duration `env:"DB_MAX_IDLE" env-default:"5m"`
	// Секрет, без env тега
	Password string
}

// DSN возвращает строку подключения к PostgreSQL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// TextConfig настройки провайдера генерации текста.
type TextConfig struct {
	Provider       string        `env:"TEXT_PROVIDER" env-default:"anthropic"`
	Model          string        `env:"TEXT_MODEL" env-default:"claude-3-opus-20240229"`
	MaxTokens      int           `env:"TEXT_MAX_TOKENS" env-default:"1000"`
	BaseURL        string        `env:"TEXT_BASE_URL" env-default:""`
	Timeout        time.Duration `env:"TEXT_TIMEOUT" env-default:"0s"`
	AnthropicVer   string        `env:"ANTHROPIC_VERSION" env-default:"2023-06-01"`
	EstimateTokens bool          `env:"TEXT_ESTIMATE_TOKENS" env-default:"false"` // tiktoken оценка длины промпта для метрик
	// Секрет, без env тега. Выбирается по провайдеру.
	APIKey string
}

// ImageConfig настройки Replicate.
type ImageConfig struct {
	Enabled      bool          `env:"IMAGE_ENABLED" env-default:"true"`
	BaseURL      string        `env:"IMAGE_BASE_URL" env-default:"https://api.replicate.com/v1"`
	ModelVersion string        `env:"IMAGE_MODEL_VERSION" env-default:"39ed52f2a78e934b3ba6e2a89f5b1c712de7dfea535525255b1aa35c5565e08b"`
	PollInterval time.Duration `env:"IMAGE_POLL_INTERVAL" env-default:"2s"`
	MaxAttempts  int           `env:"IMAGE_MAX_ATTEMPTS" env-default:"30"`
	Timeout      time.Duration `env:"IMAGE_HTTP_TIMEOUT" env-default:"30s"`
	// Секрет, без env тега
	APIToken string
}

// RabbitMQConfig настройки публикации событий. Пустой URL отключает события.
type RabbitMQConfig struct {
	URL   string `env:"RABBITMQ_URL" env-default:""`
	Queue string `env:"EVENTS_QUEUE" env-default:"story_events"`
}

// StoryConfig параметры истории.
type StoryConfig struct {
	TerminalPage int `env:"TERMINAL_PAGE" env-default:"5"`
}

// Load загружает конфигурацию из переменных окружения, .env файла и секретов.
func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку, если файла нет)
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	cfg.Text.Provider = strings.ToLower(strings.TrimSpace(cfg.Text.Provider))

	// Секреты: сначала env, затем /run/secrets
	cfg.Database.Password = lookupSecret("DB_PASSWORD", "db_password")
	cfg.Image.APIToken = lookupSecret("REPLICATE_API_TOKEN", "replicate_api_token")
	switch cfg.Text.Provider {
	case ProviderAnthropic:
		cfg.Text.APIKey = lookupSecret("ANTHROPIC_API_KEY", "anthropic_api_key")
	case ProviderOpenAI:
		cfg.Text.APIKey = lookupSecret("OPENAI_API_KEY", "openai_api_key")
	case ProviderGemini:
		cfg.Text.APIKey = lookupSecret("GEMINI_API_KEY", "gemini_api_key")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность настроек.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Text.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unsupported TEXT_PROVIDER %q", c.Text.Provider)
	}
	if c.Text.MaxTokens <= 0 {
		return fmt.Errorf("TEXT_MAX_TOKENS must be positive, got %d", c.Text.MaxTokens)
	}
	if c.Image.MaxAttempts <= 0 {
		return fmt.Errorf("IMAGE_MAX_ATTEMPTS must be positive, got %d", c.Image.MaxAttempts)
	}
	if c.Story.TerminalPage < story.FirstPage || c.Story.TerminalPage > story.TerminalPage {
		return fmt.Errorf("TERMINAL_PAGE must be between %d and %d, got %d",
			story.FirstPage, story.TerminalPage, c.Story.TerminalPage)
	}
	return nil
}

// ReadSecret читает секрет из файла в стандартном пути Docker Secrets.
func ReadSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// lookupSecret: env имеет приоритет, файл секрета как fallback.
// Отсутствие секрета не ошибка: клиенты получат 401 от апстрима.
func lookupSecret(envKey, secretName string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	v, err := ReadSecret(secretName)
	if err != nil {
		return ""
	}
	return v
}
