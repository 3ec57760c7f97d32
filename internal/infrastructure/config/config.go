package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

type Config struct {
	ServerAddress   string        `env:"SERVER_ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Storage
	DataDir      string `env:"DATA_DIR" envDefault:"data"`
	UploadDir    string `env:"UPLOAD_DIR" envDefault:"uploads"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"file"`
	SettingsPath string `env:"SETTINGS_PATH" envDefault:"config.yaml"`

	// LLM gateway. The key is only ever read from the environment.
	LLMBaseURL   string        `env:"LLM_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"120s"`
	LLMMaxTokens int           `env:"LLM_MAX_TOKENS" envDefault:"0"`
	ModelsTTL    time.Duration `env:"LLM_MODELS_TTL" envDefault:"10m"`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the process configuration from the environment, after loading
// .env if it exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("config: STORE_BACKEND=%q must be %q or %q", c.StoreBackend, StoreFile, StoreSQLite)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: SHUTDOWN_TIMEOUT must be positive")
	}
	if c.LLMMaxTokens < 0 {
		return fmt.Errorf("config: LLM_MAX_TOKENS must not be negative")
	}
	return nil
}
