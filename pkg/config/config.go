package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/smith3v/tg-study-assistant/pkg/logger"
)

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Storage  StorageConfig  `json:"storage"`
	LLM      LLMConfig      `json:"llm"`
	Drill    DrillConfig    `json:"drill"`
	Logging  LoggingConfig  `json:"logging"`
}

type TelegramConfig struct {
	Token string `json:"token" env:"TELEGRAM_API_KEY"`
}

// StorageConfig selects where the bot document is persisted. Driver "file"
// writes a JSON file at Path; "sqlite" and "postgres" keep the same document
// in a single database row.
type StorageConfig struct {
	Driver   string         `json:"driver" env:"STORAGE_DRIVER" env-default:"file"`
	Path     string         `json:"path" env:"STORAGE_PATH" env-default:"bot_data.json"`
	Database DatabaseConfig `json:"database"`
}

type DatabaseConfig struct {
	Host     string `json:"host" env:"DB_HOST"`
	User     string `json:"user" env:"DB_USER"`
	Password string `json:"password" env:"DB_PASSWORD"`
	DBName   string `json:"dbname" env:"DB_NAME"`
	Port     int    `json:"port" env:"DB_PORT" env-default:"5432"`
	SSLMode  string `json:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
}

type LLMConfig struct {
	BaseURL        string  `json:"base_url" env:"LLM_BASE_URL" env-default:"http://localhost:11434/v1"`
	APIKey         string  `json:"api_key" env:"LLM_API_KEY" env-default:"ollama"`
	Model          string  `json:"model" env:"LLM_MODEL" env-default:"llama3.2:latest"`
	Temperature    float64 `json:"temperature" env:"LLM_TEMPERATURE"`
	TimeoutSeconds int     `json:"timeout_seconds" env:"LLM_TIMEOUT_SECONDS"`
	MaxAttempts    int     `json:"max_attempts" env:"LLM_MAX_ATTEMPTS" env-default:"2"`
}

type DrillConfig struct {
	DefaultCount       int `json:"default_count" env:"DRILL_DEFAULT_COUNT" env-default:"10"`
	IdleTimeoutMinutes int `json:"idle_timeout_minutes" env:"DRILL_IDLE_TIMEOUT_MINUTES"`
}

type LoggingConfig struct {
	Level     string `json:"level" env:"LOG_LEVEL"`
	File      string `json:"file" env:"LOG_FILE"`
	Format    string `json:"format" env:"LOG_FORMAT"`
	GormLevel string `json:"gorm_level" env:"LOG_GORM_LEVEL"`
}

const (
	defaultLLMTimeoutSeconds  = 120
	defaultIdleTimeoutMinutes = 30
)

var AppConfig Config

// newConfig presets the timeouts, where an explicit 0 means disabled and must
// survive loading. env-default only fills zero fields, so it cannot hold them.
func newConfig() Config {
	return Config{
		LLM:   LLMConfig{TimeoutSeconds: defaultLLMTimeoutSeconds},
		Drill: DrillConfig{IdleTimeoutMinutes: defaultIdleTimeoutMinutes},
	}
}

// LoadConfig reads filename into AppConfig. Environment variables override
// file values and fill in defaults for anything left empty. Without the file
// the configuration comes from the environment alone.
func LoadConfig(filename string) error {
	cfg := newConfig()
	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) {
		logger.Info("config file not found, reading environment only", "file", filename)
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			logger.Error("failed to read config from environment", "error", err)
			return err
		}
	} else if err := cleanenv.ReadConfig(filename, &cfg); err != nil {
		logger.Error("failed to read config file", "file", filename, "error", err)
		return err
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "file", filename, "error", err)
		return err
	}
	AppConfig = cfg
	return nil
}

// LoadDotEnv loads variables from a .env file when one exists.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram token is required"))
	}
	switch c.Storage.Driver {
	case "file":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage path is required for the file driver"))
		}
	case "sqlite":
		if strings.TrimSpace(c.Storage.Path) == "" {
			errs = append(errs, errors.New("storage path is required for the sqlite driver"))
		}
	case "postgres":
		if c.Storage.Database.Host == "" || c.Storage.Database.DBName == "" {
			errs = append(errs, errors.New("database host and dbname are required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Drill.DefaultCount <= 0 {
		errs = append(errs, fmt.Errorf("drill default_count must be positive, got %d", c.Drill.DefaultCount))
	}
	if c.LLM.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("llm timeout_seconds must not be negative, got %d", c.LLM.TimeoutSeconds))
	}
	if c.Drill.IdleTimeoutMinutes < 0 {
		errs = append(errs, fmt.Errorf("drill idle_timeout_minutes must not be negative, got %d", c.Drill.IdleTimeoutMinutes))
	}
	return errors.Join(errs...)
}

func (c LLMConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c DrillConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMinutes) * time.Minute
}
