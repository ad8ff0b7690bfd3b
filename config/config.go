package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Notion   NotionConfig   `yaml:"notion"`
	Graph    GraphConfig    `yaml:"graph"`
	Calendar CalendarConfig `yaml:"calendar"`
	Telegram TelegramConfig `yaml:"telegram"`
	Training TrainingConfig `yaml:"training"`

	// Secrets never live in the YAML file.
	Secrets Secrets `yaml:"-"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" validate:"min=1,max=65535"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	// File enables a rotating log file in addition to stdout.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// DatabaseConfig holds the connection settings for the counter and run journal database.
type DatabaseConfig struct {
	// DSN is a Postgres connection string, or "sqlite:<path>" for a local SQLite file.
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogLevel               string `yaml:"log_level"`
}

// NotionConfig holds the record store client configuration.
type NotionConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"url"`
	Version        string        `yaml:"version"`
	PageSize       int           `yaml:"page_size" validate:"min=1,max=100"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// GraphConfig holds the Microsoft Graph client configuration.
type GraphConfig struct {
	BaseURL        string        `yaml:"base_url" validate:"url"`
	TokenURL       string        `yaml:"token_url"`
	Scopes         []string      `yaml:"scopes"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// CalendarConfig holds the attendee mapping and calendar event templates.
type CalendarConfig struct {
	// AreaEmails maps an area tag to its mailing list. The "default" key is used for unmapped areas.
	AreaEmails      map[string]string `yaml:"area_emails"`
	DefaultEmail    string            `yaml:"default_email" validate:"omitempty,email"`
	SubjectTemplate string            `yaml:"subject_template"`
	BodyTemplate    string            `yaml:"body_template"`
}

// TelegramGroup is one configured destination chat.
type TelegramGroup struct {
	ChatID  string `yaml:"chat_id" validate:"required"`
	TopicID int64  `yaml:"topic_id"`
}

// TelegramConfig holds the messaging gateway configuration.
type TelegramConfig struct {
	BaseURL           string                   `yaml:"base_url" validate:"url"`
	Groups            map[string]TelegramGroup `yaml:"groups" validate:"dive"`
	RequestsPerSecond float64                  `yaml:"requests_per_second"`
	TimeoutSeconds    int                      `yaml:"timeout_seconds"`
	Timeout           time.Duration            `yaml:"-"`
}

// Templates holds the Telegram message templates.
type Templates struct {
	Broadcast string `yaml:"broadcast"`
	Group     string `yaml:"group"`
	Feedback  string `yaml:"feedback"`
}

// TrainingConfig holds the orchestration settings.
type TrainingConfig struct {
	Timezone          string    `yaml:"timezone"`
	StandardAreas     []string  `yaml:"standard_areas"`
	FeedbackLink      string    `yaml:"feedback_link" validate:"url"`
	FanoutConcurrency int       `yaml:"fanout_concurrency"`
	CounterName       string    `yaml:"counter_name"`
	Templates         Templates `yaml:"templates"`
}

// Secrets are read from the environment, optionally seeded from a .env file.
type Secrets struct {
	NotionToken           string `env:"NOTION_TOKEN"`
	NotionDatabaseID      string `env:"NOTION_DATABASE_ID"`
	MicrosoftClientID     string `env:"MICROSOFT_CLIENT_ID"`
	MicrosoftClientSecret string `env:"MICROSOFT_CLIENT_SECRET"`
	MicrosoftTenantID     string `env:"MICROSOFT_TENANT_ID"`
	MicrosoftUserEmail    string `env:"MICROSOFT_USER_EMAIL" validate:"omitempty,email"`
	TelegramBotToken      string `env:"TELEGRAM_BOT_TOKEN"`
	BasicAuthUsername     string `env:"BASIC_AUTH_USERNAME" envDefault:"admin"`
	BasicAuthPassword     string `env:"BASIC_AUTH_PASSWORD"`
}

// Location returns the configured training time zone.
func (c *TrainingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("invalid timezone %q, falling back to UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

// Load reads the configuration from the given YAML path and the secrets from
// the environment. envFile may be empty; a missing .env file is not an error.
func Load(path, envFile string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	if err := env.Parse(&cfg.Secrets); err != nil {
		return nil, fmt.Errorf("failed to parse secrets from environment: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills every unset option with its default value.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "sqlite:formazing.db"
	}

	if cfg.Notion.BaseURL == "" {
		cfg.Notion.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.Notion.Version == "" {
		cfg.Notion.Version = "2022-06-28"
	}
	if cfg.Notion.PageSize <= 0 {
		cfg.Notion.PageSize = 100
	}
	cfg.Notion.Timeout = secondsOr(cfg.Notion.TimeoutSeconds, 30)

	if cfg.Graph.BaseURL == "" {
		cfg.Graph.BaseURL = "https://graph.microsoft.com/v1.0"
	}
	if cfg.Graph.TokenURL == "" && cfg.Secrets.MicrosoftTenantID != "" {
		cfg.Graph.TokenURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Secrets.MicrosoftTenantID)
	}
	if len(cfg.Graph.Scopes) == 0 {
		cfg.Graph.Scopes = []string{"https://graph.microsoft.com/.default"}
	}
	cfg.Graph.Timeout = secondsOr(cfg.Graph.TimeoutSeconds, 30)

	if cfg.Calendar.DefaultEmail == "" {
		cfg.Calendar.DefaultEmail = cfg.Calendar.AreaEmails["default"]
	}

	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.RequestsPerSecond <= 0 {
		cfg.Telegram.RequestsPerSecond = 1
	}
	cfg.Telegram.Timeout = secondsOr(cfg.Telegram.TimeoutSeconds, 10)

	if cfg.Training.Timezone == "" {
		cfg.Training.Timezone = "Europe/Rome"
	}
	if len(cfg.Training.StandardAreas) == 0 {
		cfg.Training.StandardAreas = []string{"IT", "R&D", "HR", "Legale", "Commerciale", "Marketing"}
	}
	if cfg.Training.FeedbackLink == "" {
		cfg.Training.FeedbackLink = "https://forms.office.com/e/6dbjt4hkiV"
	}
	if cfg.Training.FanoutConcurrency <= 0 {
		log.Printf("training.fanout_concurrency is not set or invalid; defaulting to 4")
		cfg.Training.FanoutConcurrency = 4
	}
	if cfg.Training.CounterName == "" {
		cfg.Training.CounterName = "training_code"
	}
}

func secondsOr(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}
