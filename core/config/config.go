package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/m3rciful/regbot/core/database"
	"github.com/m3rciful/regbot/core/logger"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN"`
	// AdminIDs may read the roster with /list.
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"TELEGRAM_ADMIN_IDS"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateMessage identifies plain text messages for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateCommand identifies slash commands for rate limit exclusions.
	UpdateCommand = "command"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates lists update kinds that bypass the limiter: "message" or "command".
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// DriverWorkbook keeps records in an xlsx file.
	DriverWorkbook = "workbook"
	// DriverPostgres keeps records in a PostgreSQL table.
	DriverPostgres = database.DriverPostgres
	// DriverSQLite keeps records in a SQLite file.
	DriverSQLite = database.DriverSQLite
	// DriverRedis keeps records in Redis hashes.
	DriverRedis = "redis"

	// DefaultWorkbookPath is the data file used when store.path is empty.
	DefaultWorkbookPath = "graduation_data.xlsx"
	// DefaultSQLitePath is the database file used when store.path is empty.
	DefaultSQLitePath = "graduation_data.db"
	// DefaultAffirmativeToken marks a confirming reply.
	DefaultAffirmativeToken = "بله"
)

// StoreConfig selects and configures the record store backend.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"STORE_DRIVER"`
	// Path is the workbook file, or the database file for sqlite.
	Path  string `yaml:"path" envconfig:"STORE_PATH"`
	Sheet string `yaml:"sheet" envconfig:"STORE_SHEET"`

	RedisURL    string `yaml:"redis_url" envconfig:"REDIS_URL"`
	RedisPrefix string `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`

	// ImportWorkbook seeds a non-workbook store from an existing xlsx file.
	ImportWorkbook string `yaml:"import_workbook" envconfig:"STORE_IMPORT_WORKBOOK"`

	Database database.Config `yaml:"database"`
}

// ConversationConfig tunes the registration dialogue.
type ConversationConfig struct {
	AffirmativeToken string `yaml:"affirmative_token" envconfig:"AFFIRMATIVE_TOKEN"`
	// StrictConfirm accepts only an exact affirmative reply instead of any
	// reply containing the token.
	StrictConfirm bool `yaml:"strict_confirm" envconfig:"STRICT_CONFIRM"`
}

// Config aggregates the process configuration.
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Logging      logger.Config      `yaml:"logging"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Store        StoreConfig        `yaml:"store"`
	Conversation ConversationConfig `yaml:"conversation"`
}

// CoreConfig returns c itself so a bare Config can be handed to the runner.
func (c *Config) CoreConfig() *Config { return c }

// ConfigError reports configuration the process cannot start with.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Load reads the optional YAML file at path, applies environment overrides and
// normalizes the result. An empty path or a missing file means environment only.
func Load(path string) (*Config, error) {
	var cfg Config

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, &ConfigError{Field: path, Reason: "invalid YAML: " + err.Error()}
			}
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{Field: "env", Reason: err.Error()}
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return invalid("telegram.token", "required (BOT_TOKEN)")
	}
	if err := normalizeRunMode(cfg); err != nil {
		return err
	}
	if err := normalizeRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := normalizeStore(&cfg.Store); err != nil {
		return err
	}

	token := strings.TrimSpace(cfg.Conversation.AffirmativeToken)
	if token == "" {
		token = DefaultAffirmativeToken
	}
	cfg.Conversation.AffirmativeToken = token
	return nil
}

func normalizeRunMode(cfg *Config) error {
	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" || rm == "polling" {
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return invalid("webhook.url", "required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return invalid("webhook.listen", "required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return invalid("webhook.port", "must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return invalid("telegram.longpoll_timeout_seconds", "must be >= 0")
		}
	default:
		return invalid("telegram.run_mode", "%q not allowed; use webhook or longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm
	return nil
}

func normalizeRateLimit(rl *RateLimitConfig) error {
	if rl.IntervalMS < 0 {
		return invalid("rate_limit.interval_ms", "must be >= 0")
	}
	for i, v := range rl.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		switch key {
		case "", UpdateMessage, UpdateCommand:
			rl.ExcludeUpdates[i] = key
		default:
			return invalid("rate_limit.exclude_updates", "%q not allowed; use message or command", v)
		}
	}
	return nil
}

func normalizeStore(s *StoreConfig) error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	s.Path = strings.TrimSpace(s.Path)
	if s.Driver == "" {
		s.Driver = DriverWorkbook
	}

	switch s.Driver {
	case DriverWorkbook:
		if s.Path == "" {
			s.Path = DefaultWorkbookPath
		}
		if s.ImportWorkbook != "" {
			return invalid("store.import_workbook", "not supported with the workbook driver")
		}
	case DriverSQLite:
		if s.Path == "" {
			s.Path = s.Database.Path
		}
		if s.Path == "" {
			s.Path = DefaultSQLitePath
		}
		s.Database.Driver = DriverSQLite
		s.Database.Path = s.Path
	case DriverPostgres:
		db := &s.Database
		if raw := strings.TrimSpace(db.URL); raw != "" {
			parsed, err := database.FromURL(raw)
			if err != nil {
				return invalid("store.database.url", "%v", err)
			}
			parsed.MaxConnections = db.MaxConnections
			*db = parsed
		}
		db.Driver = DriverPostgres
		if db.Host == "" || db.Name == "" || db.User == "" {
			return invalid("store.database", "host, name and user are required for postgres")
		}
		if db.Port == "" {
			db.Port = "5432"
		}
		if db.SSLMode == "" {
			db.SSLMode = "disable"
		}
	case DriverRedis:
		if strings.TrimSpace(s.RedisURL) == "" {
			return invalid("store.redis_url", "required for the redis driver")
		}
	default:
		return invalid("store.driver", "%q not allowed; use workbook, sqlite, postgres or redis", s.Driver)
	}

	if s.Database.MaxConnections < 0 {
		return invalid("store.database.max_connections", "must be >= 0")
	}
	return nil
}
