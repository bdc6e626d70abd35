package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	TelegramToken  string
	AllowedUserIDs []int64
	WebhookURL     string
	ServerPort     string
	APIUsername    string
	APIPassword    string

	Timezone          *time.Location
	ReferenceLanguage string
	AutocompleteLimit int

	Store     StoreConfig
	Translate TranslateConfig
	Redis     RedisConfig
	CalDAV    CalDAVConfig
	Log       LogConfig

	ResyncSchedule string
}

type StoreConfig struct {
	Backend          string
	DatabasePath     string
	DefaultLanguages []string
	FirestoreProject string
	CredentialsFile  string
}

type TranslateConfig struct {
	APIKey      string
	Timeout     time.Duration
	Concurrency int
}

// RedisConfig enables the shared language cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// CalDAVConfig enables the calendar mirror when URL and credentials are set.
type CalDAVConfig struct {
	URL          string
	Username     string
	Password     string
	CalendarPath string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path.
func LoadFile(envFile string) (*Config, error) {
	_ = godotenv.Load(envFile)

	v := viper.New()
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isNotExist(err) {
			return nil, err
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.TelegramToken = v.GetString("TELEGRAM_BOT_TOKEN")

	ids, err := parseIDs(v.GetString("ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_USER_IDS: %w", err)
	}
	cfg.AllowedUserIDs = ids

	cfg.WebhookURL = strings.TrimRight(v.GetString("WEBHOOK_URL"), "/")
	cfg.ServerPort = v.GetString("SERVER_PORT")
	cfg.APIUsername = v.GetString("API_USERNAME")
	cfg.APIPassword = v.GetString("API_PASSWORD")

	tz, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	cfg.Timezone = tz

	cfg.ReferenceLanguage = v.GetString("REFERENCE_LANGUAGE")
	cfg.AutocompleteLimit = v.GetInt("AUTOCOMPLETE_LIMIT")
	if cfg.AutocompleteLimit <= 0 {
		cfg.AutocompleteLimit = 25
	}

	cfg.Store = StoreConfig{
		Backend:          v.GetString("STORE_BACKEND"),
		DatabasePath:     v.GetString("DATABASE_PATH"),
		DefaultLanguages: splitAndTrim(v.GetString("DEFAULT_LANGUAGES")),
		FirestoreProject: v.GetString("FIRESTORE_PROJECT_ID"),
		CredentialsFile:  v.GetString("FIRESTORE_CREDENTIALS_FILE"),
	}

	cfg.Translate = TranslateConfig{
		APIKey:      v.GetString("TRANSLATE_API_KEY"),
		Timeout:     parseDuration(v.GetString("TRANSLATE_TIMEOUT"), 10*time.Second),
		Concurrency: v.GetInt("TRANSLATE_CONCURRENCY"),
	}
	if cfg.Translate.Concurrency <= 0 {
		cfg.Translate.Concurrency = 1
	}

	cfg.Redis = RedisConfig{
		Addr:     v.GetString("REDIS_ADDR"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		TTL:      parseDuration(v.GetString("LANGUAGE_CACHE_TTL"), 5*time.Minute),
	}

	cfg.CalDAV = CalDAVConfig{
		URL:          v.GetString("CALDAV_URL"),
		Username:     v.GetString("CALDAV_USERNAME"),
		Password:     v.GetString("CALDAV_PASSWORD"),
		CalendarPath: v.GetString("CALDAV_CALENDAR_PATH"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ResyncSchedule = v.GetString("RESYNC_SCHEDULE")

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("TELEGRAM_BOT_TOKEN", "")
	v.SetDefault("ALLOWED_USER_IDS", "")
	v.SetDefault("WEBHOOK_URL", "")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("API_USERNAME", "")
	v.SetDefault("API_PASSWORD", "")

	v.SetDefault("TIMEZONE", "America/New_York")
	v.SetDefault("REFERENCE_LANGUAGE", "en")
	v.SetDefault("AUTOCOMPLETE_LIMIT", 25)

	v.SetDefault("STORE_BACKEND", "sqlite")
	v.SetDefault("DATABASE_PATH", "./data/eventbot.db")
	v.SetDefault("DEFAULT_LANGUAGES", "en")
	v.SetDefault("FIRESTORE_PROJECT_ID", "")
	v.SetDefault("FIRESTORE_CREDENTIALS_FILE", "")

	v.SetDefault("TRANSLATE_API_KEY", "")
	v.SetDefault("TRANSLATE_TIMEOUT", "10s")
	v.SetDefault("TRANSLATE_CONCURRENCY", 8)

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LANGUAGE_CACHE_TTL", "5m")

	v.SetDefault("CALDAV_URL", "")
	v.SetDefault("CALDAV_USERNAME", "")
	v.SetDefault("CALDAV_PASSWORD", "")
	v.SetDefault("CALDAV_CALENDAR_PATH", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("RESYNC_SCHEDULE", "0 4 * * *")
}

// ValidateBot checks the settings the Telegram bot cannot run without.
func (c *Config) ValidateBot() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if len(c.AllowedUserIDs) == 0 {
		return fmt.Errorf("ALLOWED_USER_IDS is required")
	}
	return nil
}

// IsAllowedUser reports whether a Telegram user is a club officer.
func (c *Config) IsAllowedUser(telegramID int64) bool {
	for _, id := range c.AllowedUserIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

// CalDAVEnabled reports whether the calendar mirror is configured.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAV.URL != "" && c.CalDAV.Username != "" && c.CalDAV.CalendarPath != ""
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range splitAndTrim(raw) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
