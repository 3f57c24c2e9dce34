package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"
	// Asia/Tokyo must resolve on hosts without zoneinfo.
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	minSecretKeyLength = 32
)

var insecureSecretPlaceholders = map[string]struct{}{
	"change_me_in_production":                    {},
	"replace_with_at_least_32_random_characters": {},
	"changeme":                                   {},
	"secret":                                     {},
}

var (
	ErrSecretKeyMissing  = errors.New("SECRET_KEY is required")
	ErrSecretKeyInsecure = errors.New("SECRET_KEY uses a placeholder value")
	ErrSecretKeyShort    = errors.New("SECRET_KEY must be at least 32 characters")
)

type Config struct {
	Env                    string        `mapstructure:"ENV"`
	Port                   string        `mapstructure:"PORT"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	SecretKey              string        `mapstructure:"SECRET_KEY"`
	CookieSecure           bool          `mapstructure:"COOKIE_SECURE"`
	Timezone               string        `mapstructure:"TZ"`
	DefaultLanguage        string        `mapstructure:"DEFAULT_LANGUAGE"`
	LogLevel               string        `mapstructure:"LOG_LEVEL"`
	LineChannelID          string        `mapstructure:"LINE_CHANNEL_ID"`
	LineChannelSecret      string        `mapstructure:"LINE_CHANNEL_SECRET"`
	LineChannelAccessToken string        `mapstructure:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineAPIBaseURL         string        `mapstructure:"LINE_API_BASE_URL"`
	KafkaBrokers           []string      `mapstructure:"-"`
	KafkaTopic             string        `mapstructure:"KAFKA_TOPIC"`
	ExportS3Bucket         string        `mapstructure:"EXPORT_S3_BUCKET"`
	FamilyInviteTTL        time.Duration `mapstructure:"FAMILY_INVITE_TTL"`
	ReminderEnabled        bool          `mapstructure:"REMINDER_ENABLED"`
	ReminderSchedule       string        `mapstructure:"REMINDER_SCHEDULE"`
	RedisURL               string        `mapstructure:"REDIS_URL"`
}

var boundKeys = []string{
	"ENV",
	"PORT",
	"DATABASE_URL",
	"SECRET_KEY",
	"COOKIE_SECURE",
	"TZ",
	"DEFAULT_LANGUAGE",
	"LOG_LEVEL",
	"LINE_CHANNEL_ID",
	"LINE_CHANNEL_SECRET",
	"LINE_CHANNEL_ACCESS_TOKEN",
	"LINE_API_BASE_URL",
	"KAFKA_BROKERS",
	"KAFKA_TOPIC",
	"EXPORT_S3_BUCKET",
	"FAMILY_INVITE_TTL",
	"REMINDER_ENABLED",
	"REMINDER_SCHEDULE",
	"REDIS_URL",
}

// Load reads configuration from the environment and an optional .env file in
// the working directory. It does not validate; call Validate before use.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_URL", "sqlite://data/heartnote.db")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("TZ", "Asia/Tokyo")
	v.SetDefault("DEFAULT_LANGUAGE", "ja")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LINE_API_BASE_URL", "https://api.line.me")
	v.SetDefault("KAFKA_TOPIC", "heartnote-activity")
	v.SetDefault("FAMILY_INVITE_TTL", "72h")
	v.SetDefault("REMINDER_ENABLED", false)
	v.SetDefault("REMINDER_SCHEDULE", "0 19 * * *")

	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil && !isMissingConfigFile(err) {
		return nil, fmt.Errorf("read .env: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.Port = strings.TrimSpace(cfg.Port)
	cfg.SecretKey = strings.TrimSpace(cfg.SecretKey)
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.ReminderSchedule = strings.TrimSpace(cfg.ReminderSchedule)
	return cfg, nil
}

// A missing .env file is fine; an unreadable or malformed one is not.
func isMissingConfigFile(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func (c *Config) Validate() error {
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	if _, err := ValidatePort(c.Port); err != nil {
		return err
	}
	if err := ValidateSecretKey(c.SecretKey); err != nil {
		return err
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.FamilyInviteTTL <= 0 {
		return fmt.Errorf("FAMILY_INVITE_TTL must be positive, got %s", c.FamilyInviteTTL)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.RedisURL != "" && c.ReminderSchedule == "" {
		return errors.New("REMINDER_SCHEDULE is required when REDIS_URL is set")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == EnvDevelopment
}

// Location is the calendar timezone used for "today" and the reminder loop.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", name, err)
	}
	return location, nil
}

func (c *Config) LineConfigured() bool {
	return c.LineChannelID != "" && c.LineChannelSecret != ""
}

func ValidateSecretKey(secret string) error {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ErrSecretKeyMissing
	}
	if _, insecure := insecureSecretPlaceholders[strings.ToLower(secret)]; insecure {
		return ErrSecretKeyInsecure
	}
	if len(secret) < minSecretKeyLength {
		return ErrSecretKeyShort
	}
	return nil
}

func ValidatePort(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		return "8080", nil
	}
	value, err := strconv.Atoi(port)
	if err != nil || value < 1 || value > 65535 {
		return "", fmt.Errorf("invalid PORT value %q", raw)
	}
	return port, nil
}

func splitList(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
