package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// DefaultPath is where Load looks for the JSON config file.
const DefaultPath = "config/config.json"

// AppConfig holds the application configuration. Precedence, lowest first:
// built-in defaults, config/config.json, environment variables.
type AppConfig struct {
	App      AppSection      `mapstructure:"app"`
	Gin      GinSection      `mapstructure:"gin"`
	Store    StoreSection    `mapstructure:"store"`
	Database DatabaseSection `mapstructure:"database"`
	Redis    RedisSection    `mapstructure:"redis"`
	Cache    CacheSection    `mapstructure:"cache"`
	RabbitMQ RabbitMQSection `mapstructure:"rabbitmq"`
	Log      LogSection      `mapstructure:"log"`
}

type AppSection struct {
	Port               string   `mapstructure:"port" validate:"required"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute" validate:"gte=0"`
}

type GinSection struct {
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// StoreSection selects the storage backend.
type StoreSection struct {
	Driver string `mapstructure:"driver" validate:"oneof=memory mysql postgres sqlite redis"`
}

// DatabaseSection configures the SQL backends. URI, when set, is used as the
// DSN verbatim; otherwise one is built from the other fields.
type DatabaseSection struct {
	URI        string `mapstructure:"uri"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisSection struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port" validate:"gt=0"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	Password  string `mapstructure:"password"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// CacheSection controls the redis cache in front of browse results.
type CacheSection struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" validate:"gte=0"`
}

// RabbitMQSection enables event publishing when URL is set.
type RabbitMQSection struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

type LogSection struct {
	Level      string `mapstructure:"level"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

var defaults = map[string]interface{}{
	"app.port":                  "8080",
	"app.allowed_origins":       []string{"*"},
	"app.rate_limit_per_minute": 120,
	"gin.mode":                  "release",
	"store.driver":              "mysql",
	"database.uri":              "",
	"database.host":             "127.0.0.1",
	"database.port":             "3306",
	"database.user":             "root",
	"database.password":         "",
	"database.name":             "qalite",
	"database.sqlite_path":      "qalite.db",
	"redis.host":                "127.0.0.1",
	"redis.port":                6379,
	"redis.db":                  0,
	"redis.password":            "",
	"redis.key_prefix":          "qa",
	"cache.enabled":             false,
	"cache.ttl_seconds":         30,
	"rabbitmq.url":              "",
	"rabbitmq.queue":            "qa_events",
	"log.level":                 "info",
	"log.path":                  "",
	"log.max_size_mb":           100,
	"log.max_backups":           3,
	"log.max_age_days":          7,
	"log.compress":              false,
}

// envBindings maps config keys to the environment variables overriding them.
var envBindings = map[string]string{
	"app.port":                  "APP_PORT",
	"app.allowed_origins":       "CORS_ALLOWED_ORIGINS",
	"app.rate_limit_per_minute": "RATE_LIMIT_PER_MINUTE",
	"gin.mode":                  "GIN_MODE",
	"store.driver":              "STORE_DRIVER",
	"database.uri":              "DATABASE_URI",
	"database.host":             "DB_HOST",
	"database.port":             "DB_PORT",
	"database.user":             "DB_USER",
	"database.password":         "DB_PASSWORD",
	"database.name":             "DB_NAME",
	"database.sqlite_path":      "SQLITE_PATH",
	"redis.host":                "REDIS_HOST",
	"redis.port":                "REDIS_PORT",
	"redis.db":                  "REDIS_DB",
	"redis.password":            "REDIS_PASSWORD",
	"redis.key_prefix":          "REDIS_KEY_PREFIX",
	"cache.enabled":             "CACHE_ENABLED",
	"cache.ttl_seconds":         "CACHE_TTL_SECONDS",
	"rabbitmq.url":              "RABBITMQ_URL",
	"rabbitmq.queue":            "RABBITMQ_QUEUE",
	"log.level":                 "LOG_LEVEL",
	"log.path":                  "LOG_PATH",
	"log.max_size_mb":           "LOG_MAX_SIZE_MB",
	"log.max_backups":           "LOG_MAX_BACKUPS",
	"log.max_age_days":          "LOG_MAX_AGE_DAYS",
	"log.compress":              "LOG_COMPRESS",
}

// Load reads the configuration. A missing file at path is not an error; an
// unreadable or invalid one is.
func Load(path string) (AppConfig, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return AppConfig{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return AppConfig{}, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.App.AllowedOrigins = splitAndTrim(cfg.App.AllowedOrigins)
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Gin.Mode = strings.ToLower(strings.TrimSpace(cfg.Gin.Mode))

	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// splitAndTrim flattens comma separated entries and drops blanks.
func splitAndTrim(list []string) []string {
	items := []string{}
	for _, raw := range list {
		for _, item := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				items = append(items, trimmed)
			}
		}
	}
	return items
}
