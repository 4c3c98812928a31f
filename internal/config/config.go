package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"app_env"`
	Port     string         `mapstructure:"port"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Allow    AllowConfig    `mapstructure:"allowlist"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

type LedgerConfig struct {
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	MaxPageSize     int           `mapstructure:"max_page_size"`
	EventQueue      string        `mapstructure:"event_queue"`
}

type AllowConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// envKeys maps config keys to the environment variables that override them.
var envKeys = map[string]string{
	"app_env":                  "APP_ENV",
	"port":                     "PORT",
	"database.host":            "DATABASE_HOST",
	"database.port":            "DATABASE_PORT",
	"database.user":            "DATABASE_USER",
	"database.password":        "DATABASE_PASSWORD",
	"database.name":            "DATABASE_NAME",
	"database.ssl_mode":        "DATABASE_SSL_MODE",
	"redis.enabled":            "REDIS_ENABLED",
	"redis.host":               "REDIS_HOST",
	"redis.port":               "REDIS_PORT",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"jwt.secret_key":           "JWT_SECRET_KEY",
	"ledger.lock_timeout":      "LEDGER_LOCK_TIMEOUT",
	"ledger.default_page_size": "LEDGER_DEFAULT_PAGE_SIZE",
	"ledger.max_page_size":     "LEDGER_MAX_PAGE_SIZE",
	"ledger.event_queue":       "LEDGER_EVENT_QUEUE",
	"allowlist.cache_ttl":      "ALLOWLIST_CACHE_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "development")
	v.SetDefault("port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "credit_ledger")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Minute*5)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("ledger.lock_timeout", 5*time.Second)
	v.SetDefault("ledger.default_page_size", 50)
	v.SetDefault("ledger.max_page_size", 500)
	v.SetDefault("ledger.event_queue", "ledger_events")

	v.SetDefault("allowlist.cache_ttl", 5*time.Minute)
}

// Load reads configuration from the environment, with .env in the working
// directory as a fallback.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing file is not an
// error.
func LoadFrom(envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if err := loadDotEnv(v, envFile); err != nil {
		return nil, err
	}
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv applies KEY=value pairs from file as defaults, so variables set
// in the real environment still win.
func loadDotEnv(v *viper.Viper, file string) error {
	if file == "" {
		return nil
	}
	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	dot := viper.New()
	dot.SetConfigFile(file)
	dot.SetConfigType("env")
	if err := dot.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading %s: %w", file, err)
	}
	for key, env := range envKeys {
		if val := dot.Get(env); val != nil {
			v.SetDefault(key, val)
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY is required")
	}
	if c.Ledger.LockTimeout < 0 {
		return errors.New("LEDGER_LOCK_TIMEOUT must not be negative")
	}
	if c.Ledger.DefaultPageSize <= 0 || c.Ledger.MaxPageSize < c.Ledger.DefaultPageSize {
		return fmt.Errorf("invalid ledger page sizes: default %d, max %d",
			c.Ledger.DefaultPageSize, c.Ledger.MaxPageSize)
	}
	return nil
}

// IsProduction reports whether the service runs in a production-like
// environment, which selects JSON logging at info level.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Env) {
	case "production", "prod", "staging":
		return true
	}
	return false
}
