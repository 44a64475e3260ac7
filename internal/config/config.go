package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/service/credentials"
	"github.com/kapu/multistream-checker-go/internal/store"
)

type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	Scheduler SchedulerConfig
	YouTube   YouTubeConfig
	Twitch    TwitchConfig
	Facebook  FacebookConfig
	Store     StoreConfig
	Redis     RedisConfig
	Postgres  PostgresConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Addr         string
	SecureCookie bool
	TrustProxy   bool
}

type AuthConfig struct {
	Username       string
	Password       string
	SessionTTL     time.Duration
	LoginPerMinute int
}

type SchedulerConfig struct {
	RefreshInterval time.Duration
	CheckTimeout    time.Duration
	ChannelsFile    string
}

type YouTubeConfig struct {
	APIKey     string
	DailyQuota int
}

type TwitchConfig struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
}

type FacebookConfig struct {
	AccessToken  string
	GraphVersion string
}

type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":8080"),
			SecureCookie: getEnvBool("SECURE_COOKIE", false),
			TrustProxy:   getEnvBool("TRUST_PROXY", false),
		},
		Auth: AuthConfig{
			Username:       getEnv("AUTH_USERNAME", "admin"),
			Password:       getEnv("AUTH_PASSWORD", ""),
			SessionTTL:     time.Duration(getEnvInt("SESSION_TTL_HOURS", 12)) * time.Hour,
			LoginPerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		},
		Scheduler: SchedulerConfig{
			RefreshInterval: getEnvSeconds("REFRESH_INTERVAL_SECONDS", constants.SchedulerConfig.RefreshInterval),
			CheckTimeout:    getEnvSeconds("CHECK_TIMEOUT_SECONDS", constants.SchedulerConfig.CheckTimeout),
			ChannelsFile:    getEnv("CHANNELS_FILE", ""),
		},
		YouTube: YouTubeConfig{
			APIKey:     getEnv("YOUTUBE_API_KEY", ""),
			DailyQuota: getEnvInt("YOUTUBE_DAILY_QUOTA", constants.YouTubeQuota.DailyLimit),
		},
		Twitch: TwitchConfig{
			ClientID:     getEnv("TWITCH_CLIENT_ID", ""),
			ClientSecret: getEnv("TWITCH_CLIENT_SECRET", ""),
			AccessToken:  getEnv("TWITCH_ACCESS_TOKEN", ""),
		},
		Facebook: FacebookConfig{
			AccessToken:  getEnv("FACEBOOK_ACCESS_TOKEN", ""),
			GraphVersion: getEnv("FACEBOOK_GRAPH_VERSION", constants.APIConfig.FacebookVersion),
		},
		Store: StoreConfig{
			Driver:     strings.ToLower(getEnv("STORE_DRIVER", store.DriverSQLite)),
			SQLitePath: getEnv("SQLITE_PATH", "data/checker.db"),
		},
		Redis: RedisConfig{
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnvInt("REDIS_PORT", 6379),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", constants.RedisConfig.KeyPrefix),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "checker"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "checker"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks settings every entry point needs.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverMemory, store.DriverSQLite, store.DriverRedis, store.DriverPostgres:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not one of memory, sqlite, redis, postgres", c.Store.Driver)
	}
	if c.Store.Driver == store.DriverSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
	}
	if c.Scheduler.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL_SECONDS must be positive")
	}
	if c.Scheduler.CheckTimeout <= 0 {
		return fmt.Errorf("CHECK_TIMEOUT_SECONDS must be positive")
	}
	if c.YouTube.DailyQuota <= 0 {
		return fmt.Errorf("YOUTUBE_DAILY_QUOTA must be positive")
	}
	if c.Twitch.ClientSecret != "" && c.Twitch.ClientID == "" {
		return fmt.Errorf("TWITCH_CLIENT_SECRET requires TWITCH_CLIENT_ID")
	}
	return nil
}

// ValidateWeb adds the checks only the web service needs.
func (c *Config) ValidateWeb() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.Auth.Username == "" {
		return fmt.Errorf("AUTH_USERNAME is required")
	}
	if c.Auth.Password == "" {
		return fmt.Errorf("AUTH_PASSWORD is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	return nil
}

func (c *Config) StoreConfig() store.Config {
	return store.Config{
		Driver:     c.Store.Driver,
		SQLitePath: c.Store.SQLitePath,
		Redis: store.RedisConfig{
			Host:      c.Redis.Host,
			Port:      c.Redis.Port,
			Password:  c.Redis.Password,
			DB:        c.Redis.DB,
			KeyPrefix: c.Redis.KeyPrefix,
		},
		Postgres: store.PostgresConfig{
			Host:     c.Postgres.Host,
			Port:     c.Postgres.Port,
			User:     c.Postgres.User,
			Password: c.Postgres.Password,
			Database: c.Postgres.Database,
			SSLMode:  c.Postgres.SSLMode,
		},
	}
}

func (c *Config) CredentialsConfig() credentials.Config {
	return credentials.Config{
		YouTubeAPIKey:       c.YouTube.APIKey,
		TwitchClientID:      c.Twitch.ClientID,
		TwitchClientSecret:  c.Twitch.ClientSecret,
		TwitchAccessToken:   c.Twitch.AccessToken,
		TwitchTokenURL:      constants.APIConfig.TwitchTokenURL,
		FacebookAccessToken: c.Facebook.AccessToken,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
