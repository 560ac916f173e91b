package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
	Drafts   DraftsConfig   `json:"drafts"`
	Redis    RedisConfig    `json:"redis"`
	Database DatabaseConfig `json:"database"`
	Storage  StorageConfig  `json:"storage"`
	Backend  BackendConfig  `json:"backend"`
	Location LocationConfig `json:"location"`
	Sessions SessionsConfig `json:"sessions"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	// MaxUploadBytes bounds a whole multipart upload request.
	MaxUploadBytes int64 `json:"max_upload_bytes"`
}

// LoggingConfig
type LoggingConfig struct {
	Level string `json:"level"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string `json:"jwt_secret"`
}

// DraftsConfig selects where unsubmitted wizards are kept
type DraftsConfig struct {
	Driver   string        `json:"driver"` // memory, redis or postgres
	Debounce time.Duration `json:"debounce"`
	TTL      time.Duration `json:"ttl"`
	// PurgeSchedule is a cron spec for the abandoned draft sweep.
	PurgeSchedule string `json:"purge_schedule"`
}

// RedisConfig
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	User           string `json:"user"`
	Password       string `json:"password"`
	DBName         string `json:"db_name"`
	SSLMode        string `json:"ssl_mode"`
	MaxConnections int    `json:"max_connections"`
	MaxIdleConns   int    `json:"max_idle_conns"`
}

// StorageConfig points at the S3-compatible image bucket
type StorageConfig struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	PathStyle bool   `json:"path_style"`
	// PublicURL is the CDN prefix uploaded objects are served from.
	PublicURL string `json:"public_url"`
	// MaxDimension downsizes larger images before they are stored. Zero keeps originals.
	MaxDimension int `json:"max_dimension"`
}

// BackendConfig locates the property and location REST backend
type BackendConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// LocationConfig throttles calls to the geocoding endpoints
type LocationConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// SessionsConfig
type SessionsConfig struct {
	IdleTTL time.Duration `json:"idle_ttl"`
}

// LoadConfig loads configuration from file and environment variables.
// A .env file in the working directory is read first when present.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	// Default config
	config := &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   60 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxUploadBytes: 64 << 20,
		},
		Logging: LoggingConfig{Level: "info"},
		Drafts: DraftsConfig{
			Driver:        "memory",
			Debounce:      time.Second,
			TTL:           14 * 24 * time.Hour,
			PurgeSchedule: "@every 1h",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "homezoo_onboarding",
			SSLMode:        "disable",
			MaxConnections: 10,
			MaxIdleConns:   2,
		},
		Storage: StorageConfig{
			Region:       "auto",
			MaxDimension: 2560,
		},
		Backend: BackendConfig{
			BaseURL: "http://localhost:5000/api",
			Timeout: 20 * time.Second,
		},
		Location: LocationConfig{
			RequestsPerSecond: 5,
			Burst:             2,
		},
		Sessions: SessionsConfig{IdleTTL: 2 * time.Hour},
	}

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = n
		}
		return nil
	}
	dur := func(key string, dst *time.Duration) error {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = d
		}
		return nil
	}

	str("SERVER_HOST", &config.Server.Host)
	str("LOG_LEVEL", &config.Logging.Level)
	str("JWT_SECRET", &config.Security.JWTSecret)
	str("DRAFTS_DRIVER", &config.Drafts.Driver)
	str("DRAFTS_PURGE_SCHEDULE", &config.Drafts.PurgeSchedule)
	str("REDIS_ADDR", &config.Redis.Addr)
	str("REDIS_PASSWORD", &config.Redis.Password)
	str("DATABASE_HOST", &config.Database.Host)
	str("DATABASE_USER", &config.Database.User)
	str("DATABASE_PASSWORD", &config.Database.Password)
	str("DATABASE_DBNAME", &config.Database.DBName)
	str("DATABASE_SSLMODE", &config.Database.SSLMode)
	str("STORAGE_BUCKET", &config.Storage.Bucket)
	str("STORAGE_REGION", &config.Storage.Region)
	str("STORAGE_ENDPOINT", &config.Storage.Endpoint)
	str("STORAGE_ACCESS_KEY", &config.Storage.AccessKey)
	str("STORAGE_SECRET_KEY", &config.Storage.SecretKey)
	str("STORAGE_PUBLIC_URL", &config.Storage.PublicURL)
	str("BACKEND_BASE_URL", &config.Backend.BaseURL)
	if v := os.Getenv("STORAGE_PATH_STYLE"); v != "" {
		config.Storage.PathStyle = v == "true" || v == "1"
	}

	for _, f := range []func() error{
		func() error { return num("SERVER_PORT", &config.Server.Port) },
		func() error { return num("REDIS_DB", &config.Redis.DB) },
		func() error { return num("DATABASE_PORT", &config.Database.Port) },
		func() error { return dur("DRAFTS_DEBOUNCE", &config.Drafts.Debounce) },
		func() error { return dur("DRAFTS_TTL", &config.Drafts.TTL) },
		func() error { return dur("BACKEND_TIMEOUT", &config.Backend.Timeout) },
		func() error { return dur("SESSIONS_IDLE_TTL", &config.Sessions.IdleTTL) },
	} {
		if err := f(); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports settings the service cannot start without
func (c *Config) Validate() error {
	switch c.Drafts.Driver {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown drafts driver %q", c.Drafts.Driver)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	return nil
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
