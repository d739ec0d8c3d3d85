package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Supported DB_DRIVER values
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration
type Config struct {
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Workflow   WorkflowConfig
	Report     ReportConfig
	Log        LogConfig
	HTTPAddr   string
	CORSOrigin string
	// AuthRequired puts the form and user routes behind a Bearer token
	AuthRequired bool
	// PasswordMode is "plain" or "bcrypt"
	PasswordMode string
	Migrate      bool
	Seed         bool
}

// DBConfig holds database configuration
type DBConfig struct {
	Driver string
	DSN    string
}

// RedisConfig holds Redis configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// WorkflowConfig holds form workflow configuration
type WorkflowConfig struct {
	DocPrefix string
	Strict    bool
}

// ReportConfig holds PDF report configuration
type ReportConfig struct {
	AssetsDir   string
	CacheTTLSec int
}

// LogConfig holds logrus configuration
type LogConfig struct {
	Level  string
	Format string
}

// lookup returns the raw value for a key, or "" when unset
type lookup func(envKey, iniSection, iniKey string) string

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return build(func(envKey, _, _ string) string {
		return os.Getenv(envKey)
	})
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Priority: ENV > INI > default
	return build(func(envKey, iniSection, iniKey string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		return cfgFile.Section(iniSection).Key(iniKey).String()
	})
}

func build(get lookup) (*Config, error) {
	str := func(envKey, section, key, defaultValue string) string {
		if value := strings.TrimSpace(get(envKey, section, key)); value != "" {
			return value
		}
		return defaultValue
	}
	num := func(envKey, section, key string, defaultValue int) int {
		if value := get(envKey, section, key); value != "" {
			if intValue, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
				return intValue
			}
		}
		return defaultValue
	}
	flag := func(envKey, section, key string, defaultValue bool) bool {
		switch strings.ToLower(strings.TrimSpace(get(envKey, section, key))) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		return defaultValue
	}

	cfg := &Config{
		DB: DBConfig{
			Driver: strings.ToLower(str("DB_DRIVER", "db", "driver", DriverMySQL)),
			DSN:    str("DB_DSN", "db", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     str("REDIS_ADDR", "redis", "addr", ""),
			Password: str("REDIS_PASS", "redis", "pass", ""),
			DB:       num("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        str("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: num("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        str("JWT_ISSUER", "jwt", "issuer", "inspection_log"),
		},
		Workflow: WorkflowConfig{
			DocPrefix: str("DOC_PREFIX", "workflow", "doc_prefix", "AGI-APR"),
			Strict:    flag("WORKFLOW_STRICT", "workflow", "strict", false),
		},
		Report: ReportConfig{
			AssetsDir:   str("ASSETS_DIR", "report", "assets_dir", "static/images"),
			CacheTTLSec: num("PDF_CACHE_TTL_SEC", "report", "cache_ttl_sec", 600),
		},
		Log: LogConfig{
			Level:  str("LOG_LEVEL", "log", "level", "info"),
			Format: str("LOG_FORMAT", "log", "format", "text"),
		},
		HTTPAddr:     str("HTTP_ADDR", "http", "addr", ":8080"),
		CORSOrigin:   str("CORS_ORIGIN", "http", "cors_origin", "http://localhost:5173"),
		AuthRequired: flag("AUTH_REQUIRED", "auth", "required", false),
		PasswordMode: strings.ToLower(str("PASSWORD_MODE", "auth", "password_mode", "plain")),
		Migrate:      flag("MIGRATE", "app", "migrate", false),
		Seed:         flag("SEED", "app", "seed", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("DB_DSN is required for driver %s", c.DB.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("JWT_EXPIRE_MINUTES must be positive")
	}
	switch c.PasswordMode {
	case "plain", "bcrypt":
	default:
		return fmt.Errorf("unsupported PASSWORD_MODE %q", c.PasswordMode)
	}
	return nil
}
