// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Notify      NotifyConfig
	Scheduler   SchedulerConfig
	Login       LoginConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	PathPrefix   string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

// NotifyConfig holds the transactional email gateway settings. An empty
// APIKey disables outbound email entirely; sends become logged no-ops.
type NotifyConfig struct {
	APIKey  string
	BaseURL string
}

type SchedulerConfig struct {
	Enabled bool
	Hour    int // wall-clock hour of the daily tick
}

// LoginConfig holds the signing key for visitor login-link tokens. The key
// is an ECDSA P-256 private key in PEM form; when empty a fresh key is
// generated at startup, which invalidates outstanding links on restart.
type LoginConfig struct {
	PrivateKeyPEM string
	TokenTTL      int // in minutes
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "3001"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			PathPrefix:   getEnv("PATH_PREFIX", "/trap-registration-api"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "trap_registration"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		Notify: NotifyConfig{
			APIKey:  getEnv("NOTIFY_API_KEY", ""),
			BaseURL: getEnv("NOTIFY_BASE_URL", "https://api.notifications.service.gov.uk"),
		},
		Scheduler: SchedulerConfig{
			Enabled: getEnvAsBool("SCHEDULER_ENABLED", true),
			Hour:    getEnvAsInt("SCHEDULER_HOUR", 6),
		},
		Login: LoginConfig{
			PrivateKeyPEM: getEnv("LOGIN_PRIVATE_KEY", ""),
			TokenTTL:      getEnvAsInt("LOGIN_TOKEN_TTL", 30),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	if c.Scheduler.Hour < 0 || c.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler hour must be between 0 and 23")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
