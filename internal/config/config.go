package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Email    EmailConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	DBName     string
	SSLMode    string
	TestDBName string // Separate database for testing
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret                 string
	AccessTokenExpireMinutes  int
	RefreshTokenExpireMinutes int
	ResetTokenExpireMinutes   int
}

// RedisConfig holds the redis connection settings for the
// background mail queue and the idempotency cache.
type RedisConfig struct {
	Addr string
}

// EmailConfig holds the outgoing mail settings. In debug mode
// messages are appended to a local file instead of being sent.
type EmailConfig struct {
	DebugMode   bool
	SMTPServer  string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	Sender      string
	PwdResetURL string
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnvAsInt("DB_PORT", 5432),
			Username:   getEnv("DB_USERNAME", "postgres"),
			Password:   getEnv("DB_PASSWORD", "password"),
			DBName:     getEnv("DB_NAME", "dundie"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			TestDBName: getEnv("TEST_DB_NAME", "dundie_test"),
		},
		Auth: AuthConfig{
			JWTSecret:                 getEnv("JWT_SECRET", "your-secret-key-here"),
			AccessTokenExpireMinutes:  getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30),
			RefreshTokenExpireMinutes: getEnvAsInt("REFRESH_TOKEN_EXPIRE_MINUTES", 600),
			ResetTokenExpireMinutes:   getEnvAsInt("RESET_TOKEN_EXPIRE_MINUTES", 10),
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", "localhost:6379"),
		},
		Email: EmailConfig{
			DebugMode:   getEnvAsBool("EMAIL_DEBUG_MODE", true),
			SMTPServer:  getEnv("SMTP_SERVER", "localhost"),
			SMTPPort:    getEnvAsInt("SMTP_PORT", 465),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASSWORD", ""),
			Sender:      getEnv("EMAIL_SENDER", "dundie@dm.com"),
			PwdResetURL: getEnv("PWD_RESET_URL", "http://localhost:8080/reset-password"),
		},
	}
}

// Helper functions to read environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
