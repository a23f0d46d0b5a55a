// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DBTypeMongo  = "mongodb"
	DBTypeMemory = "memory"

	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Session tokens are valid for a fixed week.
	DefaultTokenTTL = 7 * 24 * time.Hour

	devJWTSecret = "blogging-web-dev-secret"
)

// ServerConfig holds all server-related settings
type ServerConfig struct {
	Port           int
	Host           string
	MetricsEnabled bool
	RequestTimeout time.Duration
}

// DatabaseConfig holds database configuration settings
type DatabaseConfig struct {
	Type string // "mongodb" or "memory"
	URI  string
	Name string
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	Issuer    string
}

// UploadConfig controls where post images land and how large they may be
type UploadConfig struct {
	Dir       string
	MaxSizeMB int
}

// Config holds the complete application configuration. It is built once at
// startup and handed to constructors; nothing mutates it afterwards.
type Config struct {
	Server         *ServerConfig
	Database       *DatabaseConfig
	Auth           *AuthConfig
	Uploads        *UploadConfig
	Environment    string
	AllowedOrigins []string
	Debug          bool
}

// IsProduction reports whether cookies must be cross-site secure.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DefaultConfig provides default server settings
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Port:           8000,
		Host:           "0.0.0.0",
		MetricsEnabled: true,
		RequestTimeout: 5 * time.Second,
	}
}

// DefaultDatabaseConfig provides default database settings
func DefaultDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		Type: DBTypeMongo,
		Name: "blogging_web",
	}
}

func DefaultUploadConfig() *UploadConfig {
	return &UploadConfig{
		Dir:       filepath.Join("public", "uploads"),
		MaxSizeMB: 5,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Try to load .env file from multiple possible locations
	envLocations := []string{
		".env",       // Current directory
		"../../.env", // Project root when running from cmd/engine
	}

	envLoaded := false
	for _, location := range envLocations {
		if err := godotenv.Load(location); err == nil {
			envLoaded = true
			break
		}
	}
	if !envLoaded {
		// Silent when no .env exists
		_ = godotenv.Load()
	}

	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	serverConfig := DefaultConfig()

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port <= 0 {
			return nil, fmt.Errorf("invalid PORT %q", portStr)
		}
		serverConfig.Port = port
	}

	if host := os.Getenv("HOST"); host != "" {
		serverConfig.Host = host
	}

	if metricsEnabled := os.Getenv("METRICS_ENABLED"); metricsEnabled != "" {
		serverConfig.MetricsEnabled = metricsEnabled == "true"
	}

	timeout, err := durationFromEnv("REQUEST_TIMEOUT", serverConfig.RequestTimeout)
	if err != nil {
		return nil, err
	}
	serverConfig.RequestTimeout = timeout

	debug := os.Getenv("DEBUG") == "true"

	environment := strings.ToLower(getEnvOrDefault("APP_ENV", EnvDevelopment))
	if environment != EnvDevelopment && environment != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, environment)
	}

	dbConfig := DefaultDatabaseConfig()
	if dbType := os.Getenv("DB_TYPE"); dbType != "" {
		dbConfig.Type = strings.ToLower(dbType)
	}
	dbConfig.Name = getEnvOrDefault("MONGODB_DATABASE", dbConfig.Name)

	switch dbConfig.Type {
	case DBTypeMongo:
		dbConfig.URI = os.Getenv("MONGODB_URI")
		if dbConfig.URI == "" {
			dbConfig.URI = os.Getenv("MONGO_URI")
		}
		if dbConfig.URI == "" {
			return nil, fmt.Errorf("MONGODB_URI environment variable is required when DB_TYPE is %s", DBTypeMongo)
		}
	case DBTypeMemory:
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE %q", dbConfig.Type)
	}

	authConfig := &AuthConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  DefaultTokenTTL,
		Issuer:    getEnvOrDefault("JWT_ISSUER", "blogging-web"),
	}
	if authConfig.JWTSecret == "" {
		if !debug {
			return nil, fmt.Errorf("JWT_SECRET environment variable is required")
		}
		authConfig.JWTSecret = devJWTSecret
	}

	uploadConfig := DefaultUploadConfig()
	uploadConfig.Dir = getEnvOrDefault("UPLOAD_DIR", uploadConfig.Dir)
	if maxStr := os.Getenv("UPLOAD_MAX_MB"); maxStr != "" {
		maxMB, err := strconv.Atoi(maxStr)
		if err != nil || maxMB <= 0 {
			return nil, fmt.Errorf("invalid UPLOAD_MAX_MB %q", maxStr)
		}
		uploadConfig.MaxSizeMB = maxMB
	}

	config := &Config{
		Server:         serverConfig,
		Database:       dbConfig,
		Auth:           authConfig,
		Uploads:        uploadConfig,
		Environment:    environment,
		AllowedOrigins: []string{"http://localhost:3000"},
		Debug:          debug,
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = splitAndTrim(origins)
	}

	return config, nil
}

// Helper function to get environment variable with default fallback
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func durationFromEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func splitAndTrim(list string) []string {
	parts := strings.Split(list, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
