package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	AppName = "writeflow"

	// Durable store keys
	WorkspaceKey = "writeflow-storage"
	SettingsKey  = "writeflow-settings-v2"
)

// Storage drivers
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Host        string
	Port        string
	Environment string
	CORSOrigins string
	// Storage
	StorageDriver string
	DataDir       string
	DatabaseURL   string // postgres driver only
	TablePrefix   string
	// Logging
	LogLevel    string
	LogFormat   string
	LogDir      string // empty = stderr only
	LogMaxFiles int
	// Auth (optional; both empty disables auth)
	AuthJWKSURL string
	AuthSecret  string
	// Assistant
	AssistantTimeout time.Duration
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Host:             getEnv("HOST", "127.0.0.1"),
		Port:             getEnv("PORT", "5175"),
		Environment:      env,
		CORSOrigins:      getEnv("CORS_ORIGINS", "http://localhost:5173"),
		StorageDriver:    getEnv("STORAGE_DRIVER", DriverFile),
		DataDir:          getEnv("DATA_DIR", defaultDataDir()),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		TablePrefix:      getTablePrefix(env),
		LogLevel:         getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		LogDir:           getEnv("LOG_DIR", ""),
		LogMaxFiles:      getEnvInt("LOG_MAX_FILES", 10),
		AuthJWKSURL:      getEnv("AUTH_JWKS_URL", ""),
		AuthSecret:       getEnv("AUTH_SECRET", ""),
		AssistantTimeout: getEnvDuration("ASSISTANT_TIMEOUT", 2*time.Minute),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// AuthEnabled reports whether API requests must carry a token
func (c *Config) AuthEnabled() bool {
	return c.AuthJWKSURL != "" || c.AuthSecret != ""
}

// DataFile returns a path inside the data directory
func (c *Config) DataFile(name string) string {
	return filepath.Join(c.DataDir, name)
}

// defaultDataDir returns ~/.writeflow, falling back to the working directory
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, "."+AppName)
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getDefaultLogLevel(env string) string {
	if env == "dev" {
		return "debug"
	}
	return "info"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
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
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
