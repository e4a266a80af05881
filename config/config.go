package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"confidence-pickem/logging"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Logging  LoggingConfig  `json:"logging"`
	Auth     AuthConfig     `json:"auth"`
	App      AppConfig      `json:"app"`
	Picks    PicksConfig    `json:"picks"`
	Scoring  ScoringConfig  `json:"scoring"`
	Metrics  MetricsConfig  `json:"metrics"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `json:"port"`
	Host            string        `json:"host"`
	UseTLS          bool          `json:"use_tls"`
	CertFile        string        `json:"cert_file"`
	KeyFile         string        `json:"key_file"`
	Environment     string        `json:"environment"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host       string        `json:"host"`
	Port       string        `json:"port"`
	Username   string        `json:"username"`
	Password   string        `json:"password"`
	Database   string        `json:"database"`
	ReplicaSet string        `json:"replica_set"`
	Timeout    time.Duration `json:"timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `json:"level"`
	Prefix      string `json:"prefix"`
	EnableColor bool   `json:"enable_color"`
	LogDir      string `json:"log_dir"`
	EnableFile  bool   `json:"enable_file"`
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret   string        `json:"jwt_secret"`
	TokenExpiry time.Duration `json:"token_expiry"`
	// AdminToken guards the recompute and feed endpoints; empty disables them
	AdminToken string `json:"admin_token"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	CurrentSeason int  `json:"current_season"`
	IsDevelopment bool `json:"is_development"`
	DemoMode      bool `json:"demo_mode"`
}

// PicksConfig holds pick submission rules
type PicksConfig struct {
	LockOffset time.Duration `json:"lock_offset"`
}

// ScoringConfig holds score recomputation settings
type ScoringConfig struct {
	Concurrency                int           `json:"concurrency"`
	SweepInterval              time.Duration `json:"sweep_interval"`
	FinalizationWatcherEnabled bool          `json:"finalization_watcher_enabled"`
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace"`
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Don't treat missing .env as an error
		logging.Warnf("Could not load .env file: %v", err)
	}

	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// FromEnv builds a configuration from the current environment only
func FromEnv() *Config {
	environment := getEnv("ENVIRONMENT", "development")
	isDevelopment := strings.ToLower(environment) == "development"

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			UseTLS:          getBoolEnv("USE_TLS", false),
			CertFile:        getEnv("TLS_CERT_FILE", "server.crt"),
			KeyFile:         getEnv("TLS_KEY_FILE", "server.key"),
			Environment:     environment,
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "27017"),
			Username:   getEnv("DB_USERNAME", ""),
			Password:   getEnv("DB_PASSWORD", ""),
			Database:   getEnv("DB_NAME", "pickem"),
			ReplicaSet: getEnv("DB_REPLICA_SET", ""),
			Timeout:    getDurationEnv("DB_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Prefix:      getEnv("LOG_PREFIX", "pickem"),
			EnableColor: getBoolEnv("LOG_COLOR", true),
			LogDir:      getEnv("LOG_DIR", "./logs"),
			EnableFile:  getBoolEnv("LOG_FILE", false),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", defaultJWTSecret),
			TokenExpiry: getDurationEnv("JWT_EXPIRY", 30*24*time.Hour),
			AdminToken:  getEnv("ADMIN_TOKEN", ""),
		},
		App: AppConfig{
			CurrentSeason: getIntEnv("CURRENT_SEASON", 2025),
			IsDevelopment: isDevelopment,
			DemoMode:      getBoolEnv("DEMO_MODE", false),
		},
		Picks: PicksConfig{
			LockOffset: getDurationEnv("PICK_LOCK_OFFSET", 5*time.Minute),
		},
		Scoring: ScoringConfig{
			Concurrency:                getIntEnv("SCORING_CONCURRENCY", 8),
			SweepInterval:              getDurationEnv("SCORE_SWEEP_INTERVAL", 15*time.Minute),
			FinalizationWatcherEnabled: getBoolEnv("FINALIZATION_WATCHER_ENABLED", true),
		},
		Metrics: MetricsConfig{
			Enabled:   getBoolEnv("METRICS_ENABLED", true),
			Namespace: getEnv("METRICS_NAMESPACE", "pickem"),
		},
	}
}

// Validate validates the configuration for required fields and sensible values
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Server.UseTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required when USE_TLS=true")
		}
		if _, err := os.Stat(c.Server.CertFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS certificate file not found: %s", c.Server.CertFile)
		}
		if _, err := os.Stat(c.Server.KeyFile); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", c.Server.KeyFile)
		}
	}

	if !c.App.DemoMode {
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.Port == "" {
			return fmt.Errorf("database port is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.Auth.JWTSecret == defaultJWTSecret && !c.App.IsDevelopment {
		return fmt.Errorf("JWT secret must be changed in production")
	}

	if c.App.CurrentSeason < 2020 || c.App.CurrentSeason > 2040 {
		return fmt.Errorf("current season must be between 2020 and 2040, got: %d", c.App.CurrentSeason)
	}
	if c.Picks.LockOffset < 0 {
		return fmt.Errorf("pick lock offset must not be negative, got: %v", c.Picks.LockOffset)
	}
	if c.Scoring.Concurrency < 1 {
		return fmt.Errorf("scoring concurrency must be at least 1, got: %d", c.Scoring.Concurrency)
	}
	if c.Scoring.SweepInterval < 0 {
		return fmt.Errorf("score sweep interval must not be negative, got: %v", c.Scoring.SweepInterval)
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *Config) GetServerAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsSweepEnabled reports whether the periodic score sweep should run
func (c *Config) IsSweepEnabled() bool {
	return c.Scoring.SweepInterval > 0
}

// LogConfiguration logs the current configuration (without sensitive data)
func (c *Config) LogConfiguration() {
	logging.Info("=== Application Configuration ===")
	logging.Infof("Server: %s (TLS: %t, Environment: %s)",
		c.GetServerAddress(), c.Server.UseTLS, c.Server.Environment)
	if c.App.DemoMode {
		logging.Info("Database: in-memory demo store")
	} else {
		logging.Infof("Database: %s:%s/%s (Username: %s, Auth: %t, ReplicaSet: %s)",
			c.Database.Host, c.Database.Port, c.Database.Database,
			c.Database.Username, c.Database.Password != "", c.Database.ReplicaSet)
	}
	logging.Infof("Logging: Level=%s, Prefix=%s, Color=%t, File=%t",
		c.Logging.Level, c.Logging.Prefix, c.Logging.EnableColor, c.Logging.EnableFile)
	logging.Infof("Auth: TokenExpiry=%v, AdminEndpoints=%t", c.Auth.TokenExpiry, c.Auth.AdminToken != "")
	logging.Infof("App: Season=%d, Development=%t, Demo=%t",
		c.App.CurrentSeason, c.App.IsDevelopment, c.App.DemoMode)
	logging.Infof("Picks: LockOffset=%v", c.Picks.LockOffset)
	logging.Infof("Scoring: Concurrency=%d, Sweep=%v, FinalizationWatcher=%t",
		c.Scoring.Concurrency, c.Scoring.SweepInterval, c.Scoring.FinalizationWatcherEnabled)
	logging.Infof("Metrics: Enabled=%t, Namespace=%s", c.Metrics.Enabled, c.Metrics.Namespace)
	logging.Info("================================")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
