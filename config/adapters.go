package config

import (
	"os"
	"path/filepath"

	"confidence-pickem/database"
	"confidence-pickem/logging"
	"confidence-pickem/metrics"
	"confidence-pickem/services"
)

// ToDatabaseConfig converts Config to database.Config
func (c *Config) ToDatabaseConfig() database.Config {
	return database.Config{
		Host:       c.Database.Host,
		Port:       c.Database.Port,
		Username:   c.Database.Username,
		Password:   c.Database.Password,
		Database:   c.Database.Database,
		ReplicaSet: c.Database.ReplicaSet,
		Timeout:    c.Database.Timeout,
	}
}

// ToLoggingConfig converts Config to logging.Config
func (c *Config) ToLoggingConfig() logging.Config {
	cfg := logging.Config{
		Level:       c.Logging.Level,
		Output:      os.Stdout,
		Prefix:      c.Logging.Prefix,
		EnableColor: c.Logging.EnableColor,
	}
	if c.Logging.EnableFile {
		cfg.LogFile = filepath.Join(c.Logging.LogDir, c.Logging.Prefix+".log")
	}
	return cfg
}

// ToMetricsOptions converts Config to metrics manager options
func (c *Config) ToMetricsOptions() []metrics.Option {
	return []metrics.Option{
		metrics.WithEnabled(c.Metrics.Enabled),
		metrics.WithNamespace(c.Metrics.Namespace),
	}
}

// ToLockPolicy builds the pick lock policy
func (c *Config) ToLockPolicy() services.LockPolicy {
	return services.NewLockPolicy(c.Picks.LockOffset)
}
