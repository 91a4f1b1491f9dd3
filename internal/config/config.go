// Package config loads settings from the environment, optionally seeded
// from a .env file. Command-line flags override what is loaded here.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Store   StoreConfig
	Watch   WatchConfig
	Logging LoggingConfig
}

// StoreConfig controls manifest compilation and the read pool.
type StoreConfig struct {
	// Manifest is the default manifest path when none is given on the command line.
	Manifest string `env:"MANIFESTDB_MANIFEST"`

	// TempDir holds compiled store files (default: os.TempDir())
	TempDir string `env:"MANIFESTDB_TEMP_DIR"`

	// MaxReaders bounds concurrent read connections per store (default: 4)
	MaxReaders int `env:"MANIFESTDB_MAX_READERS" default:"4"`
}

// WatchConfig controls the freshness watcher.
type WatchConfig struct {
	// PollInterval is how often the manifest is checked for changes (default: 30s)
	PollInterval time.Duration `env:"MANIFESTDB_POLL_INTERVAL" default:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
