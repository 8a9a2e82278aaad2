// Package config provides functionality for managing configuration options
// for the application using a JSON config file, a .env file, environment
// variables and command-line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// DefaultConfigFile is read from the working directory when no path is given.
	DefaultConfigFile = "config.json"
	// DefaultDriver is the local SQLite store.
	DefaultDriver = "sqlite3"
	// DefaultLogLevel keeps command output free of routine log lines.
	DefaultLogLevel = "warn"
	// DefaultWorkers matches the size of the background write pool.
	DefaultWorkers = 4

	databaseFile = "glb_model_database.db"
	modelDir     = "glb_models"
	sessionFile  = "session.json"
)

// Options holds the configuration values for the application.
type Options struct {
	// DataDir is the private directory holding the database, the model files
	// and the session.
	DataDir string `json:"data_dir"`

	// Driver selects the database/sql driver: "sqlite3" or "postgres".
	Driver string `json:"db_driver"`

	// DatabaseDSN holds the database connection string. Empty means the
	// SQLite file inside DataDir.
	DatabaseDSN string `json:"database_dsn"`

	// LogLevel is the minimum zap level written to stderr.
	LogLevel string `json:"log_level"`

	// Workers is the size of the background worker pool.
	Workers int `json:"workers"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() *Options {
	dataDir := ".glbkeeper"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".glbkeeper")
	}
	return &Options{
		DataDir:  dataDir,
		Driver:   DefaultDriver,
		LogLevel: DefaultLogLevel,
		Workers:  DefaultWorkers,
		Config:   DefaultConfigFile,
	}
}

// Load builds the configuration from, in increasing precedence: defaults,
// the JSON file at path, a .env file in the working directory and the
// process environment. Command-line flags are applied on top by the caller.
func Load(path string) (*Options, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	options := Defaults()
	if path != "" {
		options.Config = path
	}
	if configPath := os.Getenv("GLB_CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		data, err := os.ReadFile(options.Config)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error while reading config file: %w", err)
		default:
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if v := os.Getenv("GLB_DATA_DIR"); v != "" {
		options.DataDir = v
	}
	if v := os.Getenv("GLB_DB_DRIVER"); v != "" {
		options.Driver = v
	}
	if v := os.Getenv("GLB_DATABASE_DSN"); v != "" {
		options.DatabaseDSN = v
	}
	if v := os.Getenv("GLB_LOG_LEVEL"); v != "" {
		options.LogLevel = v
	}
	if v := os.Getenv("GLB_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid int for GLB_WORKERS: %q", v)
		}
		options.Workers = n
	}

	return options, nil
}

// Validate reports configuration that cannot be used.
func (o *Options) Validate() error {
	if o.DataDir == "" {
		return errors.New("data dir must not be empty")
	}
	if o.Driver != "sqlite3" && o.Driver != "postgres" {
		return fmt.Errorf("unsupported db driver %q", o.Driver)
	}
	if o.Driver == "postgres" && o.DatabaseDSN == "" {
		return errors.New("postgres driver requires a database dsn")
	}
	if o.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", o.Workers)
	}
	return nil
}

// DSN returns the connection string, defaulting to the SQLite file in DataDir.
func (o *Options) DSN() string {
	if o.DatabaseDSN != "" {
		return o.DatabaseDSN
	}
	return o.DatabasePath() + "?_journal_mode=WAL&_busy_timeout=5000"
}

// DatabasePath returns the SQLite database file, or "" when the store is not
// a local file.
func (o *Options) DatabasePath() string {
	if o.Driver != "sqlite3" {
		return ""
	}
	if o.DatabaseDSN == "" {
		return filepath.Join(o.DataDir, databaseFile)
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(o.DatabaseDSN, "file:"), "?")
	if path == "" || path == ":memory:" {
		return ""
	}
	return path
}

// ModelDir returns the private directory imported files are copied into.
func (o *Options) ModelDir() string {
	return filepath.Join(o.DataDir, modelDir)
}

// SessionPath returns the file holding the persisted session.
func (o *Options) SessionPath() string {
	return filepath.Join(o.DataDir, sessionFile)
}
