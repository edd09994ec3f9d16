// Package config holds the process-wide settings used as defaults by the
// reader/writer layer (delimiters, sheet names, API endpoints, store location).
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// environment variables. A .env file in the working directory is loaded on a
// best-effort basis before the environment is consulted.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment variables consulted by Load.
const (
	EnvConfigFile  = "FINSTATEMENTS_CONFIG"
	EnvLogLevel    = "FINSTATEMENTS_LOG_LEVEL"
	EnvDatabaseURL = "DATABASE_URL"
	EnvAPITimeout  = "FINSTATEMENTS_API_TIMEOUT"
)

// Settings is the root settings document.
type Settings struct {
	IO      IOSettings      `yaml:"io"`
	API     APISettings     `yaml:"api"`
	Store   StoreSettings   `yaml:"store"`
	Logging LoggingSettings `yaml:"logging"`
}

// IOSettings are defaults for file-based readers and writers.
type IOSettings struct {
	DefaultCSVDelimiter string `yaml:"default_csv_delimiter"`
	DefaultExcelSheet   string `yaml:"default_excel_sheet"`
	DefaultItemColumn   string `yaml:"default_item_column"`
	// MaxReportedErrors caps the errors listed in aggregated validation messages.
	MaxReportedErrors int `yaml:"max_reported_errors"`
}

// APISettings configure the remote financial-data API.
type APISettings struct {
	FMPAPIKey      string `yaml:"fmp_api_key"`
	FMPBaseURL     string `yaml:"fmp_base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	ValidateAPIKey bool   `yaml:"validate_api_key"`
}

// StoreSettings locate the graph store.
type StoreSettings struct {
	DatabaseURL string `yaml:"database_url"`
	Dir         string `yaml:"dir"`
}

// LoggingSettings configure the zap logger built by package logging.
type LoggingSettings struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		IO: IOSettings{
			DefaultCSVDelimiter: ",",
			DefaultExcelSheet:   "Sheet1",
			DefaultItemColumn:   "name",
			MaxReportedErrors:   5,
		},
		API: APISettings{
			FMPBaseURL:     "https://financialmodelingprep.com/api/v3",
			TimeoutSeconds: 30,
			ValidateAPIKey: true,
		},
		Store: StoreSettings{
			Dir: ".cache/graphs",
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

// Load builds settings from defaults, the YAML file at path (skipped when
// path is empty) and environment overrides.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}
	}

	applyEnv(s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func applyEnv(s *Settings) {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		s.Store.DatabaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		s.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv(EnvAPITimeout); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.API.TimeoutSeconds = n
		}
	}
}

// Validate checks the settings for values the I/O layer cannot work with.
func (s *Settings) Validate() error {
	if len([]rune(s.IO.DefaultCSVDelimiter)) != 1 {
		return fmt.Errorf("io.default_csv_delimiter must be a single character, got %q", s.IO.DefaultCSVDelimiter)
	}
	if s.IO.DefaultExcelSheet == "" {
		return fmt.Errorf("io.default_excel_sheet cannot be empty")
	}
	if s.IO.MaxReportedErrors < 1 {
		return fmt.Errorf("io.max_reported_errors must be >= 1, got %d", s.IO.MaxReportedErrors)
	}
	if s.API.TimeoutSeconds < 1 {
		return fmt.Errorf("api.timeout_seconds must be >= 1, got %d", s.API.TimeoutSeconds)
	}
	return nil
}

var (
	current *Settings
	mu      sync.RWMutex
	once    sync.Once
)

// Get returns the global settings, loading them on first use. A broken
// settings file falls back to defaults so that lookups never fail.
func Get() *Settings {
	once.Do(func() {
		_ = godotenv.Load()

		s, err := Load(os.Getenv(EnvConfigFile))
		if err != nil {
			fmt.Fprintf(os.Stderr, "[config] Warning: %v, using defaults\n", err)
			s = Default()
			applyEnv(s)
		}
		mu.Lock()
		if current == nil {
			current = s
		}
		mu.Unlock()
	})

	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Set replaces the global settings. Intended for process start-up and tests.
func Set(s *Settings) {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	current = s
}
