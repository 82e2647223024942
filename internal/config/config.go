package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Scanner  ScannerConfig  `json:"scanner" yaml:"scanner"`
	Fallback FallbackConfig `json:"fallback" yaml:"fallback"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

type ServerConfig struct {
	Port              int    `json:"port" yaml:"port"`
	Host              string `json:"host" yaml:"host"`
	TemplatesDir      string `json:"templates_dir" yaml:"templates_dir"`
	StaticDir         string `json:"static_dir" yaml:"static_dir"`
	ShutdownTimeoutMs int    `json:"shutdown_timeout_ms" yaml:"shutdown_timeout_ms"`
}

// ScannerConfig holds the redirect and polling policy of a scan session.
type ScannerConfig struct {
	Profile             string `json:"profile" yaml:"profile"`
	BareHostnameMatch   bool   `json:"bare_hostname_match" yaml:"bare_hostname_match"`
	AutoRedirectDefault bool   `json:"auto_redirect_default" yaml:"auto_redirect_default"`
	RedirectDelayMs     int    `json:"redirect_delay_ms" yaml:"redirect_delay_ms"`
	PollIntervalMs      int    `json:"poll_interval_ms" yaml:"poll_interval_ms"`
}

type FallbackConfig struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	File        string `json:"file" yaml:"file"`
	Environment string `json:"environment" yaml:"environment"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// Scanner profiles. "default" follows the page that always redirects,
// "toggle" the variant where the user opts in with a checkbox.
const (
	ProfileDefault = "default"
	ProfileToggle  = "toggle"
)

var ErrInvalidConfig = errors.New("invalid configuration")

func LoadConfig(path string) (*Config, error) {
	// Start with default config
	config := getDefaultConfig()

	// Override with environment variables if they exist
	loadFromEnvironment(config)

	if path == "" {
		return config, config.Validate()
	}

	// Try to load from file if it exists
	data, err := os.ReadFile(path)
	if err == nil {
		if err := decodeConfig(path, data, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		// Override again with environment variables to give them priority
		loadFromEnvironment(config)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return config, config.Validate()
}

// decodeConfig applies a config file. A scanner profile named in the file
// seeds the scanner section first, so the file only overrides the fields it
// states.
func decodeConfig(path string, data []byte, config *Config) error {
	unmarshal := json.Unmarshal
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	}

	var preset struct {
		Scanner struct {
			Profile string `json:"profile" yaml:"profile"`
		} `json:"scanner" yaml:"scanner"`
	}
	if err := unmarshal(data, &preset); err != nil {
		return err
	}
	if preset.Scanner.Profile != "" {
		config.Scanner = ScannerProfile(preset.Scanner.Profile)
	}

	return unmarshal(data, config)
}

func (c *Config) Save(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the values the server and scan sessions depend on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be in 1..65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Scanner.PollIntervalMs <= 0 {
		return fmt.Errorf("%w: scanner.poll_interval_ms must be > 0", ErrInvalidConfig)
	}
	if c.Scanner.RedirectDelayMs < 0 {
		return fmt.Errorf("%w: scanner.redirect_delay_ms must be >= 0", ErrInvalidConfig)
	}
	if c.Fallback.Enabled {
		if c.Fallback.RequestsPerSecond <= 0 {
			return fmt.Errorf("%w: fallback.requests_per_second must be > 0", ErrInvalidConfig)
		}
		if c.Fallback.Burst <= 0 {
			return fmt.Errorf("%w: fallback.burst must be > 0", ErrInvalidConfig)
		}
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (s ScannerConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

func (s ScannerConfig) RedirectDelay() time.Duration {
	return time.Duration(s.RedirectDelayMs) * time.Millisecond
}

func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeoutMs) * time.Millisecond
}

// ScannerProfile returns the preset for a named profile. Unknown names fall
// back to the default profile.
func ScannerProfile(name string) ScannerConfig {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProfileToggle:
		return ScannerConfig{
			Profile:             ProfileToggle,
			BareHostnameMatch:   false,
			AutoRedirectDefault: false,
			RedirectDelayMs:     400,
			PollIntervalMs:      200,
		}
	default:
		return ScannerConfig{
			Profile:             ProfileDefault,
			BareHostnameMatch:   true,
			AutoRedirectDefault: true,
			RedirectDelayMs:     500,
			PollIntervalMs:      200,
		}
	}
}

func getDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              3000,
			Host:              "localhost",
			TemplatesDir:      "web/templates",
			StaticDir:         "web/static",
			ShutdownTimeoutMs: 5000,
		},
		Scanner: ScannerProfile(ProfileDefault),
		Fallback: FallbackConfig{
			Enabled:           false,
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Logging: LoggingConfig{
			Level:       "info",
			File:        "stdout",
			Environment: "development",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *Config) {
	// Server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	// Scanner configuration. The profile is applied first so that the
	// individual variables can refine it.
	if profile := os.Getenv("SCANNER_PROFILE"); profile != "" {
		config.Scanner = ScannerProfile(profile)
	}
	if bare := os.Getenv("SCANNER_BARE_HOSTNAME"); bare != "" {
		config.Scanner.BareHostnameMatch = bare == "true"
	}
	if redirect := os.Getenv("SCANNER_AUTO_REDIRECT"); redirect != "" {
		config.Scanner.AutoRedirectDefault = redirect == "true"
	}
	if delay := os.Getenv("SCANNER_REDIRECT_DELAY_MS"); delay != "" {
		if d, err := strconv.Atoi(delay); err == nil {
			config.Scanner.RedirectDelayMs = d
		}
	}
	if interval := os.Getenv("SCANNER_POLL_INTERVAL_MS"); interval != "" {
		if i, err := strconv.Atoi(interval); err == nil {
			config.Scanner.PollIntervalMs = i
		}
	}

	if enabled := os.Getenv("SCAN_FALLBACK_ENABLED"); enabled != "" {
		config.Fallback.Enabled = enabled == "true"
	}

	// Logging configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if file := os.Getenv("LOG_FILE"); file != "" {
		config.Logging.File = file
	}

	if enabled := os.Getenv("METRICS_ENABLED"); enabled != "" {
		config.Metrics.Enabled = enabled == "true"
	}
}
