// Package config provides environment-based configuration for the preview gateway.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the preview gateway.
type Config struct {
	// Authentication
	JWTSecret  string
	TokenParam string

	// Server configuration
	APIHost string
	APIPort int

	// ExternalOrigin is the scheme://host the gateway is reachable at from
	// the browser. Used when rewriting embedded live-reload socket URLs.
	ExternalOrigin string

	// WorkspaceRoot is the directory holding per-project synced workspaces.
	WorkspaceRoot string

	// LauncherEndpoint is the base URL of the external instance launcher.
	// When empty, a static launcher bound to StaticPreviewAddress is used.
	LauncherEndpoint     string
	StaticPreviewAddress string

	// Timeouts
	UpstreamTimeout    time.Duration
	InspectionTimeout  time.Duration
	LaunchTimeout      time.Duration
	ShutdownTimeout    time.Duration

	// ClassifierRulesPath optionally points at a YAML file overriding the
	// built-in asset classification tables.
	ClassifierRulesPath string
}

// ClassifierRules describes which request paths count as static assets.
type ClassifierRules struct {
	Extensions   []string `yaml:"extensions"`
	PathPrefixes []string `yaml:"path_prefixes"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		JWTSecret:            getEnv("JWT_SECRET", ""),
		TokenParam:           getEnv("TOKEN_PARAM", "token"),
		APIHost:              getEnv("API_HOST", "0.0.0.0"),
		APIPort:              getIntEnv("API_PORT", 8080),
		ExternalOrigin:       getEnv("EXTERNAL_ORIGIN", ""),
		WorkspaceRoot:        getEnv("WORKSPACE_ROOT", "/tmp/preview-workspaces"),
		LauncherEndpoint:     getEnv("LAUNCHER_ENDPOINT", ""),
		StaticPreviewAddress: getEnv("STATIC_PREVIEW_ADDRESS", "127.0.0.1:5173"),
		UpstreamTimeout:      getDurationEnv("UPSTREAM_TIMEOUT", 15*time.Second),
		InspectionTimeout:    getDurationEnv("INSPECTION_TIMEOUT", 10*time.Second),
		LaunchTimeout:        getDurationEnv("LAUNCH_TIMEOUT", 2*time.Minute),
		ShutdownTimeout:      getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
		ClassifierRulesPath:  getEnv("CLASSIFIER_RULES", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	return nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg, _ := Load()
	if cfg == nil {
		cfg = &Config{
			JWTSecret:            "development-secret-do-not-use-in-production",
			TokenParam:           "token",
			APIHost:              "0.0.0.0",
			APIPort:              8080,
			WorkspaceRoot:        "/tmp/preview-workspaces",
			StaticPreviewAddress: "127.0.0.1:5173",
			UpstreamTimeout:      15 * time.Second,
			InspectionTimeout:    10 * time.Second,
			LaunchTimeout:        2 * time.Minute,
			ShutdownTimeout:      30 * time.Second,
		}
	}
	return cfg
}

// LoadClassifierRules reads the optional YAML rules file. A missing path
// returns nil rules so callers fall back to the built-in tables.
func (c *Config) LoadClassifierRules() (*ClassifierRules, error) {
	if c.ClassifierRulesPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.ClassifierRulesPath)
	if err != nil {
		return nil, fmt.Errorf("reading classifier rules: %w", err)
	}
	var rules ClassifierRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing classifier rules: %w", err)
	}
	return &rules, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
