// internal/config/config.go
//
// This package handles configuration and the .veridoc directory structure.
// Every directory veridoc runs from gets a .veridoc/ folder holding the
// config file and logs.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// VeridocDir is the name of the directory we create in each workspace
	VeridocDir = ".veridoc"

	defaultAPIURL = "http://localhost:8000"

	// EnvAPIURL overrides the configured backend address when set.
	EnvAPIURL = "VERIDOC_API_URL"
)

const defaultConfigYAML = `# veridoc configuration
version: 1

# Base URL of the correction backend. Can be overridden with VERIDOC_API_URL.
api_url: http://localhost:8000
`

// FileConfig models .veridoc/config.yaml.
type FileConfig struct {
	Version int    `yaml:"version"`
	APIURL  string `yaml:"api_url"`
}

// Config holds the runtime configuration for veridoc.
type Config struct {
	// WorkDir is the directory where the user ran `veridoc` from
	WorkDir string

	// VeridocWorkDir is WorkDir/.veridoc
	VeridocWorkDir string

	File FileConfig
}

// InitVeridocDir creates the .veridoc directory structure in the given
// workspace and seeds a commented config.yaml on first run.
//
// Structure created:
// .veridoc/
// ├── logs/         <- Request and session activity log
// └── config.yaml   <- Backend address
func InitVeridocDir(workDir string) error {
	veridocDir := filepath.Join(workDir, VeridocDir)
	if err := os.MkdirAll(filepath.Join(veridocDir, "logs"), 0755); err != nil {
		return err
	}
	return ensureConfigFile(filepath.Join(veridocDir, "config.yaml"))
}

// New creates a Config for the given workspace, loading config.yaml when
// present and applying environment overrides.
func New(workDir string) (*Config, error) {
	cfg := &Config{
		WorkDir:        workDir,
		VeridocWorkDir: filepath.Join(workDir, VeridocDir),
		File:           defaultFileConfig(),
	}
	if err := cfg.loadFileConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// APIURL returns the backend base address after overrides.
func (c *Config) APIURL() string {
	return c.File.APIURL
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.VeridocWorkDir, "logs")
}

// ConfigPath returns the on-disk location for the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.VeridocWorkDir, "config.yaml")
}

func defaultFileConfig() FileConfig {
	return FileConfig{Version: 1, APIURL: defaultAPIURL}
}

// loadFileConfig reads config.yaml if it exists. A missing file keeps the
// defaults; a malformed file is an error rather than a silent fallback.
func (c *Config) loadFileConfig() error {
	data, err := os.ReadFile(c.ConfigPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", c.ConfigPath(), err)
	}
	var file FileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parse %s: %w", c.ConfigPath(), err)
	}
	if url := strings.TrimSpace(file.APIURL); url != "" {
		c.File.APIURL = strings.TrimRight(url, "/")
	}
	if file.Version != 0 {
		c.File.Version = file.Version
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := strings.TrimSpace(os.Getenv(EnvAPIURL)); url != "" {
		c.File.APIURL = strings.TrimRight(url, "/")
	}
}

// ensureConfigFile writes the default config.yaml when none exists yet.
func ensureConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}
