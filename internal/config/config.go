// Package config handles the persistent settings of nodeprov.
//
// Configuration is stored as JSON at /etc/nodeprov/config.json. Every
// setting is optional; unset values fall back to the defaults below.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFile is the settings file location.
const DefaultFile = "/etc/nodeprov/config.json"

// Defaults applied when a setting is absent.
const (
	DefaultLogFile        = "/var/log/nodeprov/install.log"
	DefaultHistoryDB      = "/var/lib/nodeprov/nodeprov.db"
	DefaultCredentialsDir = "/root/creds"
	DefaultServiceConfig  = "/etc/nova/nova.conf"
	DefaultInterfacesFile = "/etc/network/interfaces"
	DefaultPackageSource  = "ppa:nova-core/trunk"
)

// pathOverride, when non-empty, replaces the default config file path.
// Intended for testing. Use SetPath / ResetPath to manage.
var pathOverride string

// SetPath overrides the config file path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override, reverting to the default. Intended for testing.
func ResetPath() { pathOverride = "" }

// Config holds operator settings that persist across runs.
type Config struct {
	LogFile        string `json:"log_file,omitempty"`
	HistoryDB      string `json:"history_db,omitempty"`
	CredentialsDir string `json:"credentials_dir,omitempty"`
	ServiceConfig  string `json:"service_config,omitempty"`
	InterfacesFile string `json:"interfaces_file,omitempty"`
	PackageSource  string `json:"package_source,omitempty"`
}

// Resolved returns a copy of c with every unset field replaced by its
// default.
func (c *Config) Resolved() Config {
	out := *c
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&out.LogFile, DefaultLogFile)
	fill(&out.HistoryDB, DefaultHistoryDB)
	fill(&out.CredentialsDir, DefaultCredentialsDir)
	fill(&out.ServiceConfig, DefaultServiceConfig)
	fill(&out.InterfacesFile, DefaultInterfacesFile)
	fill(&out.PackageSource, DefaultPackageSource)
	return out
}

// Path returns the absolute path to the config file.
// If SetPath has been called, that value is returned instead.
func Path() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	return DefaultFile, nil
}

// Load reads the config file from disk and returns the parsed Config.
// If the file does not exist, a zero-value Config is returned (not an error).
func Load() (*Config, error) {
	return loadFrom("")
}

func loadFrom(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk, creating the parent directory if needed.
func (c *Config) Save() error {
	return c.saveTo("")
}

func (c *Config) saveTo(path string) error {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return err
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("config: failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}

	return nil
}

// LoadFrom reads the config from the given path. Intended for testing.
func LoadFrom(path string) (*Config, error) {
	return loadFrom(path)
}

// SaveTo writes the config to the given path. Intended for testing.
func (c *Config) SaveTo(path string) error {
	return c.saveTo(path)
}
