// Package config loads and hot-reloads the foldersync configuration: the
// server base URL, sync root path, and auth token (spec §6), plus the
// supplemental ignore-pattern file described in SPEC_FULL §2.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config is the resolved configuration the worker is constructed with
// (spec §6: "{ server_base_url, sync_root_path, auth_token }"). The JSON
// tags match the on-disk config file's field names exactly.
type Config struct {
	ServerBaseURL  string `json:"server_url,omitempty"`
	SyncRootPath   string `json:"sync_path,omitempty"`
	AuthToken      string `json:"auth_token,omitempty"`
	SetupCompleted bool   `json:"setup_completed"`
}

// Load reads a Config from the JSON file at path, applies tilde expansion
// to SyncRootPath, and layers in any environment variable overrides. A
// missing file is not an error — it returns a zero-value Config so a
// first-run setup flow can populate it.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, jsonErr)
		}
	case os.IsNotExist(err):
		// First run: empty config, caller decides how to populate it.
	default:
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	ApplyEnvOverrides(cfg, ReadEnvOverrides())

	cfg.SyncRootPath = ExpandTilde(cfg.SyncRootPath)

	return cfg, nil
}

// Save writes cfg as JSON to path, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: creating directory for %s: %w", path, err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}

	return nil
}

// ExpandTilde expands a leading "~" or "~/" to the current user's home
// directory. Mirrors spec §6: "tilde expansion (~/) is applied to
// sync_root_path".
func ExpandTilde(p string) string {
	if p == "" {
		return p
	}

	if p == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}

		return p
	}

	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}

	return p
}

// Validate reports whether cfg has the fields required to run the worker.
func (c *Config) Validate() error {
	if c.ServerBaseURL == "" {
		return fmt.Errorf("config: server_url is required")
	}

	if c.SyncRootPath == "" {
		return fmt.Errorf("config: sync_path is required")
	}

	if c.AuthToken == "" {
		return fmt.Errorf("config: auth_token is required")
	}

	return nil
}
