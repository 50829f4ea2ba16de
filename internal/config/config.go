// Package config loads the optional pipext configuration file.
//
// The file is TOML, looked up at $XDG_CONFIG_HOME/pipext/config.toml (or
// ~/.config/pipext/config.toml) unless an explicit path is given. A missing
// default file is not an error; every field has a working default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/pipext/pipext/pkg/errors"
)

const appName = "pipext"

// Config holds the tunable endpoints and HTTP behavior.
type Config struct {
	IndexURL       string `toml:"index_url"`       // PyPI JSON API base
	GitHubAPIURL   string `toml:"github_api_url"`  // GitHub REST API base
	GitHubRawURL   string `toml:"github_raw_url"`  // raw.githubusercontent.com base
	GitHubToken    string `toml:"github_token"`    // optional; GITHUB_TOKEN env wins when set
	TimeoutSeconds int    `toml:"timeout_seconds"` // per-request HTTP timeout
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		IndexURL:       "https://pypi.org/pypi",
		GitHubAPIURL:   "https://api.github.com",
		GitHubRawURL:   "https://raw.githubusercontent.com",
		TimeoutSeconds: 10,
	}
}

// Load reads the configuration from path. An empty path means the default
// location, where a missing file silently yields [Default]; an explicit path
// that does not exist is an error. The GITHUB_TOKEN environment variable
// overrides the file's github_token.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = defaultPath(); err != nil {
			return applyEnv(cfg), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return applyEnv(cfg), nil
		}
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	cfg = applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configured endpoints are usable.
func (c Config) Validate() error {
	for _, u := range []string{c.IndexURL, c.GitHubAPIURL, c.GitHubRawURL} {
		if err := errors.ValidateURL(u); err != nil {
			return err
		}
	}
	if c.TimeoutSeconds <= 0 {
		return errors.New(errors.ErrCodeInvalidInput, "timeout_seconds must be positive")
	}
	return nil
}

func applyEnv(cfg Config) Config {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHubToken = token
	}
	return cfg
}

// defaultPath returns the config file path using the XDG standard
// (~/.config/pipext/config.toml).
func defaultPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
