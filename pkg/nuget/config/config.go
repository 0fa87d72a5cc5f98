// Package config loads the server process's configuration from YAML, in the same
// fillDefaults() style the house pep503 Simple Repository API client uses to fill in
// unset fields after unmarshaling.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config is the server process's configuration.
type Config struct {
	// ListenAddr is the address the HTTP server listens on, e.g. ":8080".
	ListenAddr string `yaml:"listenAddr"`

	// BaseURL is the externally-visible base URL used to build absolute
	// packageContent URLs, e.g. "https://nuget.example.com".
	BaseURL string `yaml:"baseURL"`

	// StoreDir, if set, roots an on-disk mirror of the blob store. If empty, the
	// store is purely in-memory.
	StoreDir string `yaml:"storeDir"`
}

const (
	defaultListenAddr = ":8080"
	defaultBaseURL    = "http://localhost:8080"
)

func (c *Config) fillDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
}

// Load reads and parses the YAML config file at path. A missing file is not an error;
// it yields a Config with defaults filled in.
func Load(path string) (Config, error) {
	var c Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				c.fillDefaults()
				return c, nil
			}
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	c.fillDefaults()
	return c, nil
}
