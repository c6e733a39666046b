// Package config loads application settings from a YAML file, overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ammar0144/repokit/pkg/cache"
	"github.com/ammar0144/repokit/pkg/db"
	"github.com/ammar0144/repokit/pkg/logging"
)

// Config is the root application configuration
type Config struct {
	App      AppConfig      `json:"app" yaml:"app"`
	Database db.Config      `json:"database" yaml:"database"`
	Cache    cache.Config   `json:"cache" yaml:"cache"`
	Log      logging.Config `json:"log" yaml:"log"`
}

// AppConfig holds settings shared by services
type AppConfig struct {
	Name string `json:"name" yaml:"name" env:"APP_NAME"`
	// BaseURL prefixes pagination links
	BaseURL string `json:"base_url" yaml:"base_url" env:"APP_BASE_URL"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	dbCfg := db.DefaultConfig()
	dbCfg.Database = "repokit"
	dbCfg.Username = "root"

	return &Config{
		App:      AppConfig{Name: "repokit", BaseURL: "/"},
		Database: *dbCfg,
		Cache:    *cache.DefaultConfig(),
		Log:      logging.Config{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at path,
// and environment variables, in that order of precedence (last wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv overlays environment variables onto target
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadEnvFiles loads dotenv files into the process environment.
// Missing files are ignored; existing variables are not overridden.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
