// Package config loads application configuration from the environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"
)

// Config holds application configuration
type Config struct {
	// Server settings
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	Debug      bool   `envconfig:"DEBUG" default:"false"`

	// Base URL of the Finance Insights backend API. All /api/* calls are made
	// against this origin.
	BackendURL string `envconfig:"BACKEND_URL" default:"http://localhost:8000"`

	// User identity used for auto-loads and theme propagation
	DefaultUserID string `envconfig:"DEFAULT_USER" default:"default_user"`

	// Local preference cache
	PrefsCacheKey string `envconfig:"PREFS_KEY" default:"user_prefs"`
	Passphrase    string `envconfig:"PASSPHRASE"`

	// Directories
	DataDirectory      string `envconfig:"DATA_DIR"`
	SettingsDirectory  string `ignored:"true"`
	TemplatesDirectory string `envconfig:"TEMPLATES_DIR"`
	StaticDirectory    string `envconfig:"STATIC_DIR"`
}

// Load loads configuration from FINSIGHT_* environment variables and fills in
// directory defaults relative to the working directory.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process("finsight", &cfg); err != nil {
		log.Fatal().Err(err).Msg("could not load configuration")
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	if cfg.DataDirectory == "" {
		cfg.DataDirectory = filepath.Join(wd, "data")
	}
	cfg.SettingsDirectory = filepath.Join(cfg.DataDirectory, "settings")
	if cfg.TemplatesDirectory == "" {
		cfg.TemplatesDirectory = filepath.Join(wd, "web", "templates")
	}
	if cfg.StaticDirectory == "" {
		cfg.StaticDirectory = filepath.Join(wd, "web", "static")
	}

	cfg.ensureDirectories()

	return &cfg
}

// ensureDirectories creates required directories if they don't exist
func (c *Config) ensureDirectories() {
	for _, dir := range []string{c.DataDirectory, c.SettingsDirectory} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("could not create directory")
		}
	}
}
