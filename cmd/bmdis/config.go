package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the bmdis configuration file
// (~/.config/bmdis/config.yaml). Pointer fields distinguish "not set"
// from zero values.
type Config struct {
	Format       string `yaml:"format"`
	ContextLines *int   `yaml:"context_lines"`
	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bmdis", "config.yaml")
}

// loadConfig reads the config file if present. A missing or unreadable
// file yields the zero config; bmdis must stay usable without one.
func loadConfig() Config {
	var cfg Config
	path := configPath()
	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyConfig applies config file defaults to flag variables when the
// corresponding CLI flag was not explicitly set.
func applyConfig(c *cli.Command, cfg Config) {
	if cfg.Format != "" && !c.IsSet("format") {
		formatFlag = cfg.Format
	}
	if cfg.ContextLines != nil && !c.IsSet("n") {
		contextLines = *cfg.ContextLines
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}
