// Package config provides centralized configuration management using Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for agriwizard.
type Config struct {
	APIURL   string        `mapstructure:"api_url" yaml:"api_url"`
	Language string        `mapstructure:"language" yaml:"language"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Listen   string        `mapstructure:"listen" yaml:"listen"`
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string        `mapstructure:"log_file" yaml:"log_file"`
	Events   bool          `mapstructure:"events" yaml:"events"`
	DataDir  string        `mapstructure:"data_dir" yaml:"data_dir"`

	ReportDir string `mapstructure:"report_dir" yaml:"report_dir"`
	Template  string `mapstructure:"template" yaml:"template"`
}

// Defaults returns the configuration used when no file or env var overrides a key.
func Defaults() *Config {
	return &Config{
		APIURL:   "http://localhost:8000",
		Language: "en",
		Timeout:  10 * time.Second,
		Listen:   "127.0.0.1:8080",
		LogLevel: "info",
		LogFile:  "",
		Events:   false,
		DataDir:  ".agriwizard",

		ReportDir: "",
		Template:  "",
	}
}

// Load loads configuration with full precedence:
// ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("agriwizard")

	d := Defaults()
	v.SetDefault("api_url", d.APIURL)
	v.SetDefault("language", d.Language)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("events", d.Events)
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("report_dir", d.ReportDir)
	v.SetDefault("template", d.Template)

	// Setup ENV binding with AGRIWIZARD_ prefix
	v.SetEnvPrefix("AGRIWIZARD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Explicit ENV bindings for better bool/duration parsing
	for _, key := range []string{"api_url", "language", "timeout", "listen", "log_level", "log_file", "events", "data_dir", "report_dir", "template"} {
		if err := v.BindEnv(key, "AGRIWIZARD_"+strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	// Load global config first (if exists)
	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	// Merge project config on top (if exists)
	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that viper cannot type-check on its own.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api_url must not be empty")
	}
	switch c.Language {
	case "en", "hi":
	default:
		return fmt.Errorf("language must be en or hi, got %q", c.Language)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/agriwizard/agriwizard.yml or $XDG_CONFIG_HOME/agriwizard/agriwizard.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agriwizard", "agriwizard.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "agriwizard", "agriwizard.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "agriwizard.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
