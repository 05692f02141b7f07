// Package config provides Viper-based hierarchical configuration management.
package config

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Database struct {
		Path string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"database" yaml:"database"`

	Accounts struct {
		File string `mapstructure:"file" yaml:"file"`
	} `mapstructure:"accounts" yaml:"accounts"`

	CSV struct {
		Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"csv" yaml:"csv"`

	Import struct {
		DefaultTag string `mapstructure:"default_tag" yaml:"default_tag"`
	} `mapstructure:"import" yaml:"import"`
}

// InitializeConfig initializes Viper configuration with hierarchical
// loading: defaults, then config file, then CGEM_* environment variables.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// CGEM_CONFIG points at an explicit config file, bypassing the search
	// path.
	if file := GetEnv("CGEM_CONFIG", ""); file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.cgem")
		v.AddConfigPath(".cgem")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CGEM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Continue with defaults and env vars on a broken config file.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("database.path", "cgem.db")
	v.SetDefault("accounts.file", "accounts.yaml")

	v.SetDefault("csv.delimiter", ",")

	v.SetDefault("import.default_tag", "imported")
}

// validateConfig validates the configuration values.
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len(config.CSV.Delimiter) != 1 {
		return fmt.Errorf("CSV delimiter must be a single character, got: %s", config.CSV.Delimiter)
	}

	if config.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}

	if config.Import.DefaultTag == "" {
		return fmt.Errorf("import.default_tag must not be empty")
	}

	return nil
}

// DelimiterRune returns the configured CSV delimiter as a rune.
func (c *Config) DelimiterRune() rune {
	return []rune(c.CSV.Delimiter)[0]
}
