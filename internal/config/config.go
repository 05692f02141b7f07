// Package config provides functionality for loading and accessing
// environment variables alongside the Viper-based configuration.
package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"

	"github.com/nessita/cgem/internal/logging"
)

var once sync.Once

// LoadEnv loads environment variables from a .env file if one exists in
// the current or parent directory. Safe to call more than once.
func LoadEnv() {
	once.Do(func() {
		log := logging.GetLogger()

		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				log.Debug("no .env file found, using environment variables")
				return
			}
		}

		if err := godotenv.Load(envFile); err != nil {
			log.WithError(err).Warn("error loading .env file")
			return
		}
		log.Info("loaded environment variables", logging.Field{Key: "file", Value: envFile})
	})
}

// GetEnv retrieves an environment variable with a fallback value if not set.
func GetEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// ConfigureLogging builds the application logger from the configuration
// and installs it as the package default.
func ConfigureLogging(config *Config) logging.Logger {
	logger := logging.NewLogrusAdapter(config.Log.Level, config.Log.Format)
	logging.SetDefault(logger)
	return logger
}
