package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/studybuddy/internal/errors"
)

// EnvPrefix is the prefix of environment overrides, e.g. STUDY_GEMINI_API_KEY.
const EnvPrefix = "STUDY"

// LoadConfig loads and validates configuration from:
//  1. Default values
//  2. the YAML file at path (optional, a missing file is not an error)
//  3. a .env file in the working directory (optional)
//  4. STUDY_* environment variables
func LoadConfig(path string) (*Config, error) {
	startTime := time.Now()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewConfigError("failed to load .env file", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read config file %q", path), err)
			}
			slog.Debug("Configuration file not found, using defaults and environment", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse configuration", err)
	}

	// GEMINI_API_KEY is the variable the Gemini tooling uses.
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slog.Debug("Configuration loaded",
		"model", cfg.Gemini.ModelName,
		"memory_backend", cfg.Memory.Backend,
		"telegram_enabled", cfg.Telegram.Enabled,
		"duration", time.Since(startTime))

	return cfg, nil
}
