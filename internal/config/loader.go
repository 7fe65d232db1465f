package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment keys that steer loading itself.
const (
	envPrefix  = "CAPTIONBOARD_"
	envConfig  = envPrefix + "CONFIG"
	envEnvFile = envPrefix + "ENV_FILE"
)

// Load builds a Config by layering sources. Precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if CAPTIONBOARD_CONFIG is set
//  3. dotenv file if CAPTIONBOARD_ENV_FILE is set (never overrides real env)
//  4. env (prefix CAPTIONBOARD_)
func Load(_ context.Context) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if path := os.Getenv(envEnvFile); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// CAPTIONBOARD_DATA_DIR -> data_dir; underscores are kept to match koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// loader control keys are not config fields
	k.Delete("config")
	k.Delete("env_file")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.DefaultLimit < 1:
		return fmt.Errorf("%w: default_limit must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < c.DefaultLimit:
		return fmt.Errorf("%w: max_leaderboard_limit must be >= default_limit", ErrInvalidConfig)
	case c.ComputeRetries < 1:
		return fmt.Errorf("%w: compute_retries must be at least 1", ErrInvalidConfig)
	case c.ComputeURL != "" && c.ComputeSecret == "":
		return fmt.Errorf("%w: compute_secret is required when compute_url is set", ErrInvalidConfig)
	}
	return nil
}
