package config

import "errors"

// Sentinel error kinds. Load and Validate wrap these so callers can use errors.Is.
var (
	// ErrInvalidConfig marks a configuration that loaded but failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig marks a source (file, dotenv, env) that could not be read.
	ErrLoadConfig = errors.New("load config failed")
)
