package api

import "github.com/okian/captionboard/pkg/logger"

const (
	defaultMaxLimit     = 100
	defaultSecretHeader = "x-cron-secret"
)

type serverConfig struct {
	maxLimit     int
	secretHeader string
	secret       string
	logger       logger.Logger
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		maxLimit:     defaultMaxLimit,
		secretHeader: defaultSecretHeader,
		logger:       logger.Nop(),
	}
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

// WithMaxLimit caps the leaderboard size a client may request.
func WithMaxLimit(n int) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithComputeSecret sets the shared secret the compute trigger requires.
// An empty secret leaves the trigger closed.
func WithComputeSecret(header, secret string) Option {
	return func(c *serverConfig) {
		if header != "" {
			c.secretHeader = header
		}
		c.secret = secret
	}
}

// WithLogger sets the logger handlers use for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}
