package scoring

import (
	"net/http"
	"time"

	"github.com/okian/captionboard/pkg/logger"
)

// Option applies a configuration option to the HTTPScorer.
type Option func(*HTTPScorer)

// WithSecret sets the shared secret and the header that carries it.
func WithSecret(header, secret string) Option {
	return func(s *HTTPScorer) {
		if header != "" {
			s.secretHeader = header
		}
		s.secret = secret
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPScorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets how many attempts are made in total.
func WithRetries(attempts int) Option {
	return func(s *HTTPScorer) {
		if attempts > 0 {
			s.attempts = attempts
		}
	}
}

// WithRetryDelay sets the fixed pause between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(s *HTTPScorer) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPScorer) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *HTTPScorer) {
		if l != nil {
			s.logger = l
		}
	}
}
