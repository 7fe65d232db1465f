package seeder

import (
	"net/http"

	"github.com/okian/captionboard/pkg/logger"
)

// Option configures a run.
type Option func(*runner)

// WithLogger sets the logger used for progress output.
func WithLogger(l logger.Logger) Option {
	return func(r *runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *runner) {
		if c != nil {
			r.httpClient = c
		}
	}
}
