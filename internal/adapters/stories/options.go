package stories

import (
	"net/http"
	"time"

	"github.com/okian/captionboard/pkg/logger"
)

// CacheOption configures a Cache.
type CacheOption func(*cacheConfig)

type cacheConfig struct {
	name   string
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

// WithTTL sets how long a fetched value is served before it is refreshed.
func WithTTL(d time.Duration) CacheOption {
	return func(c *cacheConfig) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithName sets the cache label used in metrics and logs.
func WithName(name string) CacheOption {
	return func(c *cacheConfig) {
		if name != "" {
			c.name = name
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) CacheOption {
	return func(c *cacheConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) CacheOption {
	return func(c *cacheConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// FetcherOption configures an HTTPFetcher.
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}
