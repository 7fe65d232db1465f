package stories

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxFeedBytes = 8 << 20

// Story is one community story as published upstream. The service does not
// own the schema and passes each object through unchanged.
type Story = json.RawMessage

// HTTPFetcher loads the stories feed, a JSON array, from a URL.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for url.
func NewHTTPFetcher(url string, opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{url: url, client: &http.Client{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns the feed. An empty URL yields an empty feed.
func (f *HTTPFetcher) Fetch(ctx context.Context) ([]Story, error) {
	const op = "stories.fetch"
	if f.url == "" {
		return []Story{}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: status %d", op, ErrFetch, resp.StatusCode)
	}

	var out []Story
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: %w: decode: %w", op, ErrFetch, err)
	}
	if out == nil {
		out = []Story{}
	}
	return out, nil
}
