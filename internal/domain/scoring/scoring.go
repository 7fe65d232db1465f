// Package scoring defines the contract for the external pass that assigns
// scores to a day's captions, and an HTTP client for it.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultSecretHeader = "x-cron-secret"
	defaultTimeout      = 30 * time.Second
	defaultAttempts     = 3
	defaultRetryDelay   = 500 * time.Millisecond
	maxBodyBytes        = 4 << 20
)

// Result is one scoring pass: caption text -> score.
type Result struct {
	Date   string
	Scores map[string]float64
}

// Scorer computes scores for every caption of a date.
type Scorer interface {
	// Score runs one pass, honoring ctx for cancellation.
	Score(ctx context.Context, date string) (Result, error)
}

// response is the collaborator's JSON reply.
type response struct {
	Success bool               `json:"success"`
	Scores  map[string]float64 `json:"scores"`
	Error   string             `json:"error"`
}

// HTTPScorer calls the scoring collaborator over HTTP.
type HTTPScorer struct {
	endpoint     string
	secretHeader string
	secret       string
	timeout      time.Duration
	attempts     int
	retryDelay   time.Duration
	client       *http.Client
	logger       logger.Logger
}

var _ Scorer = (*HTTPScorer)(nil)

// NewHTTPScorer creates a client for the collaborator at endpoint.
func NewHTTPScorer(endpoint string, opts ...Option) *HTTPScorer {
	s := &HTTPScorer{
		endpoint:     endpoint,
		secretHeader: defaultSecretHeader,
		timeout:      defaultTimeout,
		attempts:     defaultAttempts,
		retryDelay:   defaultRetryDelay,
		client:       &http.Client{},
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score asks the collaborator to score date. Failed attempts are retried a
// fixed number of times; 4xx replies are not retried.
func (s *HTTPScorer) Score(ctx context.Context, date string) (Result, error) {
	const op = "scoring.score"
	if s.endpoint == "" {
		return Result{}, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		if attempt > 1 {
			metrics.RecordComputeRetry()
			select {
			case <-ctx.Done():
				return Result{}, fmt.Errorf("%s: %w", op, ctx.Err())
			case <-time.After(s.retryDelay):
			}
		}

		scores, retry, err := s.call(ctx, date)
		if err == nil {
			return Result{Date: date, Scores: scores}, nil
		}
		lastErr = err
		s.logger.Warn(ctx, "scoring attempt failed",
			logger.String("date", date),
			logger.Int("attempt", attempt),
			logger.Int("attempts", s.attempts),
			logger.Error(err),
		)
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return Result{}, fmt.Errorf("%s: %s: %w", op, date, lastErr)
}

// call makes one attempt and reports whether a failure is worth retrying.
func (s *HTTPScorer) call(ctx context.Context, date string) (map[string]float64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	u, err := url.Parse(s.endpoint)
	if err != nil {
		return nil, false, fmt.Errorf("%w: endpoint: %w", ErrUpstream, err)
	}
	q := u.Query()
	q.Set("date", date)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.secret != "" {
		req.Header.Set(s.secretHeader, s.secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, retry, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, true, fmt.Errorf("%w: decode: %w", ErrUpstream, err)
	}
	if !r.Success {
		msg := r.Error
		if msg == "" {
			msg = "success=false"
		}
		return nil, true, fmt.Errorf("%w: %s", ErrUpstream, msg)
	}
	if r.Scores == nil {
		r.Scores = map[string]float64{}
	}
	return r.Scores, false, nil
}
