package seeder

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/captionboard/pkg/logger"
)

// Run defaults.
const (
	defaultWorkers = 8
	defaultTimeout = 10 * time.Second
	// leaderboardLimit matches the server's default cap; runs larger than
	// this verify ordering only.
	leaderboardLimit = 100
)

type runner struct {
	logger     logger.Logger
	httpClient *http.Client
}

// Run submits cfg.Count captions concurrently, optionally triggers a scoring
// pass, then fetches the leaderboard and verifies it.
func Run(ctx context.Context, cfg Config, opts ...Option) (stats Stats, err error) {
	r := &runner{logger: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = min(defaultWorkers, runtime.NumCPU()*2)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	stats.StartTime = time.Now()
	defer func() { stats.Duration = time.Since(stats.StartTime) }()
	c := newClient(r.httpClient, cfg.BaseURL, cfg.Timeout)

	r.logger.Info(ctx, "starting seed run",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("date", cfg.Date),
		logger.Int("count", cfg.Count),
		logger.Int("workers", cfg.Workers),
	)

	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	subs := generate(cfg.Date, cfg.Count)
	stats.Generated = len(subs)

	accepted, failed, err := r.submitAll(ctx, c, subs, cfg.Workers)
	stats.Submitted = len(accepted)
	stats.Failed = failed
	if err != nil {
		return stats, err
	}

	if cfg.Compute {
		n, err := c.compute(ctx, cfg.Date, cfg.SecretHeader, cfg.Secret)
		if err != nil {
			return stats, fmt.Errorf("%w: %w", ErrCompute, err)
		}
		stats.Computed = n
	}

	entries, err := c.leaderboard(ctx, cfg.Date, leaderboardLimit)
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	stats.Entries = len(entries)

	if err := verifyOrdering(cfg.Date, entries); err != nil {
		return stats, err
	}
	if len(entries) < leaderboardLimit {
		if err := verifyPresent(accepted, entries); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	r.logger.Info(ctx, "seed run verified",
		logger.Int("submitted", stats.Submitted),
		logger.Int("failed", stats.Failed),
		logger.Int("computed", stats.Computed),
		logger.Int("entries", stats.Entries),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// submitAll posts subs with at most workers requests in flight. Individual
// failures are counted; the run only aborts when ctx ends.
func (r *runner) submitAll(ctx context.Context, c *client, subs []Submission, workers int) ([]Submission, int, error) {
	var (
		mu       sync.Mutex
		accepted = make([]Submission, 0, len(subs))
		failed   atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, sub := range subs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := c.submit(gctx, sub); err != nil {
				failed.Add(1)
				r.logger.Debug(gctx, "submission rejected",
					logger.String("user_id", sub.UserID),
					logger.Error(err),
				)
				return nil
			}
			mu.Lock()
			accepted = append(accepted, sub)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return accepted, int(failed.Load()), fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	if n := int(failed.Load()); n > 0 {
		if n == len(subs) {
			return accepted, n, fmt.Errorf("%w: all %d submissions rejected", ErrSubmit, n)
		}
		r.logger.Warn(ctx, "some submissions failed", logger.Int("failed", n))
	}
	return accepted, int(failed.Load()), nil
}
