package service

import (
	"time"

	"github.com/okian/captionboard/internal/adapters/stories"
	"github.com/okian/captionboard/internal/domain/scoring"
	"github.com/okian/captionboard/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScorer sets the collaborator used by scoring passes.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}

// WithStories sets the community stories cache.
func WithStories(c *stories.Cache[[]stories.Story]) Option {
	return func(s *Service) {
		s.stories = c
	}
}

// WithDefaultLimit sets the leaderboard size used when none is requested.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the leaderboard size; 0 disables the cap.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxLimit = n
		}
	}
}

// WithWriteRetries sets how many times a conflicting write is retried.
func WithWriteRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.writeRetries = n
		}
	}
}

// WithAutoCompute makes leaderboard reads run a scoring pass first for
// dates that are not yet computed.
func WithAutoCompute(enabled bool) Option {
	return func(s *Service) {
		s.autoCompute = enabled
	}
}

// WithComputeOnSubmit queues a background scoring pass after each submission.
func WithComputeOnSubmit(enabled bool) Option {
	return func(s *Service) {
		s.computeOnSubmit = enabled
	}
}

// WithWorkerCount sets the number of compute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending compute jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds how many dates can have a pending job at once.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithClock replaces time.Now for submission timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
