// Package service implements the caption contest operations the HTTP API and
// the admin CLI depend on: ingestion, leaderboard queries, score updates and
// scoring passes.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/okian/captionboard/internal/adapters/mq/queue"
	"github.com/okian/captionboard/internal/adapters/mq/worker"
	"github.com/okian/captionboard/internal/adapters/repository"
	"github.com/okian/captionboard/internal/adapters/stories"
	"github.com/okian/captionboard/internal/domain/dedupe"
	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/internal/domain/ranking"
	"github.com/okian/captionboard/internal/domain/scoring"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultWriteRetries = 5
	defaultMaxLimit     = 100
	defaultQueueSize    = 1024
	defaultDedupeSize   = 10_000
	stopTimeout         = 30 * time.Second
)

// Service implements the API dependencies for the caption contest.
type Service struct {
	mu sync.RWMutex

	// Core components
	records repository.RecordStore
	flags   repository.FlagStore
	scorer  scoring.Scorer
	stories *stories.Cache[[]stories.Story]

	// Compute job pipeline, built by Start
	deduper dedupe.Deduper
	jobs    *queue.InMemoryQueue
	pool    *worker.Pool

	// Configuration
	defaultLimit    int
	maxLimit        int
	writeRetries    int
	autoCompute     bool
	computeOnSubmit bool
	workerCount     int
	queueSize       int
	dedupeSize      int

	validate *validator.Validate
	now      func() time.Time
	started  bool

	logger logger.Logger
}

// New constructs a Service over the given stores.
func New(records repository.RecordStore, flags repository.FlagStore, opts ...Option) *Service {
	s := &Service{
		records:      records,
		flags:        flags,
		defaultLimit: ranking.DefaultLimit,
		maxLimit:     defaultMaxLimit,
		writeRetries: defaultWriteRetries,
		workerCount:  runtime.NumCPU(),
		queueSize:    defaultQueueSize,
		dedupeSize:   defaultDedupeSize,
		validate:     newValidator(),
		now:          time.Now,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the compute job pipeline.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.jobs, s,
		worker.WithReleaser(s.deduper),
		worker.WithLogger(s.logger.Named("compute")),
	)
	// Workers outlive the request that started the service.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "caption service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("autoCompute", s.autoCompute),
		logger.Bool("computeOnSubmit", s.computeOnSubmit),
	)
	return nil
}

// Stop drains pending compute jobs and stops the workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	ctx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	if err := s.pool.Shutdown(ctx); err != nil {
		return fmt.Errorf("service.stop: %w", err)
	}
	s.logger.Info(ctx, "caption service stopped")
	return nil
}

// AddCaption stores a new submission with score 0, stamped with the service
// clock. The same user may submit any number of captions.
func (s *Service) AddCaption(ctx context.Context, sub model.Submission) (model.CaptionRecord, error) {
	const op = "service.add_caption"
	if err := s.validate.StructCtx(ctx, sub); err != nil {
		return model.CaptionRecord{}, fmt.Errorf("%s: %w", op, validationError(err))
	}

	rec := sub.Record(s.now())
	err := s.mutate(ctx, op, rec.ChallengeDate, func(records []model.CaptionRecord) []model.CaptionRecord {
		return append(records, rec)
	})
	if err != nil {
		return model.CaptionRecord{}, err
	}

	metrics.RecordCaptionSubmitted()
	s.logger.Debug(ctx, "caption stored",
		logger.String("user_id", rec.UserID),
		logger.String("date", rec.ChallengeDate),
	)

	if s.computeOnSubmit {
		if !s.TriggerCompute(ctx, rec.ChallengeDate) {
			s.logger.Warn(ctx, "compute job not queued", logger.String("date", rec.ChallengeDate))
		}
	}
	return rec, nil
}

// TopCaptions returns the leaderboard for date: highest score first, earlier
// submission first among equal scores, at most limit entries. A limit of
// zero or less means the default.
func (s *Service) TopCaptions(ctx context.Context, date string, limit int) ([]model.CaptionRecord, error) {
	const op = "service.top_captions"
	if _, err := model.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	if s.autoCompute && s.scorer != nil && !s.flags.IsComputed(ctx, date) {
		if _, err := s.ComputeScores(ctx, date); err != nil {
			s.logger.Warn(ctx, "scoring pass failed; serving current scores",
				logger.String("date", date), logger.Error(err))
		}
	}

	records, err := s.records.Read(ctx, date)
	if err != nil {
		return nil, classifyRead(op, err)
	}
	metrics.RecordLeaderboardRead()
	return ranking.Top(records, date, limit), nil
}

// UpdateScores sets the score of every record of date whose caption is a key
// of scores and leaves the rest alone. Records sharing a caption text all get
// that caption's score. It returns how many records were updated.
func (s *Service) UpdateScores(ctx context.Context, date string, scores map[string]float64) (int, error) {
	const op = "service.update_scores"
	if _, err := model.ParseDate(date); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}

	var updated int
	err := s.mutate(ctx, op, date, func(records []model.CaptionRecord) []model.CaptionRecord {
		updated = 0
		for i := range records {
			if score, ok := scores[records[i].Caption]; ok {
				records[i].Score = score
				updated++
			}
		}
		return records
	})
	if err != nil {
		return 0, err
	}
	metrics.RecordScoresApplied(updated)
	return updated, nil
}

// IsComputed reports whether a scoring pass has completed for date. Any
// problem reading the marker reads as false.
func (s *Service) IsComputed(ctx context.Context, date string) bool {
	return s.flags.IsComputed(ctx, date)
}

// MarkComputed records that date's scoring pass completed.
func (s *Service) MarkComputed(ctx context.Context, date string) error {
	const op = "service.mark_computed"
	if _, err := model.ParseDate(date); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}
	if err := s.flags.MarkComputed(ctx, date); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStorageWrite, err)
	}
	return nil
}

// Status returns date's computed marker and whether a valid one exists.
func (s *Service) Status(ctx context.Context, date string) (model.ComputedMarker, bool, error) {
	if _, err := model.ParseDate(date); err != nil {
		return model.ComputedMarker{}, false, fmt.Errorf("service.status: %w: %w", ErrValidation, err)
	}
	m, ok := s.flags.Status(ctx, date)
	return m, ok, nil
}

// Dates lists every date that has stored state.
func (s *Service) Dates(ctx context.Context) ([]string, error) {
	dates, err := s.records.Dates(ctx)
	if err != nil {
		return nil, classifyRead("service.dates", err)
	}
	return dates, nil
}

// CommunityStories returns the cached community stories feed.
func (s *Service) CommunityStories(ctx context.Context) ([]stories.Story, error) {
	if s.stories == nil {
		return []stories.Story{}, nil
	}
	feed, err := s.stories.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.community_stories: %w: %w", ErrUpstreamCompute, err)
	}
	return feed, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":         s.started,
		"workerCount":     s.workerCount,
		"queueSize":       s.queueSize,
		"dedupeSize":      s.dedupeSize,
		"autoCompute":     s.autoCompute,
		"computeOnSubmit": s.computeOnSubmit,
		"scorer":          s.scorer != nil,
	}
	if s.started {
		stats["queueLength"] = s.jobs.Len(ctx)
		stats["pendingDates"] = s.deduper.Size()
		stats["jobsProcessed"] = s.pool.Processed()
	}
	if dates, err := s.records.Dates(ctx); err == nil {
		stats["dates"] = len(dates)
	}
	return stats
}

// mutate runs a versioned read-modify-write of date's records, retrying when
// another writer got there first.
func (s *Service) mutate(ctx context.Context, op, date string, apply func([]model.CaptionRecord) []model.CaptionRecord) error {
	var lastErr error
	for attempt := 0; attempt < s.writeRetries; attempt++ {
		records, version, err := s.records.ReadVersioned(ctx, date)
		if err != nil {
			return classifyRead(op, err)
		}
		err = s.records.WriteIfVersion(ctx, apply(records), date, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return classifyWrite(op, err)
		}
		lastErr = err
		s.logger.Debug(ctx, "write conflict; retrying",
			logger.String("date", date), logger.Int("attempt", attempt+1))
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageWrite, lastErr)
}

func classifyRead(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidDate):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorageRead, err)
	}
}

func classifyWrite(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidDate):
		return fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStorageWrite, err)
	}
}

func newJobID() string {
	return uuid.NewString()
}
