package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/internal/domain/scoring"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// Compute outcomes recorded in metrics.
const (
	outcomeSuccess  = "success"
	outcomeUpstream = "upstream_error"
	outcomeStorage  = "storage_error"
)

// ComputeScores runs one scoring pass for date: ask the collaborator for
// scores, apply them, then mark the date computed. It returns how many
// records were updated.
func (s *Service) ComputeScores(ctx context.Context, date string) (int, error) {
	const op = "service.compute"
	if _, err := model.ParseDate(date); err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
	}
	if s.scorer == nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrUpstreamCompute, scoring.ErrNotConfigured)
	}

	start := time.Now()
	res, err := s.scorer.Score(ctx, date)
	if err != nil {
		metrics.RecordCompute(outcomeUpstream, time.Since(start))
		return 0, fmt.Errorf("%s: %w: %w", op, ErrUpstreamCompute, err)
	}

	updated, err := s.UpdateScores(ctx, date, res.Scores)
	if err != nil {
		metrics.RecordCompute(outcomeStorage, time.Since(start))
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.MarkComputed(ctx, date); err != nil {
		metrics.RecordCompute(outcomeStorage, time.Since(start))
		return updated, fmt.Errorf("%s: %w", op, err)
	}

	elapsed := time.Since(start)
	metrics.RecordCompute(outcomeSuccess, elapsed)
	s.logger.Info(ctx, "scoring pass applied",
		logger.String("date", date),
		logger.Int("scores", len(res.Scores)),
		logger.Int("updated", updated),
		logger.Duration("elapsed", elapsed),
	)
	return updated, nil
}

// Compute runs a scoring pass; it is what compute workers call.
func (s *Service) Compute(ctx context.Context, date string) error {
	_, err := s.ComputeScores(ctx, date)
	return err
}

// TriggerCompute queues a background scoring pass for date. Triggers for a
// date that already has a job pending are folded into it. It reports
// whether a job is pending for date afterwards.
func (s *Service) TriggerCompute(ctx context.Context, date string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		s.logger.Warn(ctx, "compute trigger before start", logger.Error(ErrNotStarted))
		return false
	}
	if _, err := model.ParseDate(date); err != nil {
		return false
	}

	if s.deduper.SeenAndRecord(ctx, date) {
		metrics.RecordJobCoalesced()
		return true
	}

	job := model.ComputeJob{JobID: newJobID(), Date: date, EnqueuedAt: s.now()}
	if !s.jobs.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, date)
		s.logger.Warn(ctx, "compute queue full; job dropped",
			logger.String("date", date),
			logger.Int("queueLength", s.jobs.Len(ctx)),
		)
		return false
	}
	s.logger.Debug(ctx, "compute job queued",
		logger.String("job_id", job.JobID),
		logger.String("date", date),
	)
	return true
}
