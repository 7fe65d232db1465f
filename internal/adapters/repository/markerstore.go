package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// MarkerStore keeps results_computed.json beside each day's captions.
type MarkerStore struct {
	*fileStore
	now func() time.Time
}

var _ FlagStore = (*MarkerStore)(nil)

// NewMarkerStore returns a marker store rooted at root.
func NewMarkerStore(root string, opts ...Option) *MarkerStore {
	return &MarkerStore{fileStore: newFileStore(root, opts...), now: time.Now}
}

// markerFile mirrors the on-disk shape; pointers detect missing keys.
type markerFile struct {
	Computed   *bool      `json:"computed"`
	ComputedAt *time.Time `json:"computedAt"`
}

// IsComputed reports whether date has a valid marker with computed=true.
func (s *MarkerStore) IsComputed(ctx context.Context, date string) bool {
	m, ok := s.Status(ctx, date)
	return ok && m.Computed
}

// Status loads the marker for date. Any failure yields (zero, false).
func (s *MarkerStore) Status(ctx context.Context, date string) (model.ComputedMarker, bool) {
	dir, err := s.dayDir(date)
	if err != nil {
		return model.ComputedMarker{}, false
	}
	path := filepath.Join(dir, MarkerFile)

	start := time.Now()
	data, err := os.ReadFile(path)
	metrics.RecordStorageRead(MarkerFile, time.Since(start))
	if err != nil {
		if !os.IsNotExist(err) {
			metrics.RecordStorageError(MarkerFile, "read")
			s.logger.Warn(ctx, "computed marker unreadable; treating as not computed",
				logger.String("date", date), logger.Error(err))
		}
		return model.ComputedMarker{}, false
	}

	var mf markerFile
	if err := json.Unmarshal(data, &mf); err != nil || mf.Computed == nil || mf.ComputedAt == nil {
		metrics.RecordStorageError(MarkerFile, "parse")
		s.logger.Warn(ctx, "computed marker malformed; treating as not computed",
			logger.String("date", date))
		return model.ComputedMarker{}, false
	}
	return model.ComputedMarker{Computed: *mf.Computed, ComputedAt: *mf.ComputedAt}, true
}

// MarkComputed records that date's scoring pass finished now. Calling it
// again only moves the timestamp.
func (s *MarkerStore) MarkComputed(ctx context.Context, date string) error {
	const op = "repository.mark_computed"
	if err := s.EnsureDirectory(ctx, date); err != nil {
		return err
	}
	dir, err := s.dayDir(date)
	if err != nil {
		return err
	}

	data, err := json.Marshal(model.ComputedMarker{Computed: true, ComputedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}

	l := s.lockDate(date)
	defer l.Unlock()

	start := time.Now()
	err = s.replaceFile(filepath.Join(dir, MarkerFile), data)
	metrics.RecordStorageWrite(MarkerFile, time.Since(start))
	if err != nil {
		metrics.RecordStorageError(MarkerFile, "write")
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}
	return nil
}
