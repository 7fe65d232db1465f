package repository

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
	"github.com/okian/captionboard/pkg/metrics"
)

// Header is the column order of captions.csv.
var Header = []string{"user_id", "challenge_date", "caption", "score", "submission_time"}

// CSVStore keeps one captions.csv per challenge date.
//
// Every operation re-reads the file; nothing is cached between calls.
// Write is last-writer-wins over the whole file, so two callers running
// Read -> modify -> Write for the same date can drop one another's changes.
// Callers that need to avoid that use ReadVersioned/WriteIfVersion.
type CSVStore struct {
	*fileStore
}

var _ RecordStore = (*CSVStore)(nil)

// NewCSVStore returns a store rooted at root. The directory is created lazily.
func NewCSVStore(root string, opts ...Option) *CSVStore {
	return &CSVStore{fileStore: newFileStore(root, opts...)}
}

func (s *CSVStore) path(date string) (string, error) {
	dir, err := s.dayDir(date)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CaptionsFile), nil
}

// Read returns the records for date.
func (s *CSVStore) Read(ctx context.Context, date string) ([]model.CaptionRecord, error) {
	records, _, err := s.ReadVersioned(ctx, date)
	return records, err
}

// ReadVersioned returns the records for date and the version they were read at.
func (s *CSVStore) ReadVersioned(ctx context.Context, date string) ([]model.CaptionRecord, Version, error) {
	const op = "repository.read"
	if err := s.EnsureDirectory(ctx, date); err != nil {
		return nil, NoVersion, err
	}
	path, err := s.path(date)
	if err != nil {
		return nil, NoVersion, err
	}

	start := time.Now()
	data, err := os.ReadFile(path)
	metrics.RecordStorageRead(CaptionsFile, time.Since(start))
	if errors.Is(err, os.ErrNotExist) {
		return []model.CaptionRecord{}, NoVersion, nil
	}
	if err != nil {
		metrics.RecordStorageError(CaptionsFile, "read")
		return nil, NoVersion, fmt.Errorf("%s: %w: %w", op, ErrRead, err)
	}

	records, err := decode(data)
	if err != nil {
		metrics.RecordStorageError(CaptionsFile, "parse")
		s.logger.Error(ctx, "caption file is not parseable",
			logger.String("date", date),
			logger.String("path", path),
			logger.Error(err),
		)
		return nil, NoVersion, fmt.Errorf("%s: %s: %w", op, date, err)
	}
	return records, versionOf(data), nil
}

// Write replaces the file for date with records.
func (s *CSVStore) Write(ctx context.Context, records []model.CaptionRecord, date string) error {
	return s.write(ctx, records, date, nil)
}

// WriteIfVersion replaces the file for date only if it is still at v.
func (s *CSVStore) WriteIfVersion(ctx context.Context, records []model.CaptionRecord, date string, v Version) error {
	return s.write(ctx, records, date, &v)
}

func (s *CSVStore) write(ctx context.Context, records []model.CaptionRecord, date string, expect *Version) error {
	const op = "repository.write"
	if err := s.EnsureDirectory(ctx, date); err != nil {
		return err
	}
	path, err := s.path(date)
	if err != nil {
		return err
	}
	data, err := encode(records)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}

	l := s.lockDate(date)
	defer l.Unlock()

	if expect != nil {
		current, err := currentVersion(path)
		if err != nil {
			metrics.RecordStorageError(CaptionsFile, "read")
			return fmt.Errorf("%s: %w: %w", op, ErrRead, err)
		}
		if current != *expect {
			metrics.RecordWriteConflict()
			return fmt.Errorf("%s: %s: %w", op, date, ErrConflict)
		}
	}

	start := time.Now()
	err = s.replaceFile(path, data)
	metrics.RecordStorageWrite(CaptionsFile, time.Since(start))
	if err != nil {
		metrics.RecordStorageError(CaptionsFile, "write")
		return fmt.Errorf("%s: %w: %w", op, ErrWrite, err)
	}
	s.logger.Debug(ctx, "caption file replaced",
		logger.String("date", date),
		logger.Int("records", len(records)),
	)
	return nil
}

func currentVersion(path string) (Version, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return NoVersion, nil
	}
	if err != nil {
		return NoVersion, err
	}
	return versionOf(data), nil
}

func versionOf(data []byte) Version {
	sum := sha256.Sum256(data)
	return Version(hex.EncodeToString(sum[:]))
}

func encode(records []model.CaptionRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.UserID,
			r.ChallengeDate,
			r.Caption,
			strconv.FormatFloat(r.Score, 'f', -1, 64),
			r.SubmissionTime.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decode parses captions.csv content. Columns are matched by header name.
// Empty content, or a header with no rows, means no records.
func decode(data []byte) ([]model.CaptionRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []model.CaptionRecord{}, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrParse, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range Header {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrParse, name)
		}
	}

	records := []model.CaptionRecord{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		line, _ := r.FieldPos(0)

		score, err := strconv.ParseFloat(row[col["score"]], 64)
		if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
			return nil, fmt.Errorf("%w: line %d: score %q", ErrParse, line, row[col["score"]])
		}
		ts, err := time.Parse(time.RFC3339Nano, row[col["submission_time"]])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: submission_time %q", ErrParse, line, row[col["submission_time"]])
		}
		records = append(records, model.CaptionRecord{
			UserID:         row[col["user_id"]],
			ChallengeDate:  row[col["challenge_date"]],
			Caption:        row[col["caption"]],
			Score:          score,
			SubmissionTime: ts,
		})
	}
	return records, nil
}
