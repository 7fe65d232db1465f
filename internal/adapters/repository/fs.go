package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/pkg/logger"
)

const (
	defaultFileMode = 0o644
	dirMode         = 0o755
)

// fileStore holds what the CSV and marker stores share: the root directory,
// per-date write locks and the atomic replace helper.
type fileStore struct {
	root     string
	fileMode uint32
	logger   logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newFileStore(root string, opts ...Option) *fileStore {
	s := &fileStore{
		root:     root,
		fileMode: defaultFileMode,
		logger:   logger.Nop(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dayDir validates date and returns its directory. Validation also keeps
// caller input from escaping root.
func (s *fileStore) dayDir(date string) (string, error) {
	d, err := model.ParseDate(date)
	if err != nil || d != date {
		return "", fmt.Errorf("%q: %w", date, model.ErrInvalidDate)
	}
	return filepath.Join(s.root, date), nil
}

// EnsureDirectory creates the directory for date if it does not exist.
func (s *fileStore) EnsureDirectory(ctx context.Context, date string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir, err := s.dayDir(date)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrWrite, dir, err)
	}
	return nil
}

// Dates lists every date directory under root in ascending order.
func (s *fileStore) Dates(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", ErrRead, s.root, err)
	}
	dates := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if d, err := model.ParseDate(e.Name()); err == nil && d == e.Name() {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// lockDate returns the held write lock for date; callers must Unlock it.
func (s *fileStore) lockDate(date string) *sync.Mutex {
	s.mu.Lock()
	l, ok := s.locks[date]
	if !ok {
		l = &sync.Mutex{}
		s.locks[date] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l
}

// replaceFile writes data to a temp file beside path, syncs it and renames it
// over path. Readers see either the old or the new content, never a mix.
func (s *fileStore) replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, os.FileMode(s.fileMode)); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
