package repository

import "github.com/okian/captionboard/pkg/logger"

// Option applies a configuration option to a file-backed store.
type Option func(*fileStore)

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *fileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFileMode sets the permission bits of files the store creates.
func WithFileMode(mode uint32) Option {
	return func(s *fileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}
