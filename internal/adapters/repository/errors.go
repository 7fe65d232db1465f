package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	// ErrParse means a day's file exists but is not valid tabular caption data.
	ErrParse = errors.New("caption file parse failed")
	// ErrRead means a day's file could not be read from disk.
	ErrRead = errors.New("caption file read failed")
	// ErrWrite means a day's file could not be replaced.
	ErrWrite = errors.New("caption file write failed")
	// ErrConflict means a versioned write lost to a concurrent writer.
	ErrConflict = errors.New("caption file changed since read")
)
