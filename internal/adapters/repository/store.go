// Package repository persists caption contest state in one directory per
// challenge date.
//
// Layout:
//
//	<root>/<YYYY-MM-DD>/captions.csv
//	<root>/<YYYY-MM-DD>/results_computed.json
package repository

import (
	"context"

	"github.com/okian/captionboard/internal/domain/model"
)

// File names inside a day's directory.
const (
	CaptionsFile = "captions.csv"
	MarkerFile   = "results_computed.json"
)

// Version identifies one committed state of a day's captions file. The zero
// value means "no file".
type Version string

// NoVersion is the version of a date that has no captions file yet.
const NoVersion Version = ""

// RecordStore reads and replaces a day's caption records.
type RecordStore interface {
	// EnsureDirectory creates the per-date directory; idempotent.
	EnsureDirectory(ctx context.Context, date string) error
	// Read returns all records for date, or an empty slice when none exist.
	Read(ctx context.Context, date string) ([]model.CaptionRecord, error)
	// Write replaces the whole file for date. Last writer wins.
	Write(ctx context.Context, records []model.CaptionRecord, date string) error
	// ReadVersioned is Read plus the version of the state that was read.
	ReadVersioned(ctx context.Context, date string) ([]model.CaptionRecord, Version, error)
	// WriteIfVersion replaces the file only if it is still at version v,
	// returning ErrConflict otherwise.
	WriteIfVersion(ctx context.Context, records []model.CaptionRecord, date string, v Version) error
	// Dates lists the dates that have a directory, ascending.
	Dates(ctx context.Context) ([]string, error)
}

// FlagStore tracks whether a day's scoring pass has completed.
type FlagStore interface {
	// IsComputed fails open: any problem reading the marker reports false.
	IsComputed(ctx context.Context, date string) bool
	// MarkComputed writes the marker with the current time.
	MarkComputed(ctx context.Context, date string) error
	// Status returns the marker and whether a valid one exists.
	Status(ctx context.Context, date string) (model.ComputedMarker, bool)
}
