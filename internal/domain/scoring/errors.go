package scoring

import "errors"

var (
	// ErrUpstream covers every way the scoring collaborator can fail us:
	// transport errors, non-2xx replies, unreadable bodies and success=false.
	ErrUpstream = errors.New("scoring collaborator failed")

	// ErrNotConfigured is returned when no collaborator URL is set.
	ErrNotConfigured = errors.New("scoring collaborator not configured")
)
