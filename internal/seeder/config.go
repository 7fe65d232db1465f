// Package seeder loads a running captionboard with synthetic submissions and
// checks that the leaderboard it serves is ordered and complete.
package seeder

import (
	"errors"
	"time"
)

// Error constants.
var (
	ErrUnhealthy = errors.New("service unhealthy")
	ErrSubmit    = errors.New("submission failed")
	ErrCompute   = errors.New("compute trigger failed")
	ErrFetch     = errors.New("leaderboard fetch failed")
	ErrOrdering  = errors.New("leaderboard out of order")
	ErrMissing   = errors.New("leaderboard missing captions")
)

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL string        // Base URL of the service
	Date    string        // Challenge date to seed (YYYY-MM-DD)
	Count   int           // Number of captions to submit
	Workers int           // Concurrent submitters
	Timeout time.Duration // Per-request timeout

	// Compute triggers a scoring pass before verifying when set.
	Compute      bool
	SecretHeader string
	Secret       string
}

// Submission is the wire body of POST /api/captions.
type Submission struct {
	UserID        string `json:"user_id"`
	ChallengeDate string `json:"challenge_date"`
	Caption       string `json:"caption"`
}

// Entry is one leaderboard row as served by GET /api/captions.
type Entry struct {
	UserID         string    `json:"user_id"`
	ChallengeDate  string    `json:"challenge_date"`
	Caption        string    `json:"caption"`
	Score          float64   `json:"score"`
	SubmissionTime time.Time `json:"submission_time"`
}

// Stats summarizes a run.
type Stats struct {
	Generated int
	Submitted int
	Failed    int
	Computed  int
	Entries   int
	StartTime time.Time
	Duration  time.Duration
}
