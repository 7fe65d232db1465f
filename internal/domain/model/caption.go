// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"time"
)

// DateLayout is the challenge date format used as the storage partition key.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned by ParseDate for anything but YYYY-MM-DD.
var ErrInvalidDate = errors.New("invalid challenge date; must be YYYY-MM-DD")

// CaptionRecord is one caption submission for a daily contest.
type CaptionRecord struct {
	UserID         string    `json:"user_id"`
	ChallengeDate  string    `json:"challenge_date"` // YYYY-MM-DD, partition key
	Caption        string    `json:"caption"`        // also the score-update key
	Score          float64   `json:"score"`
	SubmissionTime time.Time `json:"submission_time"`
}

// Submission is a caption as received from a client, before it is stamped
// and scored.
type Submission struct {
	UserID        string `json:"user_id" validate:"required"`
	ChallengeDate string `json:"challenge_date" validate:"required,datetime=2006-01-02"`
	Caption       string `json:"caption" validate:"required"`
}

// Record stamps the submission into a new zero-score record.
func (s Submission) Record(at time.Time) CaptionRecord {
	return CaptionRecord{
		UserID:         s.UserID,
		ChallengeDate:  s.ChallengeDate,
		Caption:        s.Caption,
		Score:          0,
		SubmissionTime: at.UTC(),
	}
}

// ComputedMarker is the per-day scoring completion flag.
type ComputedMarker struct {
	Computed   bool      `json:"computed"`
	ComputedAt time.Time `json:"computedAt"`
}

// ComputeJob asks a worker to run a scoring pass for one date.
type ComputeJob struct {
	JobID      string
	Date       string
	EnqueuedAt time.Time
}

// ParseDate validates a challenge date and returns it in canonical form.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", ErrInvalidDate
	}
	return t.Format(DateLayout), nil
}
