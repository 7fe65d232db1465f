// Package ranking turns a day's caption records into a leaderboard view.
package ranking

import (
	"sort"

	"github.com/okian/captionboard/internal/domain/model"
)

// DefaultLimit is applied when a caller passes a non-positive limit.
const DefaultLimit = 20

// Less reports whether a ranks ahead of b: score DESC, then earlier
// submission first.
func Less(a, b model.CaptionRecord) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.SubmissionTime.Before(b.SubmissionTime)
}

// Top filters records to date, orders them with Less and truncates to limit.
// The input slice is not modified. Records that compare equal keep their
// input (file) order.
func Top(records []model.CaptionRecord, date string, limit int) []model.CaptionRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]model.CaptionRecord, 0, len(records))
	for _, r := range records {
		if r.ChallengeDate == date {
			out = append(out, r)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
