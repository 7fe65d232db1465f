package seeder

import (
	"fmt"
	"slices"
)

// verifyOrdering checks that entries belong to date and run from highest to
// lowest score, earlier submissions first among equal scores.
func verifyOrdering(date string, entries []Entry) error {
	for i, e := range entries {
		if e.ChallengeDate != date {
			return fmt.Errorf("%w: entry %d is for %s", ErrOrdering, i, e.ChallengeDate)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Score > prev.Score:
			return fmt.Errorf("%w: entry %d scores %.3f above entry %d at %.3f", ErrOrdering, i, e.Score, i-1, prev.Score)
		case e.Score == prev.Score && e.SubmissionTime.Before(prev.SubmissionTime):
			return fmt.Errorf("%w: entry %d submitted before entry %d with an equal score", ErrOrdering, i, i-1)
		}
	}
	return nil
}

// verifyPresent checks every submitted caption appears in entries.
func verifyPresent(submitted []Submission, entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[e.UserID+"\x00"+e.Caption] = struct{}{}
	}
	var missing []string
	for _, s := range submitted {
		if _, ok := seen[s.UserID+"\x00"+s.Caption]; !ok {
			missing = append(missing, s.Caption)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: %d absent, first %q", ErrMissing, len(missing), missing[0])
	}
	return nil
}
