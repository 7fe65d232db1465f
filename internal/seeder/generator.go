package seeder

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

var (
	adjectives = []string{"sleepy", "grumpy", "dancing", "confused", "heroic", "soggy", "tiny", "majestic"}
	subjects   = []string{"dog", "cat", "toaster", "pigeon", "wizard", "cactus", "robot", "llama"}
	endings    = []string{"on a Monday", "at the vet", "in space", "after lunch", "mid-sneeze", "at prom"}
)

// generate builds count submissions for date with unique user ids. Captions
// carry their index so no two share text and score updates stay one-to-one.
func generate(date string, count int) []Submission {
	subs := make([]Submission, count)
	for i := range subs {
		subs[i] = Submission{
			UserID:        uuid.NewString(),
			ChallengeDate: date,
			Caption: fmt.Sprintf("%s %s %s #%d",
				adjectives[rand.IntN(len(adjectives))],
				subjects[rand.IntN(len(subjects))],
				endings[rand.IntN(len(endings))],
				i+1,
			),
		}
	}
	return subs
}
