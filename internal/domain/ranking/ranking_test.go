package ranking_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/okian/captionboard/internal/domain/model"
	"github.com/okian/captionboard/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 4, 7, 8, 0, 0, 0, time.UTC)

func rec(caption string, score float64, offset time.Duration) model.CaptionRecord {
	return model.CaptionRecord{
		UserID:         "u-" + caption,
		ChallengeDate:  "2025-04-07",
		Caption:        caption,
		Score:          score,
		SubmissionTime: t0.Add(offset),
	}
}

func TestTop(t *testing.T) {
	Convey("Given a day of caption records", t, func() {
		records := []model.CaptionRecord{
			rec("cat", 0, 0),
			rec("dog", 5, time.Minute),
			rec("owl", 5, 30*time.Second),
			rec("eel", 2, 2*time.Minute),
		}

		Convey("When ranking with a generous limit", func() {
			top := ranking.Top(records, "2025-04-07", 20)

			Convey("Then higher scores come first and ties go to the earlier submission", func() {
				So(len(top), ShouldEqual, 4)
				So(top[0].Caption, ShouldEqual, "owl")
				So(top[1].Caption, ShouldEqual, "dog")
				So(top[2].Caption, ShouldEqual, "eel")
				So(top[3].Caption, ShouldEqual, "cat")
			})

			Convey("And the input is untouched", func() {
				So(records[0].Caption, ShouldEqual, "cat")
			})
		})

		Convey("When the limit is one", func() {
			top := ranking.Top(records, "2025-04-07", 1)

			Convey("Then only the best record is returned", func() {
				So(len(top), ShouldEqual, 1)
				So(top[0].Caption, ShouldEqual, "owl")
			})
		})

		Convey("When the limit is not positive", func() {
			many := make([]model.CaptionRecord, 0, 30)
			for i := 0; i < 30; i++ {
				many = append(many, rec(fmt.Sprintf("c%02d", i), float64(i), time.Duration(i)*time.Second))
			}

			Convey("Then the default limit applies", func() {
				So(len(ranking.Top(many, "2025-04-07", 0)), ShouldEqual, ranking.DefaultLimit)
				So(len(ranking.Top(many, "2025-04-07", -3)), ShouldEqual, ranking.DefaultLimit)
			})
		})

		Convey("When records from another date are mixed in", func() {
			stray := rec("bat", 99, 0)
			stray.ChallengeDate = "2025-04-08"
			top := ranking.Top(append(records, stray), "2025-04-07", 20)

			Convey("Then they are filtered out", func() {
				So(len(top), ShouldEqual, 4)
				for _, r := range top {
					So(r.ChallengeDate, ShouldEqual, "2025-04-07")
				}
			})
		})

		Convey("When there are no records", func() {
			So(ranking.Top(nil, "2025-04-07", 5), ShouldBeEmpty)
		})
	})
}

func TestTopOrderingLaw(t *testing.T) {
	Convey("Given random records", t, func() {
		rng := rand.New(rand.NewSource(7))
		records := make([]model.CaptionRecord, 200)
		for i := range records {
			records[i] = rec(fmt.Sprintf("c%d", i), float64(rng.Intn(5)), time.Duration(rng.Intn(1000))*time.Second)
		}

		Convey("Then every adjacent pair obeys the sort law and the limit", func() {
			top := ranking.Top(records, "2025-04-07", 50)
			So(len(top), ShouldEqual, 50)
			for i := 1; i < len(top); i++ {
				a, b := top[i-1], top[i]
				ok := a.Score > b.Score || (a.Score == b.Score && !a.SubmissionTime.After(b.SubmissionTime))
				So(ok, ShouldBeTrue)
			}
		})

		Convey("Then ranking is deterministic", func() {
			So(ranking.Top(records, "2025-04-07", 200), ShouldResemble, ranking.Top(records, "2025-04-07", 200))
		})
	})
}
