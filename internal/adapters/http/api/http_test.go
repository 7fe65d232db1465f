package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/okian/captionboard/internal/adapters/http/api"
	"github.com/okian/captionboard/internal/adapters/repository"
	"github.com/okian/captionboard/internal/adapters/stories"
	service "github.com/okian/captionboard/internal/app"
	"github.com/okian/captionboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockDeps records what handlers asked for and returns canned answers.
type mockDeps struct {
	added      []model.Submission
	addErr     error
	top        []model.CaptionRecord
	topErr     error
	topDate    string
	topLimit   int
	computed   int
	computeErr error
	marker     model.ComputedMarker
	hasMarker  bool
	feed       []stories.Story
	feedErr    error
}

func (m *mockDeps) AddCaption(_ context.Context, sub model.Submission) (model.CaptionRecord, error) {
	if m.addErr != nil {
		return model.CaptionRecord{}, m.addErr
	}
	m.added = append(m.added, sub)
	return sub.Record(time.Now()), nil
}

func (m *mockDeps) TopCaptions(_ context.Context, date string, limit int) ([]model.CaptionRecord, error) {
	m.topDate, m.topLimit = date, limit
	return m.top, m.topErr
}

func (m *mockDeps) ComputeScores(context.Context, string) (int, error) {
	return m.computed, m.computeErr
}

func (m *mockDeps) Status(_ context.Context, date string) (model.ComputedMarker, bool, error) {
	if _, err := model.ParseDate(date); err != nil {
		return model.ComputedMarker{}, false, err
	}
	return m.marker, m.hasMarker, nil
}

func (m *mockDeps) CommunityStories(context.Context) ([]stories.Story, error) {
	return m.feed, m.feedErr
}

func (m *mockDeps) GetStats(context.Context) map[string]any {
	return map[string]any{"started": true}
}

func newMux(deps api.Dependencies, opts ...api.Option) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, opts...).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeError(w *httptest.ResponseRecorder) map[string]string {
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func TestServer_Routes(t *testing.T) {
	Convey("Given a registered server", t, func() {
		deps := &mockDeps{top: []model.CaptionRecord{}}
		mux := newMux(deps)

		Convey("Then health serves the metrics scrape", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "captionboard_contest_")
		})

		Convey("Then stats serve JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldStartWith, "application/json")
			So(w.Body.String(), ShouldContainSubstring, `"started":true`)
		})

		Convey("Then every response carries a request id", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)

			w = do(mux, http.MethodGet, "/stats", "", api.RequestIDHeader, "req-42")
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-42")
		})

		Convey("Then unsupported methods are refused", func() {
			w := do(mux, http.MethodDelete, "/api/captions", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, POST")
		})

		Convey("Then unknown paths are not found", func() {
			w := do(mux, http.MethodGet, "/nope", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestCaptionsHandler_Post(t *testing.T) {
	Convey("Given the captions endpoint", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When a valid caption is posted", func() {
			w := do(mux, http.MethodPost, "/api/captions",
				`{"user_id":"u1","challenge_date":"2025-04-07","caption":"dog"}`)

			Convey("Then it answers success", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"success":true}`)
				So(deps.added, ShouldHaveLength, 1)
				So(deps.added[0].Caption, ShouldEqual, "dog")
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/api/captions", `user_id=u1`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When validation fails", func() {
			deps.addErr = fmt.Errorf("service.add_caption: %w: user_id is required", service.ErrValidation)
			w := do(mux, http.MethodPost, "/api/captions", `{"challenge_date":"2025-04-07","caption":"dog"}`)

			Convey("Then the reason is returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "user_id is required")
			})
		})

		Convey("When storage fails", func() {
			deps.addErr = fmt.Errorf("x: %w: disk full", service.ErrStorageWrite)
			w := do(mux, http.MethodPost, "/api/captions",
				`{"user_id":"u1","challenge_date":"2025-04-07","caption":"dog"}`)

			Convey("Then a generic message hides the cause", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decodeError(w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldEqual, "Failed to save caption")
			})
		})
	})
}

func TestCaptionsHandler_Get(t *testing.T) {
	Convey("Given the captions endpoint", t, func() {
		at := time.Date(2025, 4, 7, 9, 0, 0, 0, time.UTC)
		deps := &mockDeps{top: []model.CaptionRecord{
			{UserID: "u1", ChallengeDate: "2025-04-07", Caption: "dog", Score: 5, SubmissionTime: at},
		}}
		mux := newMux(deps, api.WithMaxLimit(50))

		Convey("When the leaderboard is requested", func() {
			w := do(mux, http.MethodGet, "/api/captions?date=2025-04-07&limit=10", "")

			Convey("Then records come back with wire field names", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var out []map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(out[0]["user_id"], ShouldEqual, "u1")
				So(out[0]["challenge_date"], ShouldEqual, "2025-04-07")
				So(out[0]["score"], ShouldEqual, 5.0)
				So(out[0]["submission_time"], ShouldEqual, "2025-04-07T09:00:00Z")
				So(deps.topDate, ShouldEqual, "2025-04-07")
				So(deps.topLimit, ShouldEqual, 10)
			})
		})

		Convey("When no limit is given", func() {
			do(mux, http.MethodGet, "/api/captions?date=2025-04-07", "")

			Convey("Then the default is left to the service", func() {
				So(deps.topLimit, ShouldEqual, 0)
			})
		})

		Convey("When the limit is above the cap", func() {
			do(mux, http.MethodGet, "/api/captions?date=2025-04-07&limit=500", "")

			Convey("Then it is capped", func() {
				So(deps.topLimit, ShouldEqual, 50)
			})
		})

		Convey("When the query is unusable", func() {
			for _, target := range []string{
				"/api/captions",
				"/api/captions?date=today",
				"/api/captions?date=2025-04-07&limit=0",
				"/api/captions?date=2025-04-07&limit=-1",
				"/api/captions?date=2025-04-07&limit=ten",
			} {
				w := do(mux, http.MethodGet, target, "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["code"], ShouldEqual, "bad_request")
			}
		})

		Convey("When the store cannot be read", func() {
			deps.topErr = fmt.Errorf("x: %w: %w", service.ErrStorageRead, repository.ErrParse)
			w := do(mux, http.MethodGet, "/api/captions?date=2025-04-07", "")

			Convey("Then it is a 500 with a generic message", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(decodeError(w)["message"], ShouldEqual, "Failed to fetch captions")
			})
		})

		Convey("When the day is empty", func() {
			deps.top = nil
			w := do(mux, http.MethodGet, "/api/captions?date=2025-04-07", "")

			Convey("Then an empty array is returned", func() {
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})
	})
}

func TestComputeHandler(t *testing.T) {
	Convey("Given the compute trigger guarded by a secret", t, func() {
		deps := &mockDeps{computed: 3}
		mux := newMux(deps, api.WithComputeSecret("x-cron-secret", "s3cret"))

		Convey("When called with the secret", func() {
			w := do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "", "x-cron-secret", "s3cret")

			Convey("Then it reports the update count", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"success":true,"date":"2025-04-07","updated":3}`)
			})
		})

		Convey("When called without or with a wrong secret", func() {
			So(do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "").Code, ShouldEqual, http.StatusUnauthorized)
			So(do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "", "x-cron-secret", "nope").Code,
				ShouldEqual, http.StatusUnauthorized)
		})

		Convey("When the date is bad", func() {
			w := do(mux, http.MethodGet, "/api/captions/compute?date=x", "", "x-cron-secret", "s3cret")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the collaborator fails", func() {
			deps.computeErr = fmt.Errorf("x: %w", service.ErrUpstreamCompute)
			w := do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "", "x-cron-secret", "s3cret")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
			So(decodeError(w)["code"], ShouldEqual, "upstream_error")
		})

		Convey("When storage fails", func() {
			deps.computeErr = fmt.Errorf("x: %w", service.ErrStorageWrite)
			w := do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "", "x-cron-secret", "s3cret")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})

	Convey("Given no secret configured", t, func() {
		mux := newMux(&mockDeps{})
		w := do(mux, http.MethodGet, "/api/captions/compute?date=2025-04-07", "", "x-cron-secret", "")

		Convey("Then the trigger stays closed", func() {
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})
	})

	Convey("Given the status endpoint", t, func() {
		deps := &mockDeps{}
		mux := newMux(deps)

		Convey("When nothing is marked", func() {
			w := do(mux, http.MethodGet, "/api/captions/status?date=2099-01-01", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `{"date":"2099-01-01","computed":false}`)
		})

		Convey("When the date is marked", func() {
			deps.marker = model.ComputedMarker{Computed: true, ComputedAt: time.Date(2025, 4, 8, 0, 0, 0, 0, time.UTC)}
			deps.hasMarker = true
			w := do(mux, http.MethodGet, "/api/captions/status?date=2025-04-07", "")
			So(strings.TrimSpace(w.Body.String()), ShouldEqual,
				`{"date":"2025-04-07","computed":true,"computedAt":"2025-04-08T00:00:00Z"}`)
		})

		Convey("When the date is bad", func() {
			So(do(mux, http.MethodGet, "/api/captions/status?date=", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestStoriesHandler(t *testing.T) {
	Convey("Given the stories endpoint", t, func() {
		deps := &mockDeps{feed: []stories.Story{stories.Story(`{"id":1}`)}}
		mux := newMux(deps)

		Convey("Then the feed is served as an array", func() {
			w := do(mux, http.MethodGet, "/api/stories/community", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(strings.TrimSpace(w.Body.String()), ShouldEqual, `[{"id":1}]`)
		})

		Convey("When upstream fails with nothing cached", func() {
			deps.feedErr = errors.New("down")
			w := do(mux, http.MethodGet, "/api/stories/community", "")
			So(w.Code, ShouldEqual, http.StatusBadGateway)
		})
	})
}

func TestServer_EndToEnd(t *testing.T) {
	Convey("Given the API over a real service", t, func() {
		root := t.TempDir()
		svc := service.New(repository.NewCSVStore(root), repository.NewMarkerStore(root))
		mux := newMux(svc)

		post := func(user, caption string) int {
			body := fmt.Sprintf(`{"user_id":%q,"challenge_date":"2025-04-07","caption":%q}`, user, caption)
			return do(mux, http.MethodPost, "/api/captions", body).Code
		}

		Convey("When two captions are posted and one is scored", func() {
			So(post("u1", "dog"), ShouldEqual, http.StatusOK)
			So(post("u2", "cat"), ShouldEqual, http.StatusOK)
			_, err := svc.UpdateScores(context.Background(), "2025-04-07", map[string]float64{"dog": 5})
			So(err, ShouldBeNil)

			Convey("Then the leaderboard ranks dog over cat", func() {
				w := do(mux, http.MethodGet, "/api/captions?date=2025-04-07", "")
				var out []model.CaptionRecord
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 2)
				So(out[0].Caption, ShouldEqual, "dog")
				So(out[0].Score, ShouldEqual, 5)
				So(out[1].Caption, ShouldEqual, "cat")
				So(out[1].Score, ShouldEqual, 0)
			})

			Convey("Then limit=1 returns only dog", func() {
				w := do(mux, http.MethodGet, "/api/captions?date=2025-04-07&limit=1", "")
				var out []model.CaptionRecord
				So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
				So(out, ShouldHaveLength, 1)
				So(out[0].Caption, ShouldEqual, "dog")
			})
		})

		Convey("When a required field is missing", func() {
			w := do(mux, http.MethodPost, "/api/captions", `{"user_id":"u1","challenge_date":"2025-04-07"}`)

			Convey("Then the service's validation surfaces as 400", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decodeError(w)["message"], ShouldContainSubstring, "caption is required")
			})
		})
	})
}
