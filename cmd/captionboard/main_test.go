package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/captionboard/internal/config"
	"github.com/okian/captionboard/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.DataDir = t.TempDir()
	cfg.WorkerCount = 2
	cfg.ComputeSecret = "s3cret"
	return cfg
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a default configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		svc := buildService(cfg, logger.Nop())

		convey.Convey("When the service starts and stops", func() {
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			stats := svc.GetStats(ctx)
			convey.So(stats["started"], convey.ShouldEqual, true)
			convey.So(stats["scorer"], convey.ShouldEqual, false)
			convey.So(svc.Stop(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When a collaborator URL is configured", func() {
			cfg.ComputeURL = "http://127.0.0.1:1/compute"
			svc := buildService(cfg, logger.Nop())

			convey.Convey("Then a scorer is wired", func() {
				convey.So(svc.GetStats(ctx)["scorer"], convey.ShouldEqual, true)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the full route table", t, func() {
		ctx := context.Background()
		cfg := testConfig(t)
		svc := buildService(cfg, logger.Nop())
		mux := newMux(ctx, cfg, svc, logger.Nop())

		serve := func(method, target, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, target, strings.NewReader(body))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			return w
		}

		convey.Convey("Then a caption round-trips through the API", func() {
			w := serve(http.MethodPost, "/api/captions",
				`{"user_id":"u1","challenge_date":"2025-04-07","caption":"dog"}`)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			w = serve(http.MethodGet, "/api/captions?date=2025-04-07", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"caption":"dog"`)
		})

		convey.Convey("Then the docs and operational routes are mounted", func() {
			convey.So(serve(http.MethodGet, "/openapi.yaml", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/api-docs", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/healthz", "").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(serve(http.MethodGet, "/stats", "").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then the stories feed is empty without an upstream", func() {
			w := serve(http.MethodGet, "/api/stories/community", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(strings.TrimSpace(w.Body.String()), convey.ShouldEqual, "[]")
		})

		convey.Convey("Then compute is guarded by the configured secret", func() {
			w := serve(http.MethodGet, "/api/captions/compute?date=2025-04-07", "")
			convey.So(w.Code, convey.ShouldEqual, http.StatusUnauthorized)
		})
	})
}

func TestSystemMetricsUpdater(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then it returns once its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			done := make(chan struct{})
			go func() {
				startSystemMetricsUpdater(ctx, 10*time.Millisecond)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("updater did not stop")
			}
		})

		convey.Convey("Then a zero interval disables it", func() {
			convey.So(func() { startSystemMetricsUpdater(context.Background(), 0) }, convey.ShouldNotPanic)
		})
	})
}
