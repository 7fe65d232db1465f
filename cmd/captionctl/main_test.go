package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func execute(args []string, stdin string) (string, error) {
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCaptionctl(t *testing.T) {
	convey.Convey("Given an empty data directory", t, func() {
		t.Setenv("CAPTIONBOARD_DATA_DIR", t.TempDir())
		t.Setenv("CAPTIONBOARD_LOG_LEVEL", "error")

		convey.Convey("When two captions are added and scored from stdin", func() {
			_, err := execute([]string{"add", "--user", "u1", "--date", "2025-04-07", "--caption", "dog"}, "")
			convey.So(err, convey.ShouldBeNil)
			_, err = execute([]string{"add", "--user", "u2", "--date", "2025-04-07", "--caption", "cat"}, "")
			convey.So(err, convey.ShouldBeNil)

			out, err := execute([]string{"scores", "--date", "2025-04-07", "--file", "-"}, `{"dog":5}`)
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"updated": 1`)

			convey.Convey("Then top lists dog first", func() {
				out, err := execute([]string{"top", "--date", "2025-04-07"}, "")
				convey.So(err, convey.ShouldBeNil)
				var rows []map[string]any
				convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 2)
				convey.So(rows[0]["caption"], convey.ShouldEqual, "dog")
				convey.So(rows[1]["caption"], convey.ShouldEqual, "cat")
			})

			convey.Convey("Then top honors the limit", func() {
				out, err := execute([]string{"top", "--date", "2025-04-07", "--limit", "1"}, "")
				convey.So(err, convey.ShouldBeNil)
				var rows []map[string]any
				convey.So(json.Unmarshal([]byte(out), &rows), convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When scores come from a file", func() {
			_, err := execute([]string{"add", "--user", "u1", "--date", "2025-04-07", "--caption", "dog"}, "")
			convey.So(err, convey.ShouldBeNil)
			path := filepath.Join(t.TempDir(), "scores.json")
			convey.So(os.WriteFile(path, []byte(`{"dog":2.5}`), 0o600), convey.ShouldBeNil)

			out, err := execute([]string{"scores", "--date", "2025-04-07", "--file", path}, "")

			convey.Convey("Then they are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"updated": 1`)
			})
		})

		convey.Convey("When a date is marked", func() {
			out, err := execute([]string{"status", "--date", "2025-04-07"}, "")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldContainSubstring, `"computed": false`)

			_, err = execute([]string{"mark", "--date", "2025-04-07"}, "")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then status reports it computed", func() {
				out, err := execute([]string{"status", "--date", "2025-04-07"}, "")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"computed": true`)
				convey.So(out, convey.ShouldContainSubstring, `"computedAt"`)
			})
		})

		convey.Convey("When input is invalid", func() {
			_, err := execute([]string{"add", "--user", "u1", "--date", "yesterday", "--caption", "dog"}, "")
			convey.So(err, convey.ShouldNotBeNil)

			_, err = execute([]string{"top"}, "")
			convey.So(err, convey.ShouldNotBeNil)

			_, err = execute([]string{"scores", "--date", "2025-04-07", "--file", "-"}, `not json`)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("When compute runs without a collaborator", func() {
			_, err := execute([]string{"compute", "--date", "2025-04-07"}, "")

			convey.Convey("Then it fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When compute runs against a collaborator", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("x-cron-secret") != "s3cret" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				_, _ = w.Write([]byte(`{"success":true,"scores":{"dog":7}}`))
			}))
			defer srv.Close()
			t.Setenv("CAPTIONBOARD_COMPUTE_URL", srv.URL)
			t.Setenv("CAPTIONBOARD_COMPUTE_SECRET", "s3cret")

			_, err := execute([]string{"add", "--user", "u1", "--date", "2025-04-07", "--caption", "dog"}, "")
			convey.So(err, convey.ShouldBeNil)
			out, err := execute([]string{"compute", "--date", "2025-04-07"}, "")

			convey.Convey("Then scores are applied and the date marked", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, `"updated": 1`)
				out, _ := execute([]string{"status", "--date", "2025-04-07"}, "")
				convey.So(out, convey.ShouldContainSubstring, `"computed": true`)
			})
		})
	})
}
