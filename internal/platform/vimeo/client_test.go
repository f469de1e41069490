package vimeo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{AccessToken: "tok", BaseURL: srv.URL, RetryCount: 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetVideoStatusReady(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/12345" {
			t.Errorf("path: want=/videos/12345 got=%s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header: want=Bearer tok got=%s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"uri":"/videos/12345","status":"available","duration":642,"modified_time":"2026-03-01T10:15:00+00:00","is_playable":true,"upload":{"status":"complete"},"transcode":{"status":"complete"}}`))
	})
	st, err := c.GetVideoStatus(context.Background(), "12345")
	if err != nil {
		t.Fatalf("GetVideoStatus: %v", err)
	}
	if !st.Ready() || st.InProgress() {
		t.Fatalf("status: want ready got=%+v", st)
	}
	if st.DurationSeconds != 642 {
		t.Fatalf("duration: want=642 got=%d", st.DurationSeconds)
	}
	want := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	if !st.ModifiedAt.Equal(want) || !st.EventTime(time.Now()).Equal(want) {
		t.Fatalf("modified: want=%s got=%s", want, st.ModifiedAt)
	}
}

func TestGetVideoStatusInProgressDefaults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"transcoding","transcode":{"status":"in_progress"}}`))
	})
	st, err := c.GetVideoStatus(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetVideoStatus: %v", err)
	}
	if !st.InProgress() {
		t.Fatalf("want in progress, got=%+v", st)
	}
	if st.UploadStatus != "unknown" || st.IsPlayable || !st.ModifiedAt.IsZero() {
		t.Fatalf("defaults: got=%+v", st)
	}
	fallback := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if got := st.EventTime(fallback); !got.Equal(fallback) {
		t.Fatalf("event time fallback: want=%s got=%s", fallback, got)
	}
}

func TestGetVideoStatusErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/videos/missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"not found"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"no access"}`))
	})
	if _, err := c.GetVideoStatus(context.Background(), "missing"); !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("missing: want ErrVideoNotFound got=%v", err)
	}
	_, err := c.GetVideoStatus(context.Background(), "forbidden")
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusForbidden {
		t.Fatalf("forbidden: want HTTPError 403 got=%v", err)
	}
}

func TestVideoIDFromURI(t *testing.T) {
	cases := map[string]string{
		"/videos/76979871":  "76979871",
		"/videos/76979871/": "76979871",
		"76979871":          "76979871",
		"":                  "",
	}
	for in, want := range cases {
		if got := VideoIDFromURI(in); got != want {
			t.Fatalf("VideoIDFromURI(%q): want=%q got=%q", in, want, got)
		}
	}
}
