package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

func TestNewWithoutKeyIsNoop(t *testing.T) {
	c, err := New(logger.Nop(), Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.(Noop); !ok {
		t.Fatalf("want Noop client, got %T", c)
	}
}

func TestSendPostsMail(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != sendPath {
			t.Errorf("path: want=%s got=%s", sendPath, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("auth: want=Bearer key got=%s", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", Host: srv.URL, FromEmail: "noreply@example.com", FromName: "CourseTrack"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(context.Background(), CourseCompleted("ada@example.com", "Ada", "Go Basics"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.StatusCode != http.StatusAccepted || res.MessageID != "msg-1" {
		t.Fatalf("result: got=%+v", res)
	}
	if subj, _ := body["subject"].(string); subj != "You completed Go Basics" {
		t.Fatalf("subject: got=%q", subj)
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	c, _ := New(logger.Nop(), Config{APIKey: "key", Host: srv.URL, FromEmail: "noreply@example.com", MaxRetries: 3})
	_, err := c.Send(context.Background(), CourseCompleted("ada@example.com", "", "Go"))
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("want HTTPError 400, got=%v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls: want=1 got=%d", n)
	}
}

func TestCourseCompletedEscapesHTML(t *testing.T) {
	msg := CourseCompleted("a@b.c", "", "<Go>")
	if !strings.Contains(msg.HTML, "&lt;Go&gt;") {
		t.Fatalf("html not escaped: %s", msg.HTML)
	}
	if !strings.HasPrefix(msg.Text, "Hi there,") {
		t.Fatalf("greeting fallback: %q", msg.Text)
	}
}
