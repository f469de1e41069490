package vimeo

import (
	"errors"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"type":"video.transcode.complete"}`)
	sig := Sign("s3cret", body)
	if err := VerifySignature("s3cret", body, sig); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	if err := VerifySignature("s3cret", body, "deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("wrong signature: want ErrInvalidSignature got=%v", err)
	}
	if err := VerifySignature("s3cret", body, "not-hex"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("non-hex signature: want ErrInvalidSignature got=%v", err)
	}
	if err := VerifySignature("", body, ""); err != nil {
		t.Fatalf("empty secret should skip verification, got=%v", err)
	}
}

func TestParseWebhookEvent(t *testing.T) {
	ev, err := ParseWebhookEvent([]byte(`{"type":"video.transcode.complete","created_time":"2025-03-01T10:00:00+00:00","data":{"uri":"/videos/555","duration":119.6}}`))
	if err != nil {
		t.Fatalf("ParseWebhookEvent: %v", err)
	}
	if ev.VideoID() != "555" {
		t.Fatalf("video id: want=555 got=%s", ev.VideoID())
	}
	if got := ev.DurationSeconds(); got != 120 {
		t.Fatalf("duration: want=120 got=%d", got)
	}
	want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	if got := ev.EventTime(time.Now()); !got.Equal(want) {
		t.Fatalf("event time: want=%s got=%s", want, got)
	}

	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ev.CreatedTime = "yesterday"
	if got := ev.EventTime(fallback); !got.Equal(fallback) {
		t.Fatalf("fallback time: want=%s got=%s", fallback, got)
	}

	if _, err := ParseWebhookEvent([]byte(`{"data":{}}`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("missing type: want ErrInvalidPayload got=%v", err)
	}
	if _, err := ParseWebhookEvent([]byte(`{`)); !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("bad json: want ErrInvalidPayload got=%v", err)
	}
}
