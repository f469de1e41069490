package vimeo

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const SignatureHeader = "X-Vimeo-Webhook-Signature"

const (
	EventUploadComplete    = "video.upload.complete"
	EventTranscodeComplete = "video.transcode.complete"
	EventDelete            = "video.delete"
)

var (
	ErrInvalidSignature = errors.New("vimeo: invalid webhook signature")
	ErrInvalidPayload   = errors.New("vimeo: invalid webhook payload")
)

type WebhookEvent struct {
	Type        string `json:"type"`
	CreatedTime string `json:"created_time,omitempty"`
	Data        struct {
		URI      string   `json:"uri"`
		Duration *float64 `json:"duration,omitempty"`
	} `json:"data"`
}

func (e *WebhookEvent) VideoID() string {
	return VideoIDFromURI(e.Data.URI)
}

// EventTime returns created_time, or fallback when it is absent or unparseable.
func (e *WebhookEvent) EventTime(fallback time.Time) time.Time {
	if t, ok := parseTime(e.CreatedTime); ok {
		return t
	}
	return fallback.UTC()
}

func parseTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// DurationSeconds rounds the reported duration; 0 means absent.
func (e *WebhookEvent) DurationSeconds() int {
	if e.Data.Duration == nil || *e.Data.Duration <= 0 {
		return 0
	}
	return int(*e.Data.Duration + 0.5)
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.Join(ErrInvalidPayload, err)
	}
	ev.Type = strings.TrimSpace(ev.Type)
	if ev.Type == "" {
		return nil, errors.Join(ErrInvalidPayload, errors.New("missing type"))
	}
	return &ev, nil
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature accepts any signature when secret is empty.
func VerifySignature(secret string, body []byte, signature string) error {
	if secret == "" {
		return nil
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) == 0 {
		return ErrInvalidSignature
	}
	want, _ := hex.DecodeString(Sign(secret, body))
	if !hmac.Equal(got, want) {
		return ErrInvalidSignature
	}
	return nil
}
