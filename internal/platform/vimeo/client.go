package vimeo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/coursetrack-backend/internal/platform/ctxutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/envutil"
	"github.com/yungbote/coursetrack-backend/internal/platform/logger"
)

const defaultBaseURL = "https://api.vimeo.com"

// Progress values reported under upload.status and transcode.status.
const (
	StateInProgress = "in_progress"
	StateComplete   = "complete"
	StateError      = "error"
)

var ErrVideoNotFound = errors.New("vimeo: video not found")

type Client interface {
	GetVideoStatus(ctx context.Context, videoID string) (*VideoStatus, error)
}

type Config struct {
	AccessToken string
	BaseURL     string
	Timeout     time.Duration
	RetryCount  int
}

func ConfigFromEnv() Config {
	return Config{
		AccessToken: envutil.String("VIMEO_ACCESS_TOKEN", ""),
		BaseURL:     envutil.String("VIMEO_BASE_URL", defaultBaseURL),
		Timeout:     envutil.Duration("VIMEO_TIMEOUT_SECONDS", 20*time.Second),
		RetryCount:  envutil.Int("VIMEO_MAX_RETRIES", 2),
	}
}

// VideoStatus is the subset of GET /videos/{id} the poll job needs.
type VideoStatus struct {
	Status          string `json:"status"`
	UploadStatus    string `json:"upload_status"`
	TranscodeStatus string `json:"transcode_status"`
	DurationSeconds int    `json:"duration"`
	IsPlayable      bool   `json:"is_playable"`
	// ModifiedAt is the provider's modified_time; zero when absent.
	ModifiedAt time.Time `json:"modified_at"`
}

// EventTime returns ModifiedAt, or fallback when the provider sent none.
func (s *VideoStatus) EventTime(fallback time.Time) time.Time {
	if s == nil || s.ModifiedAt.IsZero() {
		return fallback.UTC()
	}
	return s.ModifiedAt
}

func (s *VideoStatus) InProgress() bool {
	if s == nil {
		return false
	}
	return s.TranscodeStatus == StateInProgress || s.UploadStatus == StateInProgress
}

func (s *VideoStatus) Ready() bool {
	if s == nil {
		return false
	}
	return s.IsPlayable && s.TranscodeStatus == StateComplete
}

type videoResponse struct {
	URI      string `json:"uri"`
	Status   string `json:"status"`
	Duration int    `json:"duration"`
	Modified string `json:"modified_time"`
	Playable *bool  `json:"is_playable"`
	Upload   *struct {
		Status string `json:"status"`
	} `json:"upload"`
	Transcode *struct {
		Status string `json:"status"`
	} `json:"transcode"`
}

type apiError struct {
	Error            string `json:"error"`
	DeveloperMessage string `json:"developer_message"`
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "vimeo: <nil error>"
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("vimeo http %d: %s", e.StatusCode, msg)
}

type client struct {
	log  *logger.Logger
	http *resty.Client
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("missing VIMEO_ACCESS_TOKEN")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.RetryCount < 0 {
		cfg.RetryCount = 0
	}

	rc := resty.New().
		SetBaseURL(base).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Accept", "application/vnd.vimeo.*+json;version=3.4").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	return &client{
		log:  log.With("client", "VimeoClient"),
		http: rc,
	}, nil
}

func (c *client) GetVideoStatus(ctx context.Context, videoID string) (*VideoStatus, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("vimeo: video id required")
	}
	var out videoResponse
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctxutil.Default(ctx)).
		SetPathParam("id", videoID).
		SetQueryParam("fields", "uri,status,duration,modified_time,is_playable,upload.status,transcode.status").
		SetResult(&out).
		SetError(&apiErr).
		Get("/videos/{id}")
	if err != nil {
		return nil, fmt.Errorf("vimeo get video: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrVideoNotFound
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = apiErr.DeveloperMessage
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Message: msg}
	}
	c.log.Debug("vimeo video status", "video_id", videoID, "status", out.Status)
	return toVideoStatus(out), nil
}

func toVideoStatus(in videoResponse) *VideoStatus {
	st := &VideoStatus{
		Status:          orUnknown(in.Status),
		UploadStatus:    "unknown",
		TranscodeStatus: "unknown",
		DurationSeconds: in.Duration,
	}
	if in.Upload != nil {
		st.UploadStatus = orUnknown(in.Upload.Status)
	}
	if in.Transcode != nil {
		st.TranscodeStatus = orUnknown(in.Transcode.Status)
	}
	if in.Playable != nil {
		st.IsPlayable = *in.Playable
	}
	if t, ok := parseTime(in.Modified); ok {
		st.ModifiedAt = t
	}
	return st
}

// VideoIDFromURI returns the last path segment of a "/videos/{id}" uri.
func VideoIDFromURI(uri string) string {
	uri = strings.TrimSpace(uri)
	uri = strings.TrimRight(uri, "/")
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		uri = uri[i+1:]
	}
	return uri
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}
