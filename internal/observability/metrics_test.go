package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()
	m.IncProgressSample("sample", "applied")
	m.IncWebhookEvent("video.delete", "applied")
	m.ObserveJobRun("video_status_check", "succeeded", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler status: want=503 got=%d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("POST", "/api/progress/sample", "200", 20*time.Millisecond)
	m.IncProgressSample("sample", "applied")
	m.ObserveAggregateOperation("Learning.LessonProgress.RecordSample", "success", time.Millisecond)
	m.IncAggregateConflict("Learning.LessonProgress.RecordSample")
	m.IncRecompute("lesson_completed", "changed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`ct_api_requests_total{method="POST",route="/api/progress/sample",status="200"} 1`,
		`ct_progress_samples_total{kind="sample",outcome="applied"} 1`,
		`ct_aggregate_conflicts_total{operation="Learning.LessonProgress.RecordSample"} 1`,
		`ct_enrollment_recomputes_total{outcome="changed",trigger="lesson_completed"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}
