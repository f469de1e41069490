package observability

import "testing"

func TestOTLPHeadersParsing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "x-api-key=abc, bad, =empty,tenant = t1")
	h := otlpHeaders()
	if len(h) != 2 {
		t.Fatalf("header count: want=2 got=%d (%v)", len(h), h)
	}
	if h["x-api-key"] != "abc" || h["tenant"] != "t1" {
		t.Fatalf("unexpected headers: %v", h)
	}
}

func TestSampleRatioClamped(t *testing.T) {
	t.Setenv("OTEL_SAMPLER_RATIO", "3")
	if got := sampleRatio(); got != 1 {
		t.Fatalf("ratio: want=1 got=%v", got)
	}
	t.Setenv("OTEL_SAMPLER_RATIO", "-1")
	if got := sampleRatio(); got != 0 {
		t.Fatalf("ratio: want=0 got=%v", got)
	}
}
