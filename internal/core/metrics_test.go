package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "create_vessels", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "create_vessels", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, 0)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_vessels", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_vessels", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}
