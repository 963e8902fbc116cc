package promadapter

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestConnectionCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)

	a.ConnectionAccepted()
	a.ConnectionAccepted()
	a.ConnectionClosed()

	if v := counterValue(t, a.connectionsAccepted); v != 2 {
		t.Fatalf("expected 2 accepted connections, got %v", v)
	}
	if v := counterValue(t, a.connectionsClosed); v != 1 {
		t.Fatalf("expected 1 closed connection, got %v", v)
	}
}

func TestRequestCompletedLabelsByStatusClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)

	a.RequestCompleted(200, 10*time.Millisecond, 100, 200)
	a.RequestCompleted(404, 5*time.Millisecond, 10, 20)

	if v := counterValue(t, a.requestsTotal.WithLabelValues("2xx")); v != 1 {
		t.Fatalf("expected one 2xx request, got %v", v)
	}
	if v := counterValue(t, a.requestsTotal.WithLabelValues("4xx")); v != 1 {
		t.Fatalf("expected one 4xx request, got %v", v)
	}
}

func TestCompressionAppliedObservesRatio(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)

	a.CompressionApplied("gzip", 1000, 250)

	m := &dto.Metric{}
	if err := a.compressionRatio.WithLabelValues("gzip").(prometheus.Histogram).Write(m); err != nil {
		t.Fatalf("unexpected error writing metric: %v", err)
	}
	if m.GetHistogram().GetSampleCount() != 1 {
		t.Fatalf("expected one observation")
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("unexpected error writing metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
