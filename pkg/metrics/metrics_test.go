package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	if r.NavigatorLookupsTotal == nil {
		t.Error("NavigatorLookupsTotal not initialized")
	}
	if r.NavigatorIndexEntries == nil {
		t.Error("NavigatorIndexEntries not initialized")
	}
	if r.LogAppendsTotal == nil {
		t.Error("LogAppendsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordLookup(t *testing.T) {
	r := NewRegistry()

	r.RecordLookup("address_of", ResultHit, 0, time.Microsecond)
	r.RecordLookup("address_of", ResultScan, 3, 10*time.Microsecond)
	r.RecordLookup("address_of", ResultScan, 5, 10*time.Microsecond)
	r.RecordLookup("stream_at", ResultNotFound, 8, time.Millisecond)

	tests := []struct {
		operation, result string
		want              float64
	}{
		{"address_of", ResultHit, 1},
		{"address_of", ResultScan, 2},
		{"stream_at", ResultNotFound, 1},
	}
	for _, tt := range tests {
		c, err := r.NavigatorLookupsTotal.GetMetricWithLabelValues(tt.operation, tt.result)
		if err != nil {
			t.Fatalf("Failed to get metric: %v", err)
		}
		if got := counterValue(t, c); got != tt.want {
			t.Errorf("lookups{%s,%s} = %v, want %v", tt.operation, tt.result, got, tt.want)
		}
	}

	var metric dto.Metric
	if err := r.NavigatorEntriesScanned.Write(&metric); err != nil {
		t.Fatalf("Failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("scanned sample count = %d, want 3", metric.Histogram.GetSampleCount())
	}
	if metric.Histogram.GetSampleSum() != 16 {
		t.Errorf("scanned sample sum = %v, want 16", metric.Histogram.GetSampleSum())
	}
}

func TestLogGauges(t *testing.T) {
	r := NewRegistry()

	r.SetIndexSize("a", 4)
	r.SetLogState("a", 1024, 99)
	r.RecordAppend(3, 300)
	r.RecordTruncation()
	r.RecordIndexTruncation()

	if got := gaugeValue(t, r.NavigatorIndexEntries.WithLabelValues("a")); got != 4 {
		t.Errorf("index entries = %v, want 4", got)
	}
	if got := gaugeValue(t, r.LogSizeBytes.WithLabelValues("a")); got != 1024 {
		t.Errorf("size = %v, want 1024", got)
	}
	if got := gaugeValue(t, r.LogLastSeqNum.WithLabelValues("a")); got != 99 {
		t.Errorf("last seq = %v, want 99", got)
	}
	if got := counterValue(t, r.LogAppendsTotal); got != 3 {
		t.Errorf("appends = %v, want 3", got)
	}
	if got := counterValue(t, r.LogAppendBytesTotal); got != 300 {
		t.Errorf("append bytes = %v, want 300", got)
	}
	if got := counterValue(t, r.LogTruncationsTotal); got != 1 {
		t.Errorf("truncations = %v, want 1", got)
	}
	if got := counterValue(t, r.NavigatorTruncationsTotal); got != 1 {
		t.Errorf("index truncations = %v, want 1", got)
	}
}

func TestHandlerAndForget(t *testing.T) {
	r := NewRegistry()
	r.SetLogState("gone", 10, 1)
	r.SetIndexSize("gone", 1)

	scrape := func() string {
		rec := httptest.NewRecorder()
		r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
		body, _ := io.ReadAll(rec.Body)
		return string(body)
	}

	if body := scrape(); !strings.Contains(body, `seqlog_log_size_bytes{log="gone"} 10`) {
		t.Errorf("scrape missing log size series:\n%s", body)
	}

	r.Forget("gone")
	if body := scrape(); strings.Contains(body, `log="gone"`) {
		t.Errorf("series for forgotten log still exported:\n%s", body)
	}
}
