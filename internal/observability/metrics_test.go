package observability

import (
	"testing"
	"time"

	"github.com/danmuck/deskctl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("deskctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordProbe("os", 3*time.Millisecond, true)
	RecordPluginRun("Notification::AgentSessionLimit", "empty")
	RecordPluginRun("Notification::AgentSessionLimit", "empty")

	if got := testutil.ToFloat64(pluginRuns.WithLabelValues("Notification::AgentSessionLimit", "empty")); got != 2 {
		t.Fatalf("expected 2 plugin runs, got %v", got)
	}
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("deskctl", "GET", "/health", "200")); got < 1 {
		t.Fatalf("expected http request counted, got %v", got)
	}
	testlog.Logf("observability/metrics: registration idempotent and recording paths executed")
}
