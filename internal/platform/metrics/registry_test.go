package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegistry_NilIsSafe(t *testing.T) {
	var r *Registry
	r.RecordPublish("image_data", 1, 0)
	r.StreamOpened("webhook", "sse")
	r.StreamClosed("webhook", "sse")
	r.FrameDropped("webhook")
	r.RecordWebhook("call_ended", "published")
	r.RecordUpstream("groq", time.Now(), nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil registry should 404, got %d", rec.Code)
	}
}

func TestRegistry_Counters(t *testing.T) {
	r := NewRegistry()

	r.RecordPublish("image_data", 2, 1)
	r.RecordWebhook("call_ended", "duplicate")
	r.RecordWebhook("call_ended", "duplicate")
	r.RecordWebhook("call_ended", "published")
	r.StreamOpened("image", "sse")
	r.StreamOpened("image", "sse")
	r.StreamClosed("image", "sse")
	r.RecordUpstream("groq", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(r.busDelivered.WithLabelValues("image_data")); got != 2 {
		t.Fatalf("delivered = %v", got)
	}
	if got := testutil.ToFloat64(r.busCallbackPanic.WithLabelValues("image_data")); got != 1 {
		t.Fatalf("callback failures = %v", got)
	}
	if got := testutil.ToFloat64(r.duplicatesDropped); got != 2 {
		t.Fatalf("duplicates = %v", got)
	}
	if got := testutil.ToFloat64(r.streamsActive.WithLabelValues("image", "sse")); got != 1 {
		t.Fatalf("active streams = %v", got)
	}
	if got := testutil.ToFloat64(r.upstreamTotal.WithLabelValues("groq", "error")); got != 1 {
		t.Fatalf("upstream errors = %v", got)
	}
}

func TestRegistry_HandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.RecordWebhook("call_started", "ignored")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "webhook_events_total") {
		t.Fatalf("webhook_events_total missing from exposition")
	}
}
