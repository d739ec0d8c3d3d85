package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTransition(t *testing.T) {
	before := testutil.ToFloat64(formTransitions.WithLabelValues("APPROVED"))
	ObserveTransition("APPROVED")
	ObserveTransition("APPROVED")
	after := testutil.ToFloat64(formTransitions.WithLabelValues("APPROVED"))

	if after-before != 2 {
		t.Errorf("Expected counter to grow by 2, got %v", after-before)
	}
}

func TestObserveReportCache(t *testing.T) {
	hits := testutil.ToFloat64(reportCacheLookups.WithLabelValues("hit"))
	misses := testutil.ToFloat64(reportCacheLookups.WithLabelValues("miss"))

	ObserveReportCache(true)
	ObserveReportCache(false)
	ObserveReportCache(false)

	if got := testutil.ToFloat64(reportCacheLookups.WithLabelValues("hit")) - hits; got != 1 {
		t.Errorf("Expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(reportCacheLookups.WithLabelValues("miss")) - misses; got != 2 {
		t.Errorf("Expected 2 misses, got %v", got)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest("GET", "/api/v1/forms", "200", 15*time.Millisecond)

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/v1/forms", "200")); got < 1 {
		t.Errorf("Expected request counter >= 1, got %v", got)
	}
}
