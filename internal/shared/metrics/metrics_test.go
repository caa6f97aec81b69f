package metrics

import (
	"strings"
	"testing"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected per-bucket counts: %v", snap.counts)
	}
}

func TestRenderIncludesFeedbackCounters(t *testing.T) {
	IncFeedback(true)
	IncFeedback(false)

	out := Render()
	for _, name := range []string{
		"triage_feedback_resolved_total",
		"triage_feedback_unresolved_total",
		"triage_analysis_duration_ms_bucket{le=\"+Inf\"}",
	} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
}
