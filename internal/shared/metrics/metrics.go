package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

type counter struct {
	name  string
	help  string
	value atomic.Uint64
}

var (
	sessionsCreated    = &counter{name: "triage_sessions_created_total", help: "Triage sessions created"}
	sessionsClosed     = &counter{name: "triage_sessions_closed_total", help: "Triage sessions closed or evicted"}
	lookupsIssued      = &counter{name: "triage_similarity_lookups_total", help: "Similarity lookups issued after debounce"}
	analysisStarted    = &counter{name: "triage_analysis_started_total", help: "Analyses started"}
	analysisCompleted  = &counter{name: "triage_analysis_completed_total", help: "Analyses completed"}
	analysisFailed     = &counter{name: "triage_analysis_failed_total", help: "Analyses failed or timed out"}
	feedbackResolved   = &counter{name: "triage_feedback_resolved_total", help: "Feedback reporting the issue resolved"}
	feedbackUnresolved = &counter{name: "triage_feedback_unresolved_total", help: "Feedback that opened a support ticket"}
	trainingStarted    = &counter{name: "kb_training_jobs_started_total", help: "Knowledge-base training jobs started"}
	httpPanics         = &counter{name: "http_panics_recovered_total", help: "Handler panics recovered by middleware"}

	counters = []*counter{
		sessionsCreated, sessionsClosed, lookupsIssued,
		analysisStarted, analysisCompleted, analysisFailed,
		feedbackResolved, feedbackUnresolved, trainingStarted,
		httpPanics,
	}

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000})
)

func IncSessionsCreated()   { sessionsCreated.value.Add(1) }
func IncSessionsClosed()    { sessionsClosed.value.Add(1) }
func IncLookups()           { lookupsIssued.value.Add(1) }
func IncAnalysisStarted()   { analysisStarted.value.Add(1) }
func IncAnalysisCompleted() { analysisCompleted.value.Add(1) }
func IncAnalysisFailed()    { analysisFailed.value.Add(1) }
func IncTrainingStarted()   { trainingStarted.value.Add(1) }
func IncPanics()            { httpPanics.value.Add(1) }

// IncFeedback counts a feedback submission by outcome.
func IncFeedback(resolved bool) {
	if resolved {
		feedbackResolved.value.Add(1)
		return
	}
	feedbackUnresolved.value.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	for _, c := range counters {
		fmt.Fprintf(&buf, "# HELP %s %s\n", c.name, c.help)
		fmt.Fprintf(&buf, "# TYPE %s counter\n", c.name)
		fmt.Fprintf(&buf, "%s %d\n", c.name, c.value.Load())
	}
	writeHistogram(&buf, "triage_analysis_duration_ms", "Analysis duration in milliseconds", analysisDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe records value in the first bucket whose bound holds it.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
