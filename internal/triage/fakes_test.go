package triage

import (
	"context"
	"sync"
	"testing"
	"time"

	"triage-backend/internal/feedback"
	"triage-backend/internal/tickets"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock *fakeClock
	at    time.Time
	f     func()
	done  bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, running due callbacks in deadline order on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.done || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.done = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()
		next.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	return true
}

type fakeLookup struct {
	mu      sync.Mutex
	queries []string
	result  []tickets.SolvedTicket
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeLookup) LookupSimilar(ctx context.Context, query string) ([]tickets.SolvedTicket, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	entered, release := f.entered, f.release
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return f.result, f.err
}

func (f *fakeLookup) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

type fakeAnalyzer struct {
	mu       sync.Mutex
	requests []tickets.AnalysisRequest
	result   tickets.AnalysisResult
	err      error
	panicMsg string
	// release, when set, blocks Analyze until it is closed or the context ends.
	release chan struct{}
	ctxErr  chan error
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, req tickets.AnalysisRequest) (tickets.AnalysisResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	release, ctxErr := f.release, f.ctxErr
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			if ctxErr != nil {
				ctxErr <- ctx.Err()
			}
			return tickets.AnalysisResult{}, ctx.Err()
		}
	}
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.result, f.err
}

func (f *fakeAnalyzer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeSink struct {
	mu      sync.Mutex
	calls   []bool
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeSink) Submit(ctx context.Context, sub feedback.Submission) (feedback.Ack, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sub.Resolved)
	entered, release, err := f.entered, f.release, f.err
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return feedback.Ack{}, ctx.Err()
		}
	}
	if err != nil {
		return feedback.Ack{}, err
	}
	ack := feedback.Ack{Status: feedback.StatusSuccess, Resolved: sub.Resolved, Message: feedback.MessageResolved}
	if !sub.Resolved {
		ack.Message = feedback.MessageTicketCreated
		ack.SupportTicketNo = "SUP-TEST"
	}
	return ack, nil
}

func (f *fakeSink) Calls() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.calls...)
}

type harness struct {
	clock    *fakeClock
	lookup   *fakeLookup
	analyzer *fakeAnalyzer
	sink     *fakeSink
	session  *Session
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		lookup:   &fakeLookup{},
		analyzer: &fakeAnalyzer{result: sampleResult()},
		sink:     &fakeSink{},
	}
	h.session = NewSession("sess-1", h.config())
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) config() Config {
	return Config{
		Analyzer:   h.analyzer,
		Lookup:     h.lookup,
		Feedback:   h.sink,
		Clock:      h.clock,
		Debounce:   DefaultDebounce,
		ResetDelay: DefaultResetDelay,
	}
}

func sampleResult() tickets.AnalysisResult {
	score := 0.92
	return tickets.AnalysisResult{
		PredictedModule:   tickets.ModuleVPN,
		PredictedPriority: tickets.PriorityMedium,
		SimilarIssues: []tickets.SolvedTicket{{
			TicketNo:           "TKT-01928",
			ProblemDescription: "Cannot connect to the company VPN from my home network.",
			SolutionText:       "Cleared the VPN client cache.",
			Similarity:         &score,
		}},
		AISuggestion: "Restart your VPN client.",
	}
}

// waitForState blocks until the session reaches want or fails the test.
func waitForState(t *testing.T, s *Session, want State) View {
	t.Helper()
	views, cancel := s.Subscribe()
	defer cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-views:
			if !ok {
				t.Fatalf("session closed while waiting for %s", want)
			}
			if v.State == want {
				return v
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s, state is %s", want, s.State())
		}
	}
}

// reachSolution drives the harness session through a successful analysis.
func (h *harness) reachSolution(t *testing.T) View {
	t.Helper()
	if err := h.session.SetDescription("VPN will not connect from home"); err != nil {
		t.Fatalf("SetDescription: %v", err)
	}
	if err := h.session.Analyze(); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return waitForState(t, h.session, StateSolution)
}
