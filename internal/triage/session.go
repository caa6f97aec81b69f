package triage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"triage-backend/internal/feedback"
	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/telemetry"
	"triage-backend/internal/tickets"
)

const (
	// SimilarityThreshold is the description length, in characters, that must be
	// exceeded before similar tickets are looked up.
	SimilarityThreshold = 10

	DefaultDebounce   = 500 * time.Millisecond
	DefaultResetDelay = 4 * time.Second
)

// Analyzer classifies a submission.
type Analyzer interface {
	Analyze(ctx context.Context, req tickets.AnalysisRequest) (tickets.AnalysisResult, error)
}

// SimilarityLookup finds historical tickets related to partial input.
type SimilarityLookup interface {
	LookupSimilar(ctx context.Context, query string) ([]tickets.SolvedTicket, error)
}

// FeedbackSink records whether a suggested solution resolved the issue.
type FeedbackSink interface {
	Submit(ctx context.Context, sub feedback.Submission) (feedback.Ack, error)
}

// Config holds the collaborators and timings shared by sessions.
type Config struct {
	Analyzer Analyzer
	Lookup   SimilarityLookup
	Feedback FeedbackSink
	Clock    Clock

	Debounce       time.Duration
	ResetDelay     time.Duration
	AnalyzeTimeout time.Duration

	// OnDiscard is called, outside the session lock, for every attachment the
	// session stops referencing.
	OnDiscard func(tickets.Attachment)
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = RealClock()
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.ResetDelay <= 0 {
		c.ResetDelay = DefaultResetDelay
	}
	return c
}

// Submission is the user's in-progress issue report.
type Submission struct {
	Description string              `json:"description"`
	Attachment  *tickets.Attachment `json:"attachment,omitempty"`
	Module      tickets.Module      `json:"module,omitempty"`
	Priority    tickets.Priority    `json:"priority,omitempty"`
}

func (s Submission) ready() bool {
	return s.Description != "" || s.Attachment != nil
}

func (s Submission) clone() Submission {
	out := s
	if s.Attachment != nil {
		att := *s.Attachment
		out.Attachment = &att
	}
	return out
}

// Session drives one user through submission, analysis, solution, confirmation
// and back. All methods are safe for concurrent use.
type Session struct {
	id  string
	cfg Config

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	state         State
	sub           Submission
	similar       []tickets.SolvedTicket
	result        *tickets.AnalysisResult
	confirmation  string
	supportTicket string
	lastErr       *FlowError
	version       uint64
	lastActive    time.Time
	closed        bool

	debounce      Timer
	lookupSeq     uint64
	lookupCancel  context.CancelFunc
	analyzeSeq    uint64
	analyzeCancel context.CancelFunc
	analyzeStart  time.Time
	feedbackBusy  bool
	reset         Timer
	cycle         uint64

	subs    map[int]chan View
	nextSub int
}

// NewSession creates a session in the submission state.
func NewSession(id string, cfg Config) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:         id,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		state:      StateSubmission,
		lastActive: cfg.Clock.Now(),
		subs:       make(map[int]chan View),
	}
}

func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive reports when the session last changed or was read.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot renders the current view.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = s.cfg.Clock.Now()
	return s.viewLocked()
}

// SetDescription stores the description and schedules or clears the similarity lookup.
func (s *Session) SetDescription(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	s.sub.Description = text
	s.lastErr = nil
	s.cancelLookupLocked()

	if utf8.RuneCountInString(text) > SimilarityThreshold {
		seq := s.lookupSeq
		s.debounce = s.cfg.Clock.AfterFunc(s.cfg.Debounce, func() { s.runLookup(seq) })
	} else {
		s.similar = nil
	}
	s.notifyLocked()
	return nil
}

// SetModule stores the module hint. The zero Module clears it.
func (s *Session) SetModule(m tickets.Module) error {
	if _, err := tickets.ParseModule(string(m)); err != nil {
		return err
	}
	return s.edit(func() { s.sub.Module = m })
}

// SetPriority stores the priority hint. The zero Priority clears it.
func (s *Session) SetPriority(p tickets.Priority) error {
	if _, err := tickets.ParsePriority(string(p)); err != nil {
		return err
	}
	return s.edit(func() { s.sub.Priority = p })
}

// SetAttachment replaces the attachment.
func (s *Session) SetAttachment(att tickets.Attachment) error {
	var dropped *tickets.Attachment
	err := s.edit(func() {
		dropped = s.sub.Attachment
		s.sub.Attachment = &att
	})
	s.discard(dropped)
	return err
}

// ClearAttachment removes the attachment, if any.
func (s *Session) ClearAttachment() error {
	var dropped *tickets.Attachment
	err := s.edit(func() {
		dropped = s.sub.Attachment
		s.sub.Attachment = nil
	})
	s.discard(dropped)
	return err
}

func (s *Session) edit(apply func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	apply()
	s.lastErr = nil
	s.notifyLocked()
	return nil
}

func (s *Session) editableLocked() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.state != StateSubmission {
		return fmt.Errorf("%w: edit in %s", ErrInvalidTransition, s.state)
	}
	return nil
}

// runLookup issues the debounced similarity lookup identified by seq.
func (s *Session) runLookup(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.lookupSeq || s.state != StateSubmission {
		s.mu.Unlock()
		return
	}
	s.debounce = nil
	ctx, cancel := context.WithCancel(s.ctx)
	s.lookupCancel = cancel
	query := s.sub.Description
	s.mu.Unlock()

	found, err := s.cfg.Lookup.LookupSimilar(ctx, query)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.lookupSeq || s.state != StateSubmission {
		return
	}
	s.lookupCancel = nil
	if err != nil {
		telemetry.Warn("triage.lookup_failed", map[string]any{
			"session_id": s.id,
			"error":      err,
		})
		s.similar = nil
	} else {
		s.similar = tickets.CloneTickets(found)
	}
	s.notifyLocked()
}

// cancelLookupLocked invalidates any pending or in-flight lookup.
func (s *Session) cancelLookupLocked() {
	s.lookupSeq++
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if s.lookupCancel != nil {
		s.lookupCancel()
		s.lookupCancel = nil
	}
}

// Analyze validates the submission and starts the analysis call.
func (s *Session) Analyze() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	switch s.state {
	case StateSubmission:
	case StateAnalyzing:
		return ErrAnalysisInFlight
	default:
		return fmt.Errorf("%w: analyze in %s", ErrInvalidTransition, s.state)
	}
	if !s.sub.ready() {
		s.lastErr = &FlowError{Code: ErrorCodeValidation, Message: ErrValidation.Error()}
		s.notifyLocked()
		return ErrValidation
	}

	s.cancelLookupLocked()
	s.lastErr = nil
	s.analyzeSeq++
	seq := s.analyzeSeq
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.cfg.AnalyzeTimeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.cfg.AnalyzeTimeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.analyzeCancel = cancel
	s.analyzeStart = s.cfg.Clock.Now()
	sub := s.sub.clone()
	req := tickets.AnalysisRequest{
		Description: sub.Description,
		Attachment:  sub.Attachment,
		Module:      sub.Module,
		Priority:    sub.Priority,
	}
	s.setStateLocked(StateAnalyzing)
	s.notifyLocked()
	metrics.IncAnalysisStarted()

	go s.runAnalysis(ctx, cancel, seq, req)
	return nil
}

func (s *Session) runAnalysis(ctx context.Context, cancel context.CancelFunc, seq uint64, req tickets.AnalysisRequest) {
	result, err := s.callAnalyzer(ctx, req)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || seq != s.analyzeSeq || s.state != StateAnalyzing {
		return
	}
	s.analyzeCancel = nil
	elapsed := s.cfg.Clock.Now().Sub(s.analyzeStart)

	if err != nil {
		metrics.IncAnalysisFailed()
		msg := "Analysis failed. Your details were kept, please try again."
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "Analysis timed out. Your details were kept, please try again."
		}
		telemetry.Error("triage.analysis_failed", map[string]any{
			"session_id":  s.id,
			"error":       err,
			"duration_ms": elapsed.Milliseconds(),
		})
		s.lastErr = &FlowError{Code: ErrorCodeAnalysisFailed, Message: msg, Retryable: true}
		s.setStateLocked(StateSubmission)
		s.notifyLocked()
		return
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(float64(elapsed.Milliseconds()))
	stored := result.Clone()
	s.result = &stored
	s.setStateLocked(StateSolution)
	s.notifyLocked()
}

func (s *Session) callAnalyzer(ctx context.Context, req tickets.AnalysisRequest) (res tickets.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer panic: %v", r)
		}
	}()
	return s.cfg.Analyzer.Analyze(ctx, req)
}

// Feedback records whether the solution resolved the issue and moves to confirmed.
// On failure the session stays in solution with its result so the call can be retried.
func (s *Session) Feedback(ctx context.Context, resolved bool) (feedback.Ack, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return feedback.Ack{}, ErrSessionClosed
	}
	if s.state != StateSolution {
		state := s.state
		s.mu.Unlock()
		return feedback.Ack{}, fmt.Errorf("%w: feedback in %s", ErrInvalidTransition, state)
	}
	if s.feedbackBusy {
		s.mu.Unlock()
		return feedback.Ack{}, ErrFeedbackInFlight
	}
	s.feedbackBusy = true
	sub := feedback.Submission{
		SessionID:         s.id,
		Resolved:          resolved,
		Description:       s.sub.Description,
		PredictedModule:   s.result.PredictedModule,
		PredictedPriority: s.result.PredictedPriority,
	}
	s.notifyLocked()
	s.mu.Unlock()

	callCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	ack, err := s.cfg.Feedback.Submit(callCtx, sub)
	stop()
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedbackBusy = false
	if s.closed {
		return feedback.Ack{}, ErrSessionClosed
	}
	if err != nil {
		telemetry.Error("triage.feedback_failed", map[string]any{
			"session_id": s.id,
			"resolved":   resolved,
			"error":      err,
		})
		s.lastErr = &FlowError{Code: ErrorCodeFeedbackFailed, Message: ErrFeedbackFailed.Error(), Retryable: true}
		s.notifyLocked()
		return feedback.Ack{}, fmt.Errorf("%w: %v", ErrFeedbackFailed, err)
	}

	s.confirmation = ack.Message
	if s.confirmation == "" {
		s.confirmation = feedback.MessageResolved
		if !resolved {
			s.confirmation = feedback.MessageTicketCreated
		}
	}
	s.supportTicket = ack.SupportTicketNo
	s.result = nil
	s.lastErr = nil
	s.setStateLocked(StateConfirmed)
	cycle := s.cycle
	s.reset = s.cfg.Clock.AfterFunc(s.cfg.ResetDelay, func() { s.autoReset(cycle) })
	s.notifyLocked()
	return ack, nil
}

// autoReset returns a confirmed session to an empty submission form.
func (s *Session) autoReset(cycle uint64) {
	s.mu.Lock()
	if s.closed || cycle != s.cycle || s.state != StateConfirmed {
		s.mu.Unlock()
		return
	}
	dropped := s.sub.Attachment
	s.reset = nil
	s.cycle++
	s.sub = Submission{}
	s.similar = nil
	s.result = nil
	s.confirmation = ""
	s.supportTicket = ""
	s.lastErr = nil
	s.setStateLocked(StateSubmission)
	s.notifyLocked()
	s.mu.Unlock()

	s.discard(dropped)
}

// Subscribe returns a channel that receives the current view and then every
// later view. Slow readers only see the latest view. The channel is closed when
// the session closes or the returned cancel func is called.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.viewLocked()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Subscribers reports how many subscriptions are open.
func (s *Session) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close cancels every pending timer and in-flight call. Later operations
// return ErrSessionClosed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.lookupSeq++
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if s.reset != nil {
		s.reset.Stop()
		s.reset = nil
	}
	if s.lookupCancel != nil {
		s.lookupCancel()
		s.lookupCancel = nil
	}
	if s.analyzeCancel != nil {
		s.analyzeCancel()
		s.analyzeCancel = nil
	}
	s.cancel()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	dropped := s.sub.Attachment
	s.sub.Attachment = nil
	s.mu.Unlock()

	s.discard(dropped)
}

func (s *Session) setStateLocked(to State) {
	from := s.state
	s.state = to
	telemetry.Info("triage.transition", map[string]any{
		"session_id": s.id,
		"transition": transition(from, to),
	})
}

func (s *Session) notifyLocked() {
	s.version++
	s.lastActive = s.cfg.Clock.Now()
	if len(s.subs) == 0 {
		return
	}
	v := s.viewLocked()
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) discard(att *tickets.Attachment) {
	if att == nil || s.cfg.OnDiscard == nil {
		return
	}
	s.cfg.OnDiscard(*att)
}
