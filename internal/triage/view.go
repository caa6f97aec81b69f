package triage

import (
	"fmt"

	"triage-backend/internal/tickets"
)

// View is the rendering of a session at one point in time.
type View struct {
	SessionID       string                  `json:"sessionId"`
	State           State                   `json:"state"`
	Version         uint64                  `json:"version"`
	Submission      Submission              `json:"submission"`
	Similar         []tickets.SolvedTicket  `json:"similarIssues"`
	Result          *tickets.AnalysisResult `json:"result,omitempty"`
	Confirmation    string                  `json:"confirmation,omitempty"`
	SupportTicketNo string                  `json:"supportTicketNo,omitempty"`
	Error           *FlowError              `json:"error,omitempty"`
	Actions         Actions                 `json:"actions"`
}

// Actions lists what the user may do next.
type Actions struct {
	Edit     bool `json:"edit"`
	Analyze  bool `json:"analyze"`
	Feedback bool `json:"feedback"`
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:  s.id,
		State:      s.state,
		Version:    s.version,
		Submission: s.sub.clone(),
		Similar:    []tickets.SolvedTicket{},
	}
	if s.lastErr != nil {
		e := *s.lastErr
		v.Error = &e
	}

	switch s.state {
	case StateSubmission:
		v.Actions = Actions{Edit: true, Analyze: s.sub.ready()}
		if s.similar != nil {
			v.Similar = tickets.CloneTickets(s.similar)
		}
	case StateAnalyzing:
		v.Error = nil
	case StateSolution:
		r := s.result.Clone()
		v.Result = &r
		v.Actions = Actions{Feedback: !s.feedbackBusy}
	case StateConfirmed:
		v.Confirmation = s.confirmation
		v.SupportTicketNo = s.supportTicket
		v.Error = nil
	default:
		panic(fmt.Sprintf("triage: no rendering for %s", s.state))
	}
	return v
}
