package feedback

import (
	"time"

	"triage-backend/internal/tickets"
)

// Confirmation messages shown once feedback is acknowledged.
const (
	MessageResolved      = "Great! We are glad we could help."
	MessageTicketCreated = "Thank you. A support ticket has been created."
)

const StatusSuccess = "success"

// Submission is the input to the feedback sink.
type Submission struct {
	SessionID         string
	Resolved          bool
	Description       string
	PredictedModule   tickets.Module
	PredictedPriority tickets.Priority
}

// Record is a persisted feedback entry.
type Record struct {
	ID                string
	SessionID         string
	Resolved          bool
	SupportTicketNo   string
	Description       string
	PredictedModule   tickets.Module
	PredictedPriority tickets.Priority
	CreatedAt         time.Time
}

// Ack acknowledges a recorded feedback entry.
type Ack struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	Resolved        bool   `json:"resolved"`
	SupportTicketNo string `json:"supportTicketNo,omitempty"`
	Message         string `json:"message"`
}

// Stats aggregates recorded feedback.
type Stats struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}

// DeflectionRate is the share of feedback that resolved without a support ticket.
func (s Stats) DeflectionRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Resolved) / float64(s.Total)
}
