package triage

import "errors"

var (
	ErrNotFound          = errors.New("session not found")
	ErrSessionClosed     = errors.New("session closed")
	ErrValidation        = errors.New("provide a description or an attachment")
	ErrInvalidTransition = errors.New("action not allowed in current state")
	ErrAnalysisInFlight  = errors.New("analysis already in progress")
	ErrFeedbackInFlight  = errors.New("feedback already in progress")
	ErrFeedbackFailed    = errors.New("feedback could not be recorded")
)

const (
	ErrorCodeValidation        = "VALIDATION_ERROR"
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeInvalidTransition = "INVALID_TRANSITION"
	ErrorCodeAnalysisInFlight  = "ANALYSIS_IN_FLIGHT"
	ErrorCodeFeedbackInFlight  = "FEEDBACK_IN_FLIGHT"
	ErrorCodeAnalysisFailed    = "ANALYSIS_FAILED"
	ErrorCodeFeedbackFailed    = "FEEDBACK_FAILED"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeClosed            = "SESSION_CLOSED"
)

// FlowError is the user-facing error attached to a session view.
type FlowError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
