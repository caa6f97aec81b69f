package tickets

import (
	"fmt"
	"strings"
)

// Module is one of the fixed support areas a ticket can be filed under.
type Module string

const (
	ModuleLogin    Module = "Login & Authentication"
	ModuleVPN      Module = "VPN & Network"
	ModuleSoftware Module = "Software Installation"
	ModuleHardware Module = "Hardware Issues"
	ModuleEmail    Module = "Email & Collaboration"
	ModuleData     Module = "Data & Reporting"
)

// Modules lists every module in display order.
var Modules = []Module{ModuleLogin, ModuleVPN, ModuleSoftware, ModuleHardware, ModuleEmail, ModuleData}

// DefaultModule is predicted when the submitter gives no module hint.
const DefaultModule = ModuleVPN

// Priority is the urgency label of a ticket.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Priorities lists every priority from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// DefaultPriority is predicted when the submitter gives no priority hint.
const DefaultPriority = PriorityMedium

// ParseModule validates raw against the module enumeration.
// An empty string yields the zero Module, meaning "not set".
func ParseModule(raw string) (Module, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, m := range Modules {
		if strings.EqualFold(string(m), raw) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown module %q", ErrInvalidLabel, raw)
}

// ParsePriority validates raw against Low, Medium and High.
// An empty string yields the zero Priority, meaning "not set".
func ParsePriority(raw string) (Priority, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	for _, p := range Priorities {
		if strings.EqualFold(string(p), raw) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidLabel, raw)
}

// SolvedTicket is a historical ticket from the knowledge base.
type SolvedTicket struct {
	TicketNo           string   `json:"ticket_no" yaml:"ticket_no"`
	ProblemDescription string   `json:"problem_description" yaml:"problem_description"`
	SolutionText       string   `json:"solution_text" yaml:"solution_text"`
	Module             Module   `json:"module,omitempty" yaml:"module,omitempty"`
	Similarity         *float64 `json:"similarity,omitempty" yaml:"similarity,omitempty"`
}

// Attachment references an uploaded file held in the object store.
type Attachment struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// AnalysisRequest is the input of one analysis call.
type AnalysisRequest struct {
	Description string
	Attachment  *Attachment
	Module      Module
	Priority    Priority
}

// AnalysisResult is the classification and remediation returned for a submission.
type AnalysisResult struct {
	PredictedModule   Module         `json:"predictedModule"`
	PredictedPriority Priority       `json:"predictedPriority"`
	SimilarIssues     []SolvedTicket `json:"similarIssues"`
	AISuggestion      string         `json:"aiSuggestion"`
}

// Clone returns a deep copy so callers cannot mutate a stored result.
func (r AnalysisResult) Clone() AnalysisResult {
	out := r
	out.SimilarIssues = CloneTickets(r.SimilarIssues)
	return out
}

// CloneTickets deep-copies a ticket slice, keeping nil as nil.
func CloneTickets(in []SolvedTicket) []SolvedTicket {
	if in == nil {
		return nil
	}
	out := make([]SolvedTicket, len(in))
	for i, t := range in {
		out[i] = t
		if t.Similarity != nil {
			v := *t.Similarity
			out[i].Similarity = &v
		}
	}
	return out
}
