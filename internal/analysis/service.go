package analysis

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/telemetry"
	"triage-backend/internal/tickets"
)

// MinQueryLength is the shortest query the lookup answers with results.
const MinQueryLength = 10

const (
	similarLimit  = 2
	analysisLimit = 3
)

// Service is the mocked analysis backend. It answers from the knowledge base
// after a simulated network latency.
type Service struct {
	KB             tickets.Repo
	Suggestion     string
	AnalyzeLatency time.Duration
	LookupLatency  time.Duration
}

// LookupSimilar returns the tickets most related to query. Queries shorter than
// MinQueryLength return an empty list without waiting.
func (s *Service) LookupSimilar(ctx context.Context, query string) ([]tickets.SolvedTicket, error) {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []tickets.SolvedTicket{}, nil
	}
	if err := wait(ctx, s.LookupLatency); err != nil {
		return nil, err
	}
	metrics.IncLookups()
	found, err := s.KB.List(ctx, similarLimit)
	if err != nil {
		return nil, fmt.Errorf("list knowledge base: %w", err)
	}
	if found == nil {
		found = []tickets.SolvedTicket{}
	}
	return found, nil
}

// Analyze classifies a submission. Module and priority hints are returned verbatim
// when present.
func (s *Service) Analyze(ctx context.Context, req tickets.AnalysisRequest) (tickets.AnalysisResult, error) {
	if req.Description == "" && req.Attachment == nil {
		return tickets.AnalysisResult{}, ErrValidation
	}
	start := time.Now()
	if err := wait(ctx, s.AnalyzeLatency); err != nil {
		return tickets.AnalysisResult{}, err
	}

	similar, err := s.KB.List(ctx, analysisLimit)
	if err != nil {
		return tickets.AnalysisResult{}, fmt.Errorf("list knowledge base: %w", err)
	}
	if similar == nil {
		similar = []tickets.SolvedTicket{}
	}

	result := tickets.AnalysisResult{
		PredictedModule:   req.Module,
		PredictedPriority: req.Priority,
		SimilarIssues:     similar,
		AISuggestion:      s.Suggestion,
	}
	if result.PredictedModule == "" {
		result.PredictedModule = tickets.DefaultModule
	}
	if result.PredictedPriority == "" {
		result.PredictedPriority = tickets.DefaultPriority
	}

	telemetry.Info("analysis.complete", map[string]any{
		"predicted_module":   result.PredictedModule,
		"predicted_priority": result.PredictedPriority,
		"has_attachment":     req.Attachment != nil,
		"similar_count":      len(similar),
		"duration_ms":        time.Since(start).Milliseconds(),
	})
	return result, nil
}

// wait blocks for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
