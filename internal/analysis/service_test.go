package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"triage-backend/internal/tickets"
)

func newSeededService(t *testing.T) *Service {
	t.Helper()
	seed, err := tickets.LoadSeed("")
	if err != nil {
		t.Fatalf("LoadSeed: %v", err)
	}
	repo := tickets.NewMemoryRepo()
	if err := seed.Apply(context.Background(), repo); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return &Service{KB: repo, Suggestion: seed.Suggestion}
}

func TestLookupSimilarShortQueryReturnsEmpty(t *testing.T) {
	svc := newSeededService(t)
	svc.LookupLatency = time.Hour

	got, err := svc.LookupSimilar(context.Background(), "vpn down")
	if err != nil {
		t.Fatalf("LookupSimilar: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestLookupSimilarReturnsTopTwo(t *testing.T) {
	svc := newSeededService(t)

	got, err := svc.LookupSimilar(context.Background(), "vpn keeps dropping")
	if err != nil {
		t.Fatalf("LookupSimilar: %v", err)
	}
	if len(got) != 2 || got[0].TicketNo != "TKT-01928" || got[1].TicketNo != "TKT-01874" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestLookupSimilarHonoursCancellation(t *testing.T) {
	svc := newSeededService(t)
	svc.LookupLatency = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.LookupSimilar(ctx, "a long enough query"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyzeDefaults(t *testing.T) {
	svc := newSeededService(t)

	got, err := svc.Analyze(context.Background(), tickets.AnalysisRequest{Description: "VPN will not connect from home"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.PredictedModule != tickets.ModuleVPN || got.PredictedPriority != tickets.PriorityMedium {
		t.Fatalf("unexpected defaults: %s / %s", got.PredictedModule, got.PredictedPriority)
	}
	if len(got.SimilarIssues) != 3 {
		t.Fatalf("expected 3 similar issues, got %d", len(got.SimilarIssues))
	}
	if got.AISuggestion != svc.Suggestion {
		t.Fatalf("suggestion mismatch")
	}
}

func TestAnalyzeUsesHintsVerbatim(t *testing.T) {
	svc := newSeededService(t)

	req := tickets.AnalysisRequest{
		Attachment: &tickets.Attachment{Key: "k", FileName: "screen.png"},
		Module:     tickets.ModuleHardware,
		Priority:   tickets.PriorityHigh,
	}
	got, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := struct {
		M tickets.Module
		P tickets.Priority
	}{tickets.ModuleHardware, tickets.PriorityHigh}
	if diff := cmp.Diff(want, struct {
		M tickets.Module
		P tickets.Priority
	}{got.PredictedModule, got.PredictedPriority}); diff != "" {
		t.Fatalf("hint mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeRequiresDescriptionOrAttachment(t *testing.T) {
	svc := newSeededService(t)
	if _, err := svc.Analyze(context.Background(), tickets.AnalysisRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), tickets.AnalysisRequest{Description: "   "}); err != nil {
		t.Fatalf("whitespace description is still input: %v", err)
	}
}

func TestAnalyzeTimesOut(t *testing.T) {
	svc := newSeededService(t)
	svc.AnalyzeLatency = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := svc.Analyze(ctx, tickets.AnalysisRequest{Description: "x"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
