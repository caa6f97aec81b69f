package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"triage-backend/internal/tickets"
)

func newTestService(repo Repo) *Service {
	svc := NewService(repo, 0)
	svc.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	svc.newID = func() string { return "0f8e7a6b-1111-2222-3333-444455556666" }
	return svc
}

func TestSubmitResolved(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	ack, err := svc.Submit(context.Background(), Submission{SessionID: "s1", Resolved: true, PredictedModule: tickets.ModuleVPN})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	want := Ack{ID: "0f8e7a6b-1111-2222-3333-444455556666", Status: StatusSuccess, Resolved: true, Message: MessageResolved}
	if diff := cmp.Diff(want, ack); diff != "" {
		t.Fatalf("ack mismatch (-want +got):\n%s", diff)
	}
	recs := repo.Records()
	if len(recs) != 1 || recs[0].SupportTicketNo != "" || recs[0].PredictedModule != tickets.ModuleVPN {
		t.Fatalf("unexpected records: %+v", recs)
	}
}

func TestSubmitNotResolvedOpensTicket(t *testing.T) {
	repo := NewMemoryRepo()
	svc := newTestService(repo)

	ack, err := svc.Submit(context.Background(), Submission{Resolved: false})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if ack.Message != MessageTicketCreated || ack.SupportTicketNo != "SUP-0F8E7A6B" {
		t.Fatalf("unexpected ack: %+v", ack)
	}
	stats, _ := svc.Stats(context.Background())
	if stats.Total != 1 || stats.Unresolved != 1 || stats.DeflectionRate() != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

type failingRepo struct{ MemoryRepo }

func (f *failingRepo) Create(ctx context.Context, rec Record) error { return errors.New("db down") }

func TestSubmitPropagatesRepoError(t *testing.T) {
	svc := newTestService(&failingRepo{})
	if _, err := svc.Submit(context.Background(), Submission{Resolved: true}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSubmitHonoursCancellation(t *testing.T) {
	svc := newTestService(NewMemoryRepo())
	svc.Latency = time.Hour
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Submit(ctx, Submission{Resolved: true}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStatsDeflectionRate(t *testing.T) {
	s := Stats{Total: 4, Resolved: 3, Unresolved: 1}
	if got := s.DeflectionRate(); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
}
