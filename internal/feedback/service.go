package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"triage-backend/internal/shared/metrics"
	"triage-backend/internal/shared/telemetry"
)

// Service is the feedback sink. Unresolved feedback opens a support ticket.
type Service struct {
	Repo    Repo
	Latency time.Duration

	now   func() time.Time
	newID func() string
}

func NewService(repo Repo, latency time.Duration) *Service {
	return &Service{Repo: repo, Latency: latency}
}

// Submit records feedback and returns the acknowledgement.
func (s *Service) Submit(ctx context.Context, sub Submission) (Ack, error) {
	if err := wait(ctx, s.Latency); err != nil {
		return Ack{}, err
	}

	rec := Record{
		ID:                s.id(),
		SessionID:         sub.SessionID,
		Resolved:          sub.Resolved,
		Description:       sub.Description,
		PredictedModule:   sub.PredictedModule,
		PredictedPriority: sub.PredictedPriority,
		CreatedAt:         s.clock().UTC(),
	}
	if !sub.Resolved {
		rec.SupportTicketNo = supportTicketNo(rec.ID)
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		return Ack{}, fmt.Errorf("record feedback: %w", err)
	}
	metrics.IncFeedback(sub.Resolved)

	ack := Ack{
		ID:              rec.ID,
		Status:          StatusSuccess,
		Resolved:        rec.Resolved,
		SupportTicketNo: rec.SupportTicketNo,
		Message:         MessageResolved,
	}
	if !rec.Resolved {
		ack.Message = MessageTicketCreated
	}
	telemetry.Info("feedback.recorded", map[string]any{
		"feedback_id":       rec.ID,
		"session_id":        rec.SessionID,
		"resolved":          rec.Resolved,
		"support_ticket_no": rec.SupportTicketNo,
	})
	return ack, nil
}

// Stats returns the aggregate feedback counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.Repo.Stats(ctx)
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) id() string {
	if s.newID != nil {
		return s.newID()
	}
	return uuid.NewString()
}

func supportTicketNo(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "SUP-" + strings.ToUpper(compact)
}

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
