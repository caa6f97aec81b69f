package tickets

import "context"

// Source values recorded with knowledge-base rows.
const (
	SourceSeed   = "seed"
	SourceUpload = "upload"
)

// Repo defines persistence operations for the knowledge base.
type Repo interface {
	// List returns up to limit tickets ordered by similarity, highest first.
	// A limit <= 0 returns every ticket.
	List(ctx context.Context, limit int) ([]SolvedTicket, error)
	Get(ctx context.Context, ticketNo string) (SolvedTicket, error)
	Count(ctx context.Context) (int, error)
	// Upsert inserts or replaces tickets by ticket number and reports how many were written.
	Upsert(ctx context.Context, source string, tickets []SolvedTicket) (int, error)
}
