package tickets

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores the knowledge base in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu    sync.RWMutex
	byNo  map[string]SolvedTicket
	order []string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byNo: make(map[string]SolvedTicket)}
}

func (r *MemoryRepo) List(ctx context.Context, limit int) ([]SolvedTicket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]SolvedTicket, 0, len(r.order))
	for _, no := range r.order {
		out = append(out, r.byNo[no])
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return similarityRank(out[i]) > similarityRank(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return CloneTickets(out), nil
}

func (r *MemoryRepo) Get(ctx context.Context, ticketNo string) (SolvedTicket, error) {
	if err := ctx.Err(); err != nil {
		return SolvedTicket{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byNo[ticketNo]
	if !ok {
		return SolvedTicket{}, ErrNotFound
	}
	return CloneTickets([]SolvedTicket{t})[0], nil
}

func (r *MemoryRepo) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byNo), nil
}

func (r *MemoryRepo) Upsert(ctx context.Context, source string, tickets []SolvedTicket) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	written := 0
	for _, t := range CloneTickets(tickets) {
		if t.TicketNo == "" {
			continue
		}
		if _, exists := r.byNo[t.TicketNo]; !exists {
			r.order = append(r.order, t.TicketNo)
		}
		r.byNo[t.TicketNo] = t
		written++
	}
	return written, nil
}

// similarityRank places tickets without a score after every scored ticket.
func similarityRank(t SolvedTicket) float64 {
	if t.Similarity == nil {
		return -1
	}
	return *t.Similarity
}
