package feedback

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, rec Record) error {
	const query = `
INSERT INTO feedback (
	id, session_id, resolved, support_ticket_no, predicted_module, predicted_priority, description, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.ExecContext(ctx, query,
		rec.ID,
		nullString(rec.SessionID),
		rec.Resolved,
		nullString(rec.SupportTicketNo),
		nullString(string(rec.PredictedModule)),
		nullString(string(rec.PredictedPriority)),
		nullString(rec.Description),
		rec.CreatedAt,
	)
	return err
}

func (r *PGRepo) Stats(ctx context.Context) (Stats, error) {
	const query = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE resolved)
FROM feedback`
	var s Stats
	if err := r.DB.QueryRowContext(ctx, query).Scan(&s.Total, &s.Resolved); err != nil {
		return Stats{}, err
	}
	s.Unresolved = s.Total - s.Resolved
	return s, nil
}

func nullString(v string) sql.NullString {
	if v == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: v, Valid: true}
}
