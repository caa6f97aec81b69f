package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) List(ctx context.Context, limit int) ([]SolvedTicket, error) {
	query := `
SELECT ticket_no, problem_description, solution_text, module, similarity
FROM kb_tickets
ORDER BY similarity DESC NULLS LAST, created_at ASC`
	args := []any{}
	if limit > 0 {
		query += "\nLIMIT $1"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SolvedTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepo) Get(ctx context.Context, ticketNo string) (SolvedTicket, error) {
	const query = `
SELECT ticket_no, problem_description, solution_text, module, similarity
FROM kb_tickets
WHERE ticket_no = $1
LIMIT 1`
	t, err := scanTicket(r.DB.QueryRowContext(ctx, query, ticketNo))
	if errors.Is(err, sql.ErrNoRows) {
		return SolvedTicket{}, ErrNotFound
	}
	return t, err
}

func (r *PGRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM kb_tickets`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PGRepo) Upsert(ctx context.Context, source string, tickets []SolvedTicket) (int, error) {
	const query = `
INSERT INTO kb_tickets (ticket_no, problem_description, solution_text, module, similarity, source)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (ticket_no) DO UPDATE SET
	problem_description = EXCLUDED.problem_description,
	solution_text = EXCLUDED.solution_text,
	module = EXCLUDED.module,
	similarity = EXCLUDED.similarity,
	source = EXCLUDED.source`

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	written := 0
	for _, t := range tickets {
		if t.TicketNo == "" {
			continue
		}
		var module sql.NullString
		if t.Module != "" {
			module = sql.NullString{String: string(t.Module), Valid: true}
		}
		var similarity sql.NullFloat64
		if t.Similarity != nil {
			similarity = sql.NullFloat64{Float64: *t.Similarity, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, query, t.TicketNo, t.ProblemDescription, t.SolutionText, module, similarity, source); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", t.TicketNo, err)
		}
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (SolvedTicket, error) {
	var t SolvedTicket
	var module sql.NullString
	var similarity sql.NullFloat64
	if err := row.Scan(&t.TicketNo, &t.ProblemDescription, &t.SolutionText, &module, &similarity); err != nil {
		return SolvedTicket{}, err
	}
	if module.Valid {
		t.Module = Module(module.String)
	}
	if similarity.Valid {
		v := similarity.Float64
		t.Similarity = &v
	}
	return t, nil
}
