package feedback

import "context"

// Repo defines persistence operations for feedback.
type Repo interface {
	Create(ctx context.Context, rec Record) error
	Stats(ctx context.Context) (Stats, error)
}
