package task

import "context"

// Repository reports missing rows as pgx.ErrNoRows.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Task, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, t *Task) error
	// ListVisible returns active tasks of the unit, newest first, optionally
	// restricted to one assignee.
	ListVisible(ctx context.Context, unitID int64, assignee *int64) ([]*View, error)
}
