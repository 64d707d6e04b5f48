package changerequest

import "context"

// Repository reports missing rows as pgx.ErrNoRows.
type Repository interface {
	Create(ctx context.Context, cr *ChangeRequest) (*ChangeRequest, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*ChangeRequest, error)
	// MarkDecided persists the review stamp and task id only while the stored
	// row is still PENDING. false means another decision won.
	MarkDecided(ctx context.Context, cr *ChangeRequest) (bool, error)
	ListByRequester(ctx context.Context, requesterID, unitID int64, status *Status) ([]*View, error)
	// ListPendingFromStandard returns the unit's PENDING requests raised by
	// non-privileged members, oldest first.
	ListPendingFromStandard(ctx context.Context, unitID int64) ([]*View, error)
}
