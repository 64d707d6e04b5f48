package persistence

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
)

const (
	changeRequestColumns = `
cr.id, cr.task_id, cr.unit_id, cr.requested_by_user_id, cr.change_type, cr.status, cr.reason,
cr.payload, cr.requested_at, cr.reviewed_at, cr.reviewed_by_user_id, cr.review_comment`

	insertChangeRequestQuery = `
INSERT INTO task_change_requests (
	task_id, unit_id, requested_by_user_id, change_type, status, reason, payload, requested_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

	selectChangeRequestForUpdateQuery = `SELECT` + changeRequestColumns + `
FROM task_change_requests cr
WHERE cr.id = $1
FOR UPDATE`

	markDecidedQuery = `
UPDATE task_change_requests
SET status = $2,
	reviewed_at = $3,
	reviewed_by_user_id = $4,
	review_comment = $5,
	task_id = $6
WHERE id = $1 AND status = 'PENDING'`

	selectChangeRequestViewsQuery = `SELECT` + changeRequestColumns + `,
	requester.name, requester.role, u.code, u.name, COALESCE(t.title, cr.payload ->> 'title')
FROM task_change_requests cr
JOIN users requester ON requester.id = cr.requested_by_user_id
JOIN organizational_units u ON u.id = cr.unit_id
LEFT JOIN tasks t ON t.id = cr.task_id`

	selectByRequesterQuery = selectChangeRequestViewsQuery + `
WHERE cr.requested_by_user_id = $1
	AND cr.unit_id = $2
	AND ($3::text IS NULL OR cr.status = $3)
ORDER BY cr.requested_at DESC, cr.id DESC`

	selectPendingByUnitQuery = selectChangeRequestViewsQuery + `
WHERE cr.unit_id = $1 AND cr.status = 'PENDING'
ORDER BY cr.requested_at, cr.id`
)

type ChangeRequestRepository struct {
	pool *pgxpool.Pool
}

func NewChangeRequestRepository(pool *pgxpool.Pool) changerequest.Repository {
	return &ChangeRequestRepository{pool: pool}
}

func (r *ChangeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	created := *cr
	payload := created.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	if err := tx.QueryRow(ctx, insertChangeRequestQuery,
		created.TaskID,
		created.UnitID,
		created.RequestedByUserID,
		string(created.ChangeType),
		string(created.Status),
		created.Reason,
		[]byte(payload),
		created.RequestedAt,
	).Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *ChangeRequestRepository) GetForUpdate(ctx context.Context, id int64) (*changerequest.ChangeRequest, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	var cr changerequest.ChangeRequest
	if err := tx.QueryRow(ctx, selectChangeRequestForUpdateQuery, id).Scan(changeRequestDest(&cr)...); err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *ChangeRequestRepository) MarkDecided(ctx context.Context, cr *changerequest.ChangeRequest) (bool, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return false, err
	}
	tag, err := tx.Exec(ctx, markDecidedQuery,
		cr.ID,
		string(cr.Status),
		cr.ReviewedAt,
		cr.ReviewedByUserID,
		cr.ReviewComment,
		cr.TaskID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ChangeRequestRepository) ListByRequester(
	ctx context.Context,
	requesterID, unitID int64,
	status *changerequest.Status,
) ([]*changerequest.View, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	views, _, err := r.list(ctx, selectByRequesterQuery, requesterID, unitID, filter)
	return views, err
}

// ListPendingFromStandard filters on the normalized requester role, since
// stored roles may use any recognized spelling.
func (r *ChangeRequestRepository) ListPendingFromStandard(ctx context.Context, unitID int64) ([]*changerequest.View, error) {
	views, roles, err := r.list(ctx, selectPendingByUnitQuery, unitID)
	if err != nil {
		return nil, err
	}
	out := make([]*changerequest.View, 0, len(views))
	for i, v := range views {
		if role, ok := user.NormalizeRole(roles[i]); ok && role == user.RoleStandard {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *ChangeRequestRepository) list(ctx context.Context, query string, args ...any) ([]*changerequest.View, []string, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	views := make([]*changerequest.View, 0)
	roles := make([]string, 0)
	for rows.Next() {
		var (
			v    changerequest.View
			role string
		)
		dest := append(changeRequestDest(&v.ChangeRequest), &v.RequesterName, &role, &v.UnitCode, &v.UnitName, &v.TaskTitle)
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		views = append(views, &v)
		roles = append(roles, role)
	}
	return views, roles, rows.Err()
}

func changeRequestDest(cr *changerequest.ChangeRequest) []any {
	return []any{
		&cr.ID,
		&cr.TaskID,
		&cr.UnitID,
		&cr.RequestedByUserID,
		(*string)(&cr.ChangeType),
		(*string)(&cr.Status),
		&cr.Reason,
		(*[]byte)(&cr.Payload),
		&cr.RequestedAt,
		&cr.ReviewedAt,
		&cr.ReviewedByUserID,
		&cr.ReviewComment,
	}
}
