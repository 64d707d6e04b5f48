package persistence

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
)

const (
	taskColumns = `
t.id, t.title, t.description, t.status, t.priority, t.due_date, t.completed_at, t.unit_id,
t.created_by_user_id, t.approved_by_user_id, t.assigned_to_user_id, t.is_active, t.created_at, t.updated_at`

	selectTaskByIDQuery = `SELECT` + taskColumns + `
FROM tasks t
WHERE t.id = $1`

	selectTaskForUpdateQuery = selectTaskByIDQuery + `
FOR UPDATE`

	insertTaskQuery = `
INSERT INTO tasks (
	title, description, status, priority, due_date, completed_at, unit_id,
	created_by_user_id, approved_by_user_id, assigned_to_user_id, is_active, created_at, updated_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id`

	updateTaskQuery = `
UPDATE tasks
SET title = $2,
	description = $3,
	status = $4,
	priority = $5,
	due_date = $6,
	completed_at = $7,
	assigned_to_user_id = $8,
	is_active = $9,
	updated_at = $10
WHERE id = $1`

	selectVisibleTasksQuery = `SELECT` + taskColumns + `,
	u.code, u.name, creator.name, approver.name, assignee.name
FROM tasks t
JOIN organizational_units u ON u.id = t.unit_id
JOIN users creator ON creator.id = t.created_by_user_id
JOIN users approver ON approver.id = t.approved_by_user_id
LEFT JOIN users assignee ON assignee.id = t.assigned_to_user_id
WHERE t.unit_id = $1
	AND t.is_active
	AND ($2::bigint IS NULL OR t.assigned_to_user_id = $2)
ORDER BY t.created_at DESC, t.id DESC`
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) task.Repository {
	return &TaskRepository{pool: pool}
}

func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	return r.get(ctx, selectTaskByIDQuery, id)
}

func (r *TaskRepository) GetForUpdate(ctx context.Context, id int64) (*task.Task, error) {
	return r.get(ctx, selectTaskForUpdateQuery, id)
}

func (r *TaskRepository) get(ctx context.Context, query string, id int64) (*task.Task, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	var t task.Task
	if err := tx.QueryRow(ctx, query, id).Scan(taskDest(&t)...); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Create(ctx context.Context, t *task.Task) (*task.Task, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	created := *t
	if created.UpdatedAt.IsZero() {
		created.UpdatedAt = created.CreatedAt
	}
	if err := tx.QueryRow(ctx, insertTaskQuery,
		created.Title,
		created.Description,
		string(created.Status),
		string(created.Priority),
		pgDate(created.DueDate),
		created.CompletedAt,
		created.UnitID,
		created.CreatedByUserID,
		created.ApprovedByUserID,
		created.AssignedToUserID,
		created.IsActive,
		created.CreatedAt,
		created.UpdatedAt,
	).Scan(&created.ID); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *TaskRepository) Update(ctx context.Context, t *task.Task) error {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, updateTaskQuery,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		pgDate(t.DueDate),
		t.CompletedAt,
		t.AssignedToUserID,
		t.IsActive,
		t.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *TaskRepository) ListVisible(ctx context.Context, unitID int64, assignee *int64) ([]*task.View, error) {
	tx, err := conn(ctx, r.pool)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectVisibleTasksQuery, unitID, assignee)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	views := make([]*task.View, 0)
	for rows.Next() {
		var v task.View
		dest := append(taskDest(&v.Task), &v.UnitCode, &v.UnitName, &v.CreatedByName, &v.ApprovedByName, &v.AssignedToName)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		views = append(views, &v)
	}
	return views, rows.Err()
}

// taskDest lists scan targets in taskColumns order.
func taskDest(t *task.Task) []any {
	return []any{
		&t.ID,
		&t.Title,
		&t.Description,
		(*string)(&t.Status),
		(*string)(&t.Priority),
		&dateScanner{dst: &t.DueDate},
		&t.CompletedAt,
		&t.UnitID,
		&t.CreatedByUserID,
		&t.ApprovedByUserID,
		&t.AssignedToUserID,
		&t.IsActive,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

// dateScanner stores a nullable SQL date as a UTC midnight *time.Time.
type dateScanner struct {
	dst **time.Time
}

func (s *dateScanner) ScanDate(v pgtype.Date) error {
	if !v.Valid {
		*s.dst = nil
		return nil
	}
	d := time.Date(v.Time.Year(), v.Time.Month(), v.Time.Day(), 0, 0, 0, 0, time.UTC)
	*s.dst = &d
	return nil
}

func pgDate(t *time.Time) pgtype.Date {
	if t == nil {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: *t, Valid: true}
}
