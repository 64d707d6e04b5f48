package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/taskgate/modules/tasks/domain/changerequest"
	"github.com/iota-uz/taskgate/modules/tasks/domain/orgunit"
	"github.com/iota-uz/taskgate/modules/tasks/domain/task"
	"github.com/iota-uz/taskgate/modules/tasks/domain/user"
	"github.com/iota-uz/taskgate/modules/tasks/services"
)

type txKey struct{}

type state struct {
	units    map[int64]orgunit.OrganizationalUnit
	users    map[int64]user.User
	tasks    map[int64]task.Task
	requests map[int64]changerequest.ChangeRequest
	nextID   map[string]int64
}

func newState() *state {
	return &state{
		units:    map[int64]orgunit.OrganizationalUnit{},
		users:    map[int64]user.User{},
		tasks:    map[int64]task.Task{},
		requests: map[int64]changerequest.ChangeRequest{},
		nextID:   map[string]int64{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.units {
		c.units[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.nextID {
		c.nextID[k] = v
	}
	return c
}

func (s *state) next(seq string) int64 {
	s.nextID[seq]++
	return s.nextID[seq]
}

// Store keeps every aggregate in process memory. Transactions are fully
// serialized and roll back to a snapshot on error, which makes it usable both
// as a development driver and as a test double for atomicity checks.
type Store struct {
	mu    sync.Mutex
	data  *state
	fault map[string]error
}

func NewStore() *Store {
	return &Store{data: newState(), fault: map[string]error{}}
}

// Repositories exposes the store through the service contracts.
func (s *Store) Repositories() services.Repositories {
	return services.Repositories{
		Units:          unitRepository{s},
		Users:          userRepository{s},
		Tasks:          taskRepository{s},
		ChangeRequests: changeRequestRepository{s},
		Tx:             s,
	}
}

func (s *Store) InTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txKey{}) == s {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// FailNext makes the next call of op (a repository method name such as
// "MarkDecided" or "UpdateTask") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault[op] = err
}

// do runs fn with the store locked, reusing the lock of an enclosing transaction.
func (s *Store) do(ctx context.Context, op string, fn func(d *state) error) error {
	if ctx.Value(txKey{}) != s {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err, ok := s.fault[op]; ok {
		delete(s.fault, op)
		return err
	}
	return fn(s.data)
}

// AddUnit seeds an organizational unit.
func (s *Store) AddUnit(name, code string) int64 {
	var id int64
	_ = s.do(context.Background(), "", func(d *state) error {
		id = d.next("units")
		d.units[id] = orgunit.OrganizationalUnit{ID: id, Name: name, Code: code}
		return nil
	})
	return id
}

// AddUser seeds a user. The role is stored as given and normalized on read.
func (s *Store) AddUser(name, email string, role user.Role, unitID int64, active bool) int64 {
	var id int64
	_ = s.do(context.Background(), "", func(d *state) error {
		id = d.next("users")
		d.users[id] = user.User{ID: id, Name: name, Email: email, Role: role, UnitID: unitID, IsActive: active}
		return nil
	})
	return id
}

// SetUserRole changes a stored role, as an administrator would.
func (s *Store) SetUserRole(id int64, role user.Role) {
	_ = s.do(context.Background(), "", func(d *state) error {
		u := d.users[id]
		u.Role = role
		d.users[id] = u
		return nil
	})
}

// SetUserActive activates or deactivates a stored user.
func (s *Store) SetUserActive(id int64, active bool) {
	_ = s.do(context.Background(), "", func(d *state) error {
		u := d.users[id]
		u.IsActive = active
		d.users[id] = u
		return nil
	})
}

// Task returns a copy of a stored task, active or not.
func (s *Store) Task(id int64) (task.Task, bool) {
	var t task.Task
	var ok bool
	_ = s.do(context.Background(), "", func(d *state) error {
		t, ok = d.tasks[id]
		return nil
	})
	return t, ok
}

// ChangeRequest returns a copy of a stored change request.
func (s *Store) ChangeRequest(id int64) (changerequest.ChangeRequest, bool) {
	var cr changerequest.ChangeRequest
	var ok bool
	_ = s.do(context.Background(), "", func(d *state) error {
		cr, ok = d.requests[id]
		return nil
	})
	return cr, ok
}

// CountTasks reports how many tasks exist, including soft-deleted ones.
func (s *Store) CountTasks() int {
	var n int
	_ = s.do(context.Background(), "", func(d *state) error {
		n = len(d.tasks)
		return nil
	})
	return n
}

// CountChangeRequests reports how many change requests exist in any status.
func (s *Store) CountChangeRequests() int {
	var n int
	_ = s.do(context.Background(), "", func(d *state) error {
		n = len(d.requests)
		return nil
	})
	return n
}

type unitRepository struct{ s *Store }

func (r unitRepository) GetByName(ctx context.Context, name string) (*orgunit.OrganizationalUnit, error) {
	var out *orgunit.OrganizationalUnit
	err := r.s.do(ctx, "GetUnitByName", func(d *state) error {
		for _, u := range d.units {
			if strings.EqualFold(u.Name, strings.TrimSpace(name)) {
				cp := u
				out = &cp
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

type userRepository struct{ s *Store }

func normalizedUser(u user.User) *user.User {
	role, ok := user.NormalizeRole(string(u.Role))
	if !ok {
		role = ""
	}
	u.Role = role
	return &u
}

func (r userRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var out *user.User
	err := r.s.do(ctx, "GetUser", func(d *state) error {
		u, ok := d.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = normalizedUser(u)
		return nil
	})
	return out, err
}

func (r userRepository) ListActiveByUnit(ctx context.Context, unitID int64) ([]*user.User, error) {
	var out []*user.User
	err := r.s.do(ctx, "ListUsers", func(d *state) error {
		for _, u := range d.users {
			if u.IsActive && u.UnitID == unitID {
				out = append(out, normalizedUser(u))
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Name == out[j].Name {
				return out[i].ID < out[j].ID
			}
			return out[i].Name < out[j].Name
		})
		return nil
	})
	return out, err
}

type taskRepository struct{ s *Store }

func (r taskRepository) GetByID(ctx context.Context, id int64) (*task.Task, error) {
	var out *task.Task
	err := r.s.do(ctx, "GetTask", func(d *state) error {
		t, ok := d.tasks[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &t
		return nil
	})
	return out, err
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r taskRepository) GetForUpdate(ctx context.Context, id int64) (*task.Task, error) {
	return r.GetByID(ctx, id)
}

func (r taskRepository) Create(ctx context.Context, t *task.Task) (*task.Task, error) {
	var out *task.Task
	err := r.s.do(ctx, "CreateTask", func(d *state) error {
		cp := *t
		cp.ID = d.next("tasks")
		if cp.UpdatedAt.IsZero() {
			cp.UpdatedAt = cp.CreatedAt
		}
		d.tasks[cp.ID] = cp
		out = &cp
		return nil
	})
	return out, err
}

func (r taskRepository) Update(ctx context.Context, t *task.Task) error {
	return r.s.do(ctx, "UpdateTask", func(d *state) error {
		if _, ok := d.tasks[t.ID]; !ok {
			return pgx.ErrNoRows
		}
		d.tasks[t.ID] = *t
		return nil
	})
}

func (r taskRepository) ListVisible(ctx context.Context, unitID int64, assignee *int64) ([]*task.View, error) {
	var out []*task.View
	err := r.s.do(ctx, "ListTasks", func(d *state) error {
		unit := d.units[unitID]
		for _, t := range d.tasks {
			if !t.IsActive || t.UnitID != unitID {
				continue
			}
			if assignee != nil && (t.AssignedToUserID == nil || *t.AssignedToUserID != *assignee) {
				continue
			}
			v := &task.View{
				Task:           t,
				UnitCode:       unit.Code,
				UnitName:       unit.Name,
				CreatedByName:  d.users[t.CreatedByUserID].Name,
				ApprovedByName: d.users[t.ApprovedByUserID].Name,
			}
			if t.AssignedToUserID != nil {
				if u, ok := d.users[*t.AssignedToUserID]; ok {
					name := u.Name
					v.AssignedToName = &name
				}
			}
			out = append(out, v)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID > out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

type changeRequestRepository struct{ s *Store }

func (r changeRequestRepository) Create(ctx context.Context, cr *changerequest.ChangeRequest) (*changerequest.ChangeRequest, error) {
	var out *changerequest.ChangeRequest
	err := r.s.do(ctx, "CreateChangeRequest", func(d *state) error {
		cp := *cr
		cp.ID = d.next("requests")
		d.requests[cp.ID] = cp
		out = &cp
		return nil
	})
	return out, err
}

func (r changeRequestRepository) GetForUpdate(ctx context.Context, id int64) (*changerequest.ChangeRequest, error) {
	var out *changerequest.ChangeRequest
	err := r.s.do(ctx, "GetChangeRequest", func(d *state) error {
		cr, ok := d.requests[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &cr
		return nil
	})
	return out, err
}

func (r changeRequestRepository) MarkDecided(ctx context.Context, cr *changerequest.ChangeRequest) (bool, error) {
	var stamped bool
	err := r.s.do(ctx, "MarkDecided", func(d *state) error {
		stored, ok := d.requests[cr.ID]
		if !ok || stored.Status != changerequest.StatusPending {
			return nil
		}
		stored.Status = cr.Status
		stored.ReviewedAt = cr.ReviewedAt
		stored.ReviewedByUserID = cr.ReviewedByUserID
		stored.ReviewComment = cr.ReviewComment
		stored.TaskID = cr.TaskID
		d.requests[cr.ID] = stored
		stamped = true
		return nil
	})
	return stamped, err
}

func (r changeRequestRepository) ListByRequester(ctx context.Context, requesterID, unitID int64, status *changerequest.Status) ([]*changerequest.View, error) {
	var out []*changerequest.View
	err := r.s.do(ctx, "ListChangeRequests", func(d *state) error {
		for _, cr := range d.requests {
			if cr.RequestedByUserID != requesterID || cr.UnitID != unitID {
				continue
			}
			if status != nil && cr.Status != *status {
				continue
			}
			out = append(out, d.view(cr))
		}
		sortRequests(out, false)
		return nil
	})
	return out, err
}

func (r changeRequestRepository) ListPendingFromStandard(ctx context.Context, unitID int64) ([]*changerequest.View, error) {
	var out []*changerequest.View
	err := r.s.do(ctx, "ListChangeRequests", func(d *state) error {
		for _, cr := range d.requests {
			if cr.UnitID != unitID || cr.Status != changerequest.StatusPending {
				continue
			}
			if role, _ := user.NormalizeRole(string(d.users[cr.RequestedByUserID].Role)); role != user.RoleStandard {
				continue
			}
			out = append(out, d.view(cr))
		}
		sortRequests(out, true)
		return nil
	})
	return out, err
}

func (d *state) view(cr changerequest.ChangeRequest) *changerequest.View {
	unit := d.units[cr.UnitID]
	v := &changerequest.View{
		ChangeRequest: cr,
		RequesterName: d.users[cr.RequestedByUserID].Name,
		UnitCode:      unit.Code,
		UnitName:      unit.Name,
	}
	if cr.TaskID != nil {
		if t, ok := d.tasks[*cr.TaskID]; ok {
			title := t.Title
			v.TaskTitle = &title
		}
	}
	if v.TaskTitle == nil {
		var proposed struct {
			Title *string `json:"title"`
		}
		if err := json.Unmarshal(cr.Payload, &proposed); err == nil && proposed.Title != nil {
			v.TaskTitle = proposed.Title
		}
	}
	return v
}

func sortRequests(views []*changerequest.View, ascending bool) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.RequestedAt.Equal(b.RequestedAt) {
			if ascending {
				return a.ID < b.ID
			}
			return a.ID > b.ID
		}
		if ascending {
			return a.RequestedAt.Before(b.RequestedAt)
		}
		return a.RequestedAt.After(b.RequestedAt)
	})
}
