// Package memory is an in-process storage and change-notification backend.
// It behaves like the hosted service closely enough for development and
// tests: generated ids and timestamps, owner scoping, server-side filter and
// sort, and realtime fan-out after every mutation.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elpatron68/todo-web/internal/backend"
)

type Store struct {
	mu    sync.Mutex
	tasks []backend.Task // insertion order is the storage order
	now   func() time.Time

	subsMu sync.Mutex
	subs   map[uint64]subscription
	nextID uint64

	// FailNext, when set, makes the next call of the named operation
	// ("list", "insert", "update", "delete", "subscribe") fail with the
	// given message. Used by tests to exercise error paths.
	failMu   sync.Mutex
	failNext map[string]string
}

type subscription struct {
	table string
	owner string
	fn    func(backend.Change)
}

var (
	_ backend.TaskStore = (*Store)(nil)
	_ backend.Notifier  = (*Store)(nil)
)

func New() *Store {
	return &Store{now: time.Now, subs: map[uint64]subscription{}, failNext: map[string]string{}}
}

// WithClock replaces the creation-time source.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) FailNext(op, message string) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failNext[op] = message
}

func (s *Store) takeFailure(op string) error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	msg, ok := s.failNext[op]
	if !ok {
		return nil
	}
	delete(s.failNext, op)
	return backend.NewError(op, msg, nil)
}

func (s *Store) List(ctx context.Context, ownerID string, q backend.Query) ([]backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.takeFailure("list"); err != nil {
		return nil, err
	}
	if q.OrderBy != "" && !backend.SortableColumn(q.OrderBy) {
		return nil, backend.NewError("list", "column tasks."+q.OrderBy+" does not exist", backend.ErrInvalidColumn)
	}

	s.mu.Lock()
	out := make([]backend.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.OwnerID != ownerID {
			continue
		}
		if q.Completed != nil && t.Completed != *q.Completed {
			continue
		}
		out = append(out, t)
	}
	s.mu.Unlock()

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i], out[j], q.OrderBy, q.Ascending)
		})
	}
	return out, nil
}

func (s *Store) Insert(ctx context.Context, nt backend.NewTask) (backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return backend.Task{}, err
	}
	if err := s.takeFailure("insert"); err != nil {
		return backend.Task{}, err
	}
	if nt.OwnerID == "" {
		return backend.Task{}, backend.NewError("insert", "new row violates row-level security policy for table \"tasks\"", nil)
	}
	if strings.TrimSpace(nt.Title) == "" {
		return backend.Task{}, backend.NewError("insert", "null value in column \"title\" violates not-null constraint", nil)
	}
	t := backend.Task{
		ID:          uuid.NewString(),
		OwnerID:     nt.OwnerID,
		Title:       nt.Title,
		Description: nt.Description,
		DueDate:     nt.DueDate,
		Completed:   false,
		CreatedAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()

	s.publish(backend.Change{Table: backend.TableTasks, Op: backend.OpInsert, OwnerID: t.OwnerID})
	return t, nil
}

func (s *Store) Update(ctx context.Context, ownerID, id string, p backend.Patch) (backend.Task, error) {
	if err := ctx.Err(); err != nil {
		return backend.Task{}, err
	}
	if err := s.takeFailure("update"); err != nil {
		return backend.Task{}, err
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return backend.Task{}, backend.NewError("update", "null value in column \"title\" violates not-null constraint", nil)
	}

	s.mu.Lock()
	idx := s.indexOf(ownerID, id)
	if idx < 0 {
		s.mu.Unlock()
		return backend.Task{}, backend.NewError("update", "Task not found", backend.ErrNotFound)
	}
	t := s.tasks[idx]
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	s.tasks[idx] = t
	s.mu.Unlock()

	s.publish(backend.Change{Table: backend.TableTasks, Op: backend.OpUpdate, OwnerID: ownerID})
	return t, nil
}

func (s *Store) Delete(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.takeFailure("delete"); err != nil {
		return err
	}
	s.mu.Lock()
	idx := s.indexOf(ownerID, id)
	if idx < 0 {
		s.mu.Unlock()
		return backend.NewError("delete", "Task not found", backend.ErrNotFound)
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.mu.Unlock()

	s.publish(backend.Change{Table: backend.TableTasks, Op: backend.OpDelete, OwnerID: ownerID})
	return nil
}

// Put stores a raw record as-is, bypassing validation. Used to seed data,
// including records with malformed timestamps.
func (s *Store) Put(t backend.Task) {
	s.mu.Lock()
	s.tasks = append(s.tasks, t)
	s.mu.Unlock()
}

// must hold s.mu
func (s *Store) indexOf(ownerID, id string) int {
	for i, t := range s.tasks {
		if t.ID == id && t.OwnerID == ownerID {
			return i
		}
	}
	return -1
}

// less orders two records the way Postgres does for a single ORDER BY column:
// NULL (empty) values are last ascending and first descending.
func less(a, b backend.Task, column string, asc bool) bool {
	var c int
	switch column {
	case backend.ColumnTitle:
		c = strings.Compare(a.Title, b.Title)
	case backend.ColumnCompleted:
		c = boolCompare(a.Completed, b.Completed)
	case backend.ColumnDueDate:
		c = timeCompare(a.DueDate, b.DueDate)
	default:
		c = timeCompare(a.CreatedAt, b.CreatedAt)
	}
	if asc {
		return c < 0
	}
	return c > 0
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// timeCompare treats the empty string as NULL, greater than any value.
func timeCompare(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	ta, errA := parseStamp(a)
	tb, errB := parseStamp(b)
	if errA != nil || errB != nil {
		return strings.Compare(a, b)
	}
	return ta.Compare(tb)
}

func parseStamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04", s)
}
