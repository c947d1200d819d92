package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

type TaskStore struct {
	db Querier
}

var _ backend.TaskStore = (*TaskStore)(nil)

func NewTaskStore(db Querier) *TaskStore {
	if db == nil {
		panic("database querier is nil")
	}
	return &TaskStore{db: db}
}

func (s *TaskStore) List(ctx context.Context, ownerID string, q backend.Query) ([]backend.Task, error) {
	query, args, err := buildListQuery(ownerID, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		applog.Errorf("failed to list tasks: owner=%s err=%v", ownerID, err)
		return nil, collaboratorError("list", err)
	}
	defer rows.Close()

	tasks := make([]backend.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			applog.Errorf("failed to scan task row: %v", err)
			return nil, collaboratorError("list", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		applog.Errorf("failed to iterate task rows: %v", err)
		return nil, collaboratorError("list", err)
	}
	return tasks, nil
}

func (s *TaskStore) Insert(ctx context.Context, nt backend.NewTask) (backend.Task, error) {
	query := `INSERT INTO tasks (user_id, title, description, due_date, is_completed)
		VALUES ($1, $2, $3, $4::timestamptz, false)
		RETURNING ` + taskColumns

	var due any
	if nt.DueDate != "" {
		due = nt.DueDate
	}
	t, err := scanTask(s.db.QueryRow(ctx, query, nt.OwnerID, nt.Title, nt.Description, due))
	if err != nil {
		applog.Errorf("failed to insert task: owner=%s err=%v", nt.OwnerID, err)
		return backend.Task{}, collaboratorError("insert", err)
	}
	return t, nil
}

func (s *TaskStore) Update(ctx context.Context, ownerID, id string, p backend.Patch) (backend.Task, error) {
	if p.Empty() {
		return backend.Task{}, backend.NewError("update", "Nothing to update", nil)
	}
	query, args := buildUpdate(ownerID, id, p)
	t, err := scanTask(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return backend.Task{}, backend.NewError("update", "Task not found", backend.ErrNotFound)
		}
		applog.Errorf("failed to update task: id=%s err=%v", id, err)
		return backend.Task{}, collaboratorError("update", err)
	}
	return t, nil
}

func (s *TaskStore) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		applog.Errorf("failed to delete task: id=%s err=%v", id, err)
		return collaboratorError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return backend.NewError("delete", "Task not found", backend.ErrNotFound)
	}
	return nil
}

func scanTask(row pgx.Row) (backend.Task, error) {
	var (
		t       backend.Task
		due     *time.Time
		created time.Time
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &due, &t.Completed, &created); err != nil {
		return backend.Task{}, err
	}
	if due != nil {
		t.DueDate = due.UTC().Format(time.RFC3339Nano)
	}
	t.CreatedAt = created.UTC().Format(time.RFC3339Nano)
	return t, nil
}
