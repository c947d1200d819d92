// Package backend defines the contracts of the hosted services the web UI
// talks to: authentication, task storage and change notifications.
// Handlers and the task engine never import a concrete driver.
package backend

import (
	"context"
	"time"
)

// Session is the authenticated-user handle returned by the auth collaborator.
type Session struct {
	ID          string
	UserID      string
	Email       string
	AccessToken string
	ExpiresAt   time.Time
}

// AuthClient is the auth collaborator.
type AuthClient interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// SignUp may return a nil session when the account still needs to be
	// confirmed out of band.
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// CurrentSession returns nil, nil when the token is absent or no longer valid.
	CurrentSession(ctx context.Context, accessToken string) (*Session, error)
}

// Task is a task record as returned by the storage collaborator.
// DueDate and CreatedAt keep the storage representation; DueDate is empty
// when the task has no due date.
type Task struct {
	ID          string `json:"id"`
	OwnerID     string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Completed   bool   `json:"is_completed"`
	CreatedAt   string `json:"created_at"`
}

// NewTask is the insert payload. Completion always starts false.
type NewTask struct {
	OwnerID     string
	Title       string
	Description string
	DueDate     string
}

// Patch is a partial update; nil fields are left untouched.
// An empty DueDate pointer value clears the due date.
type Patch struct {
	Title       *string
	Description *string
	DueDate     *string
	Completed   *bool
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.Completed == nil
}

// Sortable columns.
const (
	ColumnCreatedAt = "created_at"
	ColumnDueDate   = "due_date"
	ColumnTitle     = "title"
	ColumnCompleted = "is_completed"
)

func SortableColumn(name string) bool {
	switch name {
	case ColumnCreatedAt, ColumnDueDate, ColumnTitle, ColumnCompleted:
		return true
	}
	return false
}

// Query selects an owner's tasks. Completed nil means no completion predicate.
type Query struct {
	Completed *bool
	OrderBy   string
	Ascending bool
}

// TaskStore is the storage collaborator for the tasks collection. Every call
// is scoped by an equality predicate on the owner identifier.
type TaskStore interface {
	List(ctx context.Context, ownerID string, q Query) ([]Task, error)
	Insert(ctx context.Context, t NewTask) (Task, error)
	Update(ctx context.Context, ownerID, id string, p Patch) (Task, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// TableTasks is the collection name used for change subscriptions.
const TableTasks = "tasks"

type ChangeOp string

const (
	OpInsert ChangeOp = "INSERT"
	OpUpdate ChangeOp = "UPDATE"
	OpDelete ChangeOp = "DELETE"
	// OpResync means changes may have been missed, e.g. while a feed reconnected.
	OpResync ChangeOp = "RESYNC"
)

// Change is a realtime notification. Consumers only learn that something changed.
type Change struct {
	Table   string   `json:"table"`
	Op      ChangeOp `json:"op"`
	OwnerID string   `json:"user_id"`
}

// Unsubscribe tears a subscription down. It is safe to call more than once.
type Unsubscribe func()

// Notifier is the change-notification collaborator.
type Notifier interface {
	Subscribe(ctx context.Context, table, ownerID string, fn func(Change)) (Unsubscribe, error)
}
