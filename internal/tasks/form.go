package tasks

import (
	"strings"
	"time"

	"github.com/elpatron68/todo-web/internal/backend"
)

type Mode int

const (
	ModeIdle Mode = iota
	ModeCreating
	ModeEditing
)

func (m Mode) String() string {
	switch m {
	case ModeCreating:
		return "creating"
	case ModeEditing:
		return "editing"
	}
	return "idle"
}

// dueInputLayout is what a datetime-local input submits.
const dueInputLayout = "2006-01-02T15:04"

type Draft struct {
	Title       string
	Description string
	DueDate     string
}

// FormState is the task form: Idle, Creating, or Editing(TaskID).
// Transitions return a new value; the zero value is Idle.
type FormState struct {
	Mode   Mode
	TaskID string
	Draft  Draft
}

// StartEdit targets t from any state, replacing an earlier edit target.
func (f FormState) StartEdit(t backend.Task, loc *time.Location) FormState {
	return FormState{
		Mode:   ModeEditing,
		TaskID: t.ID,
		Draft: Draft{
			Title:       t.Title,
			Description: t.Description,
			DueDate:     dueInputValue(t.DueDate, loc),
		},
	}
}

func (f FormState) Cancel() FormState { return FormState{} }

// Submit records the draft. An Idle form becomes Creating; Editing keeps its target.
func (f FormState) Submit(d Draft) FormState {
	mode := f.Mode
	if mode != ModeEditing {
		mode = ModeCreating
	}
	return FormState{Mode: mode, TaskID: f.TaskID, Draft: d}
}

func (f FormState) Succeeded() FormState { return FormState{} }

// Failed keeps the draft. A failed create falls back to Idle, a failed edit
// stays on its target.
func (f FormState) Failed() FormState {
	if f.Mode == ModeCreating {
		f.Mode = ModeIdle
	}
	return f
}

type FormView struct {
	Mode        string
	Editing     bool
	TaskID      string
	Title       string
	Description string
	DueDate     string
	SubmitLabel string
}

func (f FormState) View() FormView {
	label := "Add Task"
	if f.Mode == ModeEditing {
		label = "Update Task"
	}
	return FormView{
		Mode:        f.Mode.String(),
		Editing:     f.Mode == ModeEditing,
		TaskID:      f.TaskID,
		Title:       f.Draft.Title,
		Description: f.Draft.Description,
		DueDate:     f.Draft.DueDate,
		SubmitLabel: label,
	}
}

func validate(d Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Message: MsgTitleRequired}
	}
	return nil
}

// normalizeDue turns a datetime-local value into RFC3339 in loc. Other
// values pass through untouched for the storage collaborator to judge.
func normalizeDue(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if t, err := time.ParseInLocation(dueInputLayout, s, loc); err == nil {
		return t.Format(time.RFC3339)
	}
	return s
}

func dueInputValue(stored string, loc *time.Location) string {
	t, ok := parseStamp(stored)
	if !ok {
		return ""
	}
	return t.In(loc).Format(dueInputLayout)
}
