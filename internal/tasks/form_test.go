package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elpatron68/todo-web/internal/backend"
)

func TestFormTransitions(t *testing.T) {
	var f FormState
	assert.Equal(t, ModeIdle, f.Mode)

	f = f.Submit(Draft{Title: "x"})
	assert.Equal(t, ModeCreating, f.Mode)
	assert.Equal(t, ModeIdle, f.Failed().Mode)
	assert.Equal(t, "x", f.Failed().Draft.Title)
	assert.Equal(t, FormState{}, f.Succeeded())

	a := backend.Task{ID: "a", Title: "A", DueDate: "2025-05-06T07:08:00Z"}
	b := backend.Task{ID: "b", Title: "B"}
	f = FormState{}.StartEdit(a, time.UTC)
	assert.Equal(t, ModeEditing, f.Mode)
	assert.Equal(t, "2025-05-06T07:08", f.Draft.DueDate)

	f = f.StartEdit(b, time.UTC)
	assert.Equal(t, "b", f.TaskID)
	assert.Empty(t, f.Draft.DueDate)

	f = f.Submit(Draft{Title: ""})
	assert.Equal(t, ModeEditing, f.Mode)
	assert.Equal(t, "b", f.Failed().TaskID)
	assert.Equal(t, FormState{}, f.Cancel())
}

func TestFormView(t *testing.T) {
	v := FormState{Mode: ModeEditing, TaskID: "a", Draft: Draft{Title: "t"}}.View()
	assert.True(t, v.Editing)
	assert.Equal(t, "Update Task", v.SubmitLabel)
	assert.Equal(t, "Add Task", FormState{}.View().SubmitLabel)
}

func TestNormalizeDue(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	assert.Equal(t, "", normalizeDue("  ", time.UTC))
	assert.Equal(t, "2025-02-03T04:05:00Z", normalizeDue("2025-02-03T04:05", time.UTC))
	assert.Equal(t, "2025-02-03T04:05:00+01:00", normalizeDue("2025-02-03T04:05", berlin))
	assert.Equal(t, "tomorrow", normalizeDue("tomorrow", time.UTC), "unknown input passes through")
	assert.Equal(t, "2025-02-03T05:05", dueInputValue("2025-02-03T04:05:00Z", berlin))
	assert.Equal(t, "", dueInputValue("garbage", berlin))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validate(Draft{Title: " ok "}))
	err := validate(Draft{Title: " \t"})
	assert.True(t, IsValidation(err))
	assert.EqualError(t, err, MsgTitleRequired)
}
