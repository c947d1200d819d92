package postgres

import (
	"fmt"
	"strings"

	"github.com/elpatron68/todo-web/internal/backend"
)

const taskColumns = `id::text, user_id::text, title, description, due_date, is_completed, created_at`

func buildListQuery(ownerID string, q backend.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(taskColumns)
	sb.WriteString(" FROM tasks WHERE user_id = $1")
	args := []any{ownerID}

	if q.Completed != nil {
		args = append(args, *q.Completed)
		fmt.Fprintf(&sb, " AND is_completed = $%d", len(args))
	}
	if q.OrderBy != "" {
		if !backend.SortableColumn(q.OrderBy) {
			return "", nil, backend.NewError("list", "column tasks."+q.OrderBy+" does not exist", backend.ErrInvalidColumn)
		}
		dir := "DESC"
		if q.Ascending {
			dir = "ASC"
		}
		// ctid keeps ties in physical (storage) order
		fmt.Fprintf(&sb, " ORDER BY %s %s, ctid", q.OrderBy, dir)
	}
	return sb.String(), args, nil
}

func buildUpdate(ownerID, id string, p backend.Patch) (string, []any) {
	sets := make([]string, 0, 4)
	args := []any{id, ownerID}
	add := func(col string, v any, cast string) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d%s", col, len(args), cast))
	}
	if p.Title != nil {
		add("title", *p.Title, "")
	}
	if p.Description != nil {
		add("description", *p.Description, "")
	}
	if p.DueDate != nil {
		var due any
		if *p.DueDate != "" {
			due = *p.DueDate
		}
		add("due_date", due, "::timestamptz")
	}
	if p.Completed != nil {
		add("is_completed", *p.Completed, "")
	}
	query := "UPDATE tasks SET " + strings.Join(sets, ", ") +
		" WHERE id = $1 AND user_id = $2 RETURNING " + taskColumns
	return query, args
}
