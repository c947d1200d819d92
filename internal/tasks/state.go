package tasks

import (
	"strings"

	"github.com/elpatron68/todo-web/internal/backend"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterCompleted Filter = "completed"
	FilterPending   Filter = "pending"
)

// ParseFilter maps unknown values to FilterAll.
func ParseFilter(s string) Filter {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case FilterCompleted, FilterPending:
		return f
	}
	return FilterAll
}

// Completed is the equality predicate on the completion flag, nil for all.
func (f Filter) Completed() *bool {
	var v bool
	switch f {
	case FilterCompleted:
		v = true
	case FilterPending:
		v = false
	default:
		return nil
	}
	return &v
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type Sort struct {
	Field string
	Dir   Direction
}

var DefaultSort = Sort{Field: backend.ColumnCreatedAt, Dir: Desc}

// ParseSort reads the "field-dir" form used by the sort control,
// e.g. "created_at-desc".
func ParseSort(s string) (Sort, bool) {
	field, dir, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok || !backend.SortableColumn(field) {
		return Sort{}, false
	}
	switch Direction(dir) {
	case Asc, Desc:
		return Sort{Field: field, Dir: Direction(dir)}, true
	}
	return Sort{}, false
}

func (s Sort) String() string { return s.Field + "-" + string(s.Dir) }

type SortOption struct {
	Value string
	Label string
}

var SortOptions = []SortOption{
	{Value: "created_at-desc", Label: "Newest first"},
	{Value: "created_at-asc", Label: "Oldest first"},
	{Value: "due_date-asc", Label: "Due date (earliest)"},
	{Value: "due_date-desc", Label: "Due date (latest)"},
	{Value: "title-asc", Label: "Title (A-Z)"},
	{Value: "title-desc", Label: "Title (Z-A)"},
	{Value: "is_completed-asc", Label: "Pending first"},
	{Value: "is_completed-desc", Label: "Completed first"},
}

// ViewState is the list's query parameters. It belongs to one controller.
type ViewState struct {
	Filter Filter
	Sort   Sort
}

func DefaultViewState() ViewState {
	return ViewState{Filter: FilterAll, Sort: DefaultSort}
}

func (v ViewState) Query() backend.Query {
	return backend.Query{
		Completed: v.Filter.Completed(),
		OrderBy:   v.Sort.Field,
		Ascending: v.Sort.Dir == Asc,
	}
}
