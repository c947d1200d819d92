package tasks

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

const (
	EmptyText      = "No tasks found. Add your first task!"
	LoadFailedText = "Failed to load tasks. Please try again."
	UnknownDate    = "Unknown date"
	NoDueDate      = "No due date"
	ConfirmDelete  = "Are you sure you want to delete this task?"

	displayLayout = "Jan 2, 2006, 03:04 PM"
)

// Card is the rendered form of one task.
type Card struct {
	ID              string
	Completed       bool
	Title           string
	Description     string
	DescriptionHTML template.HTML
	Due             string
	Created         string
	ToggleURL       string
	EditURL         string
	DeleteURL       string
}

// Project renders tasks in order. A record that cannot be rendered is
// skipped and the rest of the list still renders.
func Project(ts []backend.Task, loc *time.Location) []Card {
	cards := make([]Card, 0, len(ts))
	for _, t := range ts {
		if c, ok := projectOne(t, loc); ok {
			cards = append(cards, c)
		}
	}
	return cards
}

func projectOne(t backend.Task, loc *time.Location) (c Card, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			applog.Errorf("tasks: skipping task %q: render panic: %v", t.ID, r)
			c, ok = Card{}, false
		}
	}()
	if strings.TrimSpace(t.ID) == "" {
		applog.Warnf("tasks: skipping task without id (title=%q)", t.Title)
		return Card{}, false
	}
	due := NoDueDate
	if t.DueDate != "" {
		due = "Due: " + formatDate(t.DueDate, loc)
	}
	return Card{
		ID:              t.ID,
		Completed:       t.Completed,
		Title:           t.Title,
		Description:     t.Description,
		DescriptionHTML: renderMarkdown(t.Description),
		Due:             due,
		Created:         "Added: " + formatDate(t.CreatedAt, loc),
		ToggleURL:       fmt.Sprintf("/tasks/%s/toggle", t.ID),
		EditURL:         fmt.Sprintf("/tasks/%s/edit", t.ID),
		DeleteURL:       fmt.Sprintf("/tasks/%s/delete", t.ID),
	}, true
}

// formatDate never fails; malformed input yields UnknownDate.
func formatDate(s string, loc *time.Location) string {
	t, ok := parseStamp(s)
	if !ok {
		return UnknownDate
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(displayLayout)
}

var stampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05 -0700 MST",
	dueInputLayout,
	"2006-01-02",
}

func parseStamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func renderMarkdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	r := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.SkipHTML | html.Safelink | html.HrefTargetBlank})
	return template.HTML(markdown.ToHTML([]byte(src), p, r))
}
