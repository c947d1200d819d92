package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/elpatron68/todo-web/internal/auth"
	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/tasks"
)

const dispatchTimeout = 10 * time.Second

type filterButton struct {
	Value  tasks.Filter
	Label  string
	Active bool
}

func filterButtons(active tasks.Filter) []filterButton {
	return []filterButton{
		{Value: tasks.FilterAll, Label: "All", Active: active == tasks.FilterAll},
		{Value: tasks.FilterPending, Label: "Pending", Active: active == tasks.FilterPending},
		{Value: tasks.FilterCompleted, Label: "Completed", Active: active == tasks.FilterCompleted},
	}
}

func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*tasks.Controller, bool) {
	sess, _ := auth.SessionFromRequest(r)
	c, err := s.registry.For(sess)
	if err != nil {
		applog.Errorf("tasks: no controller for user=%s: %v", sess.UserID, err)
		http.Error(w, "task list unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

// dispatch runs msg and logs its failure; the user already sees it as a message.
func (s *Server) dispatch(r *http.Request, c *tasks.Controller, msg tasks.Msg) tasks.View {
	ctx, cancel := context.WithTimeout(r.Context(), dispatchTimeout)
	defer cancel()
	v, err := c.Dispatch(ctx, msg)
	if err != nil && !tasks.IsValidation(err) {
		applog.Infof("tasks: %T failed: owner=%s err=%v", msg, c.Owner(), err)
	}
	return v
}

// currentView returns the latest view, loading the list on first use.
func (s *Server) currentView(r *http.Request, c *tasks.Controller) tasks.View {
	v := c.View()
	if !v.Loaded {
		v = s.dispatch(r, c, tasks.Reload{})
	}
	return v
}

func (s *Server) listData(v tasks.View) map[string]any {
	return map[string]any{
		"View":           v,
		"EmptyText":      tasks.EmptyText,
		"LoadFailedText": tasks.LoadFailedText,
		"Filters":        filterButtons(v.State.Filter),
		"SortOptions":    tasks.SortOptions,
		"SortValue":      v.State.Sort.String(),
	}
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.render(w, r, "dashboard", s.listData(s.currentView(r, c)))
}

// handleTaskList renders only the list, for the realtime script.
func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	data := s.listData(s.currentView(r, c))
	data["CSRF"] = s.csrfToken(w, r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.pages["dashboard"].ExecuteTemplate(w, "tasklist", data); err != nil {
		applog.Errorf("render task list: %v", err)
	}
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.dispatch(r, c, tasks.TaskSubmitted{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		DueDate:     r.FormValue("due_date"),
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.dispatch(r, c, tasks.FilterChanged{Filter: tasks.ParseFilter(r.FormValue("filter"))})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	sort, valid := tasks.ParseSort(r.FormValue("sort"))
	if !valid {
		sort = tasks.DefaultSort
	}
	s.dispatch(r, c, tasks.SortChanged{Sort: sort})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	completed, err := strconv.ParseBool(r.FormValue("completed"))
	if err != nil {
		http.Error(w, "invalid completed value", http.StatusBadRequest)
		return
	}
	s.dispatch(r, c, tasks.TaskToggled{ID: r.PathValue("id"), Completed: completed})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleEditStart(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.currentView(r, c)
	s.dispatch(r, c, tasks.EditStarted{ID: r.PathValue("id")})
	http.Redirect(w, r, "/dashboard#task-form", http.StatusSeeOther)
}

func (s *Server) handleEditCancel(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.dispatch(r, c, tasks.EditCancelled{})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// handleDeleteConfirm is the confirmation step in front of a delete.
func (s *Server) handleDeleteConfirm(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	for _, card := range s.currentView(r, c).Cards {
		if card.ID == id {
			s.render(w, r, "confirm", map[string]any{"Prompt": tasks.ConfirmDelete, "Card": card})
			return
		}
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	s.dispatch(r, c, tasks.TaskDeleted{ID: r.PathValue("id"), Confirmed: r.FormValue("confirm") == "yes"})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}
