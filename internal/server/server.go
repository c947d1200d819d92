// Package server is the HTTP surface: entry page, dashboard, task routes,
// the realtime event stream and the theme toggle.
package server

import (
	"context"
	"html/template"
	"net/http"
	"time"

	"github.com/elpatron68/todo-web/internal/auth"
	"github.com/elpatron68/todo-web/internal/backend"
	"github.com/elpatron68/todo-web/internal/config"
	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/tasks"
	"github.com/elpatron68/todo-web/internal/theme"
	"github.com/elpatron68/todo-web/internal/ui"
)

const appTitle = "To-Do"

// Confirmer completes an out-of-band email confirmation.
type Confirmer interface {
	Confirm(ctx context.Context, token string) error
}

type Deps struct {
	Auth      backend.AuthClient
	Confirmer Confirmer
	Registry  *tasks.Registry
	Messages  *ui.MessageStore
}

type Server struct {
	cfg       *config.Config
	auth      backend.AuthClient
	confirmer Confirmer
	registry  *tasks.Registry
	messages  *ui.MessageStore
	mux       *http.ServeMux
	pages     map[string]*template.Template
	loc       *time.Location
	heartbeat time.Duration
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	loc, err := cfg.Location()
	if err != nil {
		applog.Warnf("invalid timezone %q, using UTC: %v", cfg.UI.Timezone, err)
		loc = time.UTC
	}
	s := &Server{
		cfg:       cfg,
		auth:      deps.Auth,
		confirmer: deps.Confirmer,
		registry:  deps.Registry,
		messages:  deps.Messages,
		mux:       http.NewServeMux(),
		loc:       loc,
		heartbeat: 15 * time.Second,
	}
	if s.messages == nil {
		s.messages = ui.NewMessageStore(0)
	}

	layout := template.Must(template.New("layout").Parse(layoutHTML))
	s.pages = map[string]*template.Template{
		"entry":     mustPage(layout, entryHTML),
		"dashboard": mustPage(layout, dashboardHTML),
		"confirm":   mustPage(layout, confirmDeleteHTML),
	}
	s.routes()
	return s
}

func mustPage(layout *template.Template, content string) *template.Template {
	t := template.Must(layout.Clone())
	template.Must(t.New("content").Parse(content))
	return t
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /favicon.svg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write([]byte(faviconSVG))
	})
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.HandleFunc("GET /{$}", s.handleEntry)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /signup", s.handleSignup)
	s.mux.HandleFunc("GET /auth/confirm", s.handleConfirm)
	s.mux.HandleFunc("POST /theme/toggle", s.handleThemeToggle)

	s.mux.Handle("POST /logout", s.protect(s.handleLogout))
	s.mux.Handle("GET /dashboard", s.protect(s.handleDashboard))
	s.mux.Handle("GET /tasks/list", s.protect(s.handleTaskList))
	s.mux.Handle("POST /tasks", s.protect(s.handleSubmit))
	s.mux.Handle("POST /tasks/filter", s.protect(s.handleFilter))
	s.mux.Handle("POST /tasks/sort", s.protect(s.handleSort))
	s.mux.Handle("POST /tasks/{id}/toggle", s.protect(s.handleToggle))
	s.mux.Handle("GET /tasks/{id}/edit", s.protect(s.handleEditStart))
	s.mux.Handle("POST /tasks/edit/cancel", s.protect(s.handleEditCancel))
	s.mux.Handle("GET /tasks/{id}/delete", s.protect(s.handleDeleteConfirm))
	s.mux.Handle("POST /tasks/{id}/delete", s.protect(s.handleDelete))
	s.mux.Handle("GET /events", s.protect(s.handleEvents))
}

func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return auth.RequireSession(s.auth, h)
}

// Handler wraps the routes with request logging and the CSRF check.
// /healthz skips both.
func (s *Server) Handler() http.Handler {
	checked := s.csrfMiddleware(s.mux)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			s.mux.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		checked.ServeHTTP(rec, r)
		applog.Debugf("http: %s %s status=%d dur=%s", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// PruneLoop closes task controllers of sessions idle for longer than idle.
func (s *Server) PruneLoop(ctx context.Context, idle time.Duration) {
	t := time.NewTicker(idle / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.registry.Prune(idle); n > 0 {
				applog.Infof("closed %d idle task controllers", n)
			}
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach Flush on the real writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

type messageView struct {
	Kind string
	Text string
	TTL  int64
}

// render executes a page with the fields every page shares.
func (s *Server) render(w http.ResponseWriter, r *http.Request, page string, data map[string]any) {
	prefs := newCookiePrefs(w, r)
	th := theme.Resolve(prefs, theme.HintFromRequest(r))
	_, stored := prefs.Get(theme.Key)
	w.Header().Set("Accept-CH", theme.HintHeader)
	w.Header().Set("Critical-CH", theme.HintHeader)
	w.Header().Add("Vary", theme.HintHeader)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if data == nil {
		data = map[string]any{}
	}
	data["Title"] = appTitle
	data["Theme"] = string(th)
	data["Icon"] = th.Icon()
	// without a stored choice the page re-checks the OS scheme itself
	data["ThemeStored"] = stored
	data["CSRF"] = s.csrfToken(w, r)
	if _, ok := data["Messages"]; !ok {
		data["Messages"] = s.sessionMessages(r)
	}
	if sess, ok := auth.SessionFromRequest(r); ok {
		data["User"] = sess.Email
	}

	if err := s.pages[page].Execute(w, data); err != nil {
		applog.Errorf("render %s: %v", page, err)
	}
}

func (s *Server) sessionMessages(r *http.Request) []messageView {
	sess, ok := auth.SessionFromRequest(r)
	if !ok {
		return nil
	}
	now := s.messages.Now()
	active := s.messages.Active(sess.ID)
	out := make([]messageView, 0, len(active))
	for _, m := range active {
		out = append(out, messageView{Kind: string(m.Kind), Text: m.Text, TTL: m.TTL(now)})
	}
	return out
}
