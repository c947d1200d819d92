package server

import (
	"net/http"
	"strings"

	"github.com/elpatron68/todo-web/internal/auth"
	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/theme"
	"github.com/elpatron68/todo-web/internal/ui"
)

const (
	msgSignupCheckEmail = "Signup successful! Please check your email for confirmation."
	msgConfirmed        = "Email confirmed. You can now log in."
)

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	if sess := auth.Resolve(r, s.auth); sess != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "entry", map[string]any{
		"Tabs":     auth.Tabs(auth.ParseTab(r.URL.Query().Get("tab"))),
		"Messages": s.flashMessages(w, r),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	sess, err := s.auth.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		applog.Infof("auth: login failed: email=%s err=%v", email, err)
		s.setFlash(w, ui.KindError, backend.Message(err, "Login failed"))
		http.Redirect(w, r, "/?tab=login", http.StatusSeeOther)
		return
	}
	auth.SetSessionCookie(w, sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	sess, err := s.auth.SignUp(r.Context(), email, r.FormValue("password"))
	if err != nil {
		applog.Infof("auth: signup failed: email=%s err=%v", email, err)
		s.setFlash(w, ui.KindError, backend.Message(err, "Signup failed"))
		http.Redirect(w, r, "/?tab=signup", http.StatusSeeOther)
		return
	}
	if sess == nil {
		s.setFlash(w, ui.KindSuccess, msgSignupCheckEmail)
		http.Redirect(w, r, "/?tab=signup", http.StatusSeeOther)
		return
	}
	auth.SetSessionCookie(w, sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if s.confirmer == nil {
		http.NotFound(w, r)
		return
	}
	if err := s.confirmer.Confirm(r.Context(), r.URL.Query().Get("token")); err != nil {
		s.setFlash(w, ui.KindError, backend.Message(err, auth.MsgInvalidLink))
	} else {
		s.setFlash(w, ui.KindSuccess, msgConfirmed)
	}
	http.Redirect(w, r, "/?tab=login", http.StatusSeeOther)
}

// handleLogout keeps the user on the dashboard when sign-out fails and
// says so on the message channel.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromRequest(r)
	if err := s.auth.SignOut(r.Context(), sess.AccessToken); err != nil {
		applog.Warnf("auth: logout failed: user=%s err=%v", sess.UserID, err)
		s.messages.Post(sess.ID, ui.KindError, backend.Message(err, "Logout failed"), s.cfg.UI.AuthMessageTTL)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.registry.Close(sess.ID)
	s.messages.Clear(sess.ID)
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	prefs := newCookiePrefs(w, r)
	current := theme.Resolve(prefs, theme.HintFromRequest(r))
	if _, stored := prefs.Get(theme.Key); !stored {
		// the page may have applied the OS scheme client-side
		if shown, ok := theme.Parse(r.FormValue("current")); ok {
			current = shown
		}
	}
	next := theme.Toggle(prefs, current)
	applog.Debugf("theme: switched to %s", next)
	http.Redirect(w, r, backTo(r, "/"), http.StatusSeeOther)
}
