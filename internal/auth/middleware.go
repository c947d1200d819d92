package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/elpatron68/todo-web/internal/backend"
	applog "github.com/elpatron68/todo-web/internal/log"
)

const SessionCookie = "session"

type contextKey string

const sessionKey contextKey = "auth.session"

// RequireSession resolves the session on every request and redirects to the
// entry page when there is none. The session is never cached across requests.
func RequireSession(client backend.AuthClient, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := Resolve(r, client)
		if sess == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// Resolve asks the auth collaborator for the session behind the request's cookie.
func Resolve(r *http.Request, client backend.AuthClient) *backend.Session {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	sess, err := client.CurrentSession(r.Context(), c.Value)
	if err != nil {
		applog.Warnf("auth: current session lookup failed: %v", err)
		return nil
	}
	return sess
}

func WithSession(ctx context.Context, s *backend.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromRequest(r *http.Request) (*backend.Session, bool) {
	s, ok := r.Context().Value(sessionKey).(*backend.Session)
	return s, ok && s != nil
}

func SetSessionCookie(w http.ResponseWriter, s *backend.Session) {
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.AccessToken,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}
