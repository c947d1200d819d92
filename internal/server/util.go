package server

import (
	"crypto/rand"
	"crypto/subtle"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/theme"
	"github.com/elpatron68/todo-web/internal/ui"
)

const (
	csrfCookie  = "csrf_token"
	flashCookie = "flash"

	csrfTokenTTL = 7 * 24 * time.Hour
)

// csrfToken returns the request's double-submit token, issuing a new
// cookie when the browser has none yet.
func (s *Server) csrfToken(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(csrfCookie); err == nil && c.Value != "" {
		return c.Value
	}
	token := rand.Text()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(csrfTokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	return token
}

// csrfMiddleware rejects state-changing requests whose form token does not
// match the cookie.
func (s *Server) csrfMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		c, err := r.Cookie(csrfCookie)
		form := r.FormValue(csrfCookie)
		if err != nil || c.Value == "" || subtle.ConstantTimeCompare([]byte(c.Value), []byte(form)) != 1 {
			applog.Warnf("csrf: rejected %s %s", r.Method, r.URL.Path)
			s.setFlash(w, ui.KindError, "Invalid security token. Please refresh the page and try again.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// flash support: a short-lived cookie for pages without a session.
type flash struct {
	Kind ui.Kind
	Text string
}

func (s *Server) setFlash(w http.ResponseWriter, kind ui.Kind, text string) {
	if kind == "" {
		kind = ui.KindInfo
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(string(kind) + "|" + text),
		Path:     "/",
		MaxAge:   int(s.cfg.UI.AuthMessageTTL.Seconds()) + 1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// takeFlash reads the flash cookie and clears it so it renders once.
func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Value: "", Path: "/", MaxAge: -1})
	val, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	f := &flash{Kind: ui.KindInfo, Text: val}
	if kind, text, ok := strings.Cut(val, "|"); ok {
		f.Kind, f.Text = ui.Kind(kind), text
	}
	return f
}

func (s *Server) flashMessages(w http.ResponseWriter, r *http.Request) []messageView {
	f := s.takeFlash(w, r)
	if f == nil {
		return nil
	}
	return []messageView{{Kind: string(f.Kind), Text: f.Text, TTL: s.cfg.UI.AuthMessageTTL.Milliseconds()}}
}

// backTo returns a same-site redirect target from the Referer, or def.
func backTo(r *http.Request, def string) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return def
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return def
	}
	if u.Path == "" || !strings.HasPrefix(u.Path, "/") {
		return def
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// cookiePrefs persists preferences in long-lived cookies.
type cookiePrefs struct {
	w   http.ResponseWriter
	r   *http.Request
	set map[string]string
}

var _ theme.Prefs = (*cookiePrefs)(nil)

func newCookiePrefs(w http.ResponseWriter, r *http.Request) *cookiePrefs {
	return &cookiePrefs{w: w, r: r, set: map[string]string{}}
}

func (p *cookiePrefs) Get(key string) (string, bool) {
	if v, ok := p.set[key]; ok {
		return v, true
	}
	c, err := p.r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (p *cookiePrefs) Set(key, value string) {
	p.set[key] = value
	http.SetCookie(p.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   365 * 24 * 3600,
		SameSite: http.SameSiteLaxMode,
	})
}
