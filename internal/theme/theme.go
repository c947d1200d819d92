// Package theme resolves and persists the light/dark preference.
package theme

import (
	"net/http"
	"strings"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Key is the preference key the choice is stored under.
const Key = "theme"

// HintHeader is the client hint carrying the OS color scheme.
const HintHeader = "Sec-CH-Prefers-Color-Scheme"

// Prefs is a persisted key-value preference store.
type Prefs interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

func Parse(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

// Resolve picks the stored choice, then the OS hint, then light.
func Resolve(p Prefs, hint string) Theme {
	if p != nil {
		if v, ok := p.Get(Key); ok {
			if t, ok := Parse(v); ok {
				return t
			}
		}
	}
	if t, ok := Parse(hint); ok {
		return t
	}
	return Light
}

// Toggle flips current and persists the result immediately.
func Toggle(p Prefs, current Theme) Theme {
	next := current.Opposite()
	if p != nil {
		p.Set(Key, string(next))
	}
	return next
}

func (t Theme) Opposite() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// Icon is the class of the toggle icon: a sun offers the way back to light.
func (t Theme) Icon() string {
	if t == Dark {
		return "fas fa-sun"
	}
	return "fas fa-moon"
}

func HintFromRequest(r *http.Request) string {
	return strings.Trim(r.Header.Get(HintHeader), `" `)
}
