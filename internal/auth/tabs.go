package auth

type Tab string

const (
	TabLogin  Tab = "login"
	TabSignup Tab = "signup"
)

// TabView is one tab control together with the form it reveals.
type TabView struct {
	Name   Tab
	Label  string
	Active bool
}

// ParseTab falls back to the login tab for anything unknown.
func ParseTab(s string) Tab {
	if Tab(s) == TabSignup {
		return TabSignup
	}
	return TabLogin
}

// Tabs returns both tabs with exactly one of them active.
func Tabs(active Tab) []TabView {
	active = ParseTab(string(active))
	return []TabView{
		{Name: TabLogin, Label: "Login", Active: active == TabLogin},
		{Name: TabSignup, Label: "Sign Up", Active: active == TabSignup},
	}
}
