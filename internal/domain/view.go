package domain

// View names one screen of the application.
type View string

const (
	ViewLanding       View = "landing"
	ViewDashboard     View = "dashboard"
	ViewChat          View = "chat"
	ViewPromptBuilder View = "prompt-builder"
	ViewCodeBuilder   View = "code-builder"
	ViewGenerator     View = "generator"
	ViewHistory       View = "history"
	ViewStore         View = "store"
)

// DefaultAuthenticatedView is where login and reload land.
const DefaultAuthenticatedView = ViewDashboard

var allViews = []View{
	ViewLanding, ViewDashboard, ViewChat, ViewPromptBuilder,
	ViewCodeBuilder, ViewGenerator, ViewHistory, ViewStore,
}

// Views returns every known view in navigation order.
func Views() []View {
	out := make([]View, len(allViews))
	copy(out, allViews)
	return out
}

// ParseView converts a route segment into a View.
func ParseView(s string) (View, bool) {
	for _, v := range allViews {
		if string(v) == s {
			return v, true
		}
	}
	return "", false
}

// Authenticated reports whether the view requires a session.
func (v View) Authenticated() bool {
	return v != ViewLanding
}
