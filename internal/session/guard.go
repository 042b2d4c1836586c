package session

// TokenReader is the read side of the credential store.
type TokenReader interface {
	Get() (string, bool)
}

// Route names a screen or command surface.
type Route string

const (
	RouteLogin    Route = "login"
	RouteRegister Route = "register"
	RouteUpload   Route = "upload"
	RouteAnalysis Route = "analysis"
	RouteReport   Route = "report"
	RouteHistory  Route = "history"
	RouteProfile  Route = "profile"
)

// Protected reports whether entering r requires a session.
func (r Route) Protected() bool {
	switch r {
	case RouteUpload, RouteAnalysis, RouteReport, RouteHistory, RouteProfile:
		return true
	default:
		return false
	}
}

// Decision is the outcome of a guard check.
type Decision struct {
	Allow    bool
	Redirect Route
}

// CanEnter derives the session from the credential and decides entry.
// It reads nothing but the token store and mutates nothing.
func CanEnter(tokens TokenReader) Decision {
	if tokens != nil {
		if _, ok := tokens.Get(); ok {
			return Decision{Allow: true}
		}
	}
	return Decision{Redirect: RouteLogin}
}

// Navigator moves the presentation layer to a route.
type Navigator interface {
	Navigate(Route)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(Route)

// Navigate calls f(r).
func (f NavigatorFunc) Navigate(r Route) { f(r) }

// Guard gates protected routes.
type Guard struct {
	Tokens TokenReader
	Nav    Navigator
}

// Enter reports whether route may be shown. On denial the navigator is sent
// to the redirect route.
func (g Guard) Enter(route Route) bool {
	if !route.Protected() {
		return true
	}
	d := CanEnter(g.Tokens)
	if !d.Allow && g.Nav != nil {
		g.Nav.Navigate(d.Redirect)
	}
	return d.Allow
}
