package client

import "github.com/bachecahq/bacheca/internal/model"

// View identifies one of the application's screens.
type View int

const (
	ViewLoading View = iota
	ViewLogin
	ViewHome
	ViewProfile
	ViewAdmin
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewLogin:
		return "login"
	case ViewHome:
		return "home"
	case ViewProfile:
		return "profile"
	case ViewAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Route paths known to the application.
const (
	RouteLogin   = "/login"
	RouteHome    = "/"
	RouteProfile = "/profilo"
	RouteAdmin   = "/admin"
)

// Decision is the router guard's verdict for a route: either show a view or
// redirect elsewhere.
type Decision struct {
	View       View
	RedirectTo string
}

// Redirects reports whether the decision is a redirect.
func (d Decision) Redirects() bool {
	return d.RedirectTo != ""
}

// ResolveRoute is the router guard: a pure function of the requested route
// and the session state. While the session is still being checked every
// route holds at the loading view; no redirect fires off an unsettled state.
func ResolveRoute(route string, state State, identity *model.Identity) Decision {
	if state == StateChecking {
		return Decision{View: ViewLoading}
	}

	authenticated := state == StateAuthenticated
	admin := authenticated && identity != nil && identity.IsAdmin

	switch route {
	case RouteLogin:
		if authenticated {
			return Decision{RedirectTo: RouteHome}
		}
		return Decision{View: ViewLogin}
	case RouteHome:
		if !authenticated {
			return Decision{RedirectTo: RouteLogin}
		}
		return Decision{View: ViewHome}
	case RouteProfile:
		if !authenticated {
			return Decision{RedirectTo: RouteLogin}
		}
		return Decision{View: ViewProfile}
	case RouteAdmin:
		if !admin {
			return Decision{RedirectTo: RouteHome}
		}
		return Decision{View: ViewAdmin}
	default:
		return Decision{RedirectTo: RouteHome}
	}
}
