package guard

import (
	"context"
	"net/url"
)

// Default routes.
const (
	LoginRoute   = "/auth/login"
	DefaultRoute = "/dashboard"
	ReturnParam  = "returnUrl"
)

// DeniedNotice is shown when an authenticated user lacks the route's role.
const DeniedNotice = "You do not have permission to access this page"

// Authority answers session questions for guards.
type Authority interface {
	IsAuthenticated(ctx context.Context) bool
	HasRole(roles ...string) bool
}

// Decision is a guard outcome. When Allow is false, Redirect names the
// route to open instead and Notice, if set, explains why.
type Decision struct {
	Allow    bool
	Redirect string
	Notice   string
}

// Allowed is the permissive decision.
var Allowed = Decision{Allow: true}

// Guard evaluates access to path.
type Guard interface {
	Check(ctx context.Context, path string) Decision
}

// Routes names the redirect targets used by guards.
type Routes struct {
	Login   string
	Default string
}

func (r Routes) withDefaults() Routes {
	if r.Login == "" {
		r.Login = LoginRoute
	}
	if r.Default == "" {
		r.Default = DefaultRoute
	}
	return r
}

// LoginRedirect builds the login route carrying the originally requested
// path as returnUrl.
func (r Routes) LoginRedirect(requested string) string {
	r = r.withDefaults()
	if requested == "" {
		return r.Login
	}
	return r.Login + "?" + url.Values{ReturnParam: {requested}}.Encode()
}

type authenticated struct {
	auth   Authority
	routes Routes
}

// Authenticated allows any logged-in user and sends everyone else to the
// login route.
func Authenticated(auth Authority, routes Routes) Guard {
	return authenticated{auth: auth, routes: routes.withDefaults()}
}

func (g authenticated) Check(ctx context.Context, path string) Decision {
	if g.auth != nil && g.auth.IsAuthenticated(ctx) {
		return Allowed
	}
	return Decision{Redirect: g.routes.LoginRedirect(path)}
}

type requireRoles struct {
	auth   Authority
	routes Routes
	roles  []string
}

// RequireRoles allows logged-in users holding one of roles. Anonymous users
// go to the login route; users without the role go to the default route
// with [DeniedNotice].
func RequireRoles(auth Authority, routes Routes, roles ...string) Guard {
	return requireRoles{auth: auth, routes: routes.withDefaults(), roles: append([]string(nil), roles...)}
}

func (g requireRoles) Check(ctx context.Context, path string) Decision {
	if g.auth == nil || !g.auth.IsAuthenticated(ctx) {
		return Decision{Redirect: g.routes.LoginRedirect(path)}
	}
	if !g.auth.HasRole(g.roles...) {
		return Decision{Redirect: g.routes.Default, Notice: DeniedNotice}
	}
	return Allowed
}
