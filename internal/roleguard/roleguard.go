// Package roleguard holds the single authorization/routing table for the
// four platform roles. Every surface consults this table instead of keeping
// its own role-to-route map.
package roleguard

import "net/http"

// Role is a platform role carried on each request.
type Role string

const (
	RoleClient         Role = "CLIENT"
	RoleAgent          Role = "AGENT"
	RoleAdminOperateur Role = "ADMIN_OPERATEUR"
	RoleMinistere      Role = "MINISTERE"
)

// RoleHeader carries the caller's role on API requests.
const RoleHeader = "X-Billetterie-Role"

// LoginRoute is where unknown or absent roles are sent.
const LoginRoute = "/login-simule"

type entry struct {
	landing  string
	prefixes []string
}

// table maps each role to its landing route and the API prefixes it may
// call. Read paths under /api are open to every known role.
var table = map[Role]entry{
	RoleClient: {
		landing:  "/client?view=search",
		prefixes: []string{"/api/purchases", "/api/clients"},
	},
	RoleAgent: {
		landing:  "/agent?view=dashboard",
		prefixes: []string{"/api/tickets", "/api/operators"},
	},
	RoleAdminOperateur: {
		landing:  "/admin?view=dashboard",
		prefixes: []string{"/api/tickets", "/api/operators", "/api/lines"},
	},
	RoleMinistere: {
		landing:  "/ministere?view=dashboard",
		prefixes: []string{"/api/operators", "/api/lines"},
	},
}

// Known reports whether the role exists in the table.
func Known(r Role) bool {
	_, ok := table[r]
	return ok
}

// LandingRoute returns the landing route for a role, or the login route for
// an unknown/absent role.
func LandingRoute(r Role) string {
	if e, ok := table[r]; ok {
		return e.landing
	}
	return LoginRoute
}

// FromRequest extracts the caller's role from the request headers.
func FromRequest(r *http.Request) Role {
	return Role(r.Header.Get(RoleHeader))
}

// AllowedPath reports whether a role may call a mutating endpoint under the
// given path. Unknown roles are never allowed.
func AllowedPath(role Role, path string) bool {
	e, ok := table[role]
	if !ok {
		return false
	}
	for _, p := range e.prefixes {
		if len(path) >= len(p) && path[:len(p)] == p {
			return true
		}
	}
	return false
}
