package session

import "github.com/edumentor/edumentor-go/internal/api"

// Capability is the access requirement a surface declares. The set is
// closed: surfaces pick from these constants, never from raw role strings.
type Capability int

const (
	CapabilityNone    Capability = iota // open to everyone
	CapabilityAny                       // any authenticated user
	CapabilityStudent                   // students only
	CapabilityMentor                    // mentors only
	CapabilityAdmin                     // admins only
)

// String returns the capability name for logs and error messages.
func (c Capability) String() string {
	switch c {
	case CapabilityNone:
		return "none"
	case CapabilityAny:
		return "any authenticated user"
	case CapabilityStudent:
		return "student"
	case CapabilityMentor:
		return "mentor"
	case CapabilityAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Effect is the kind of access decision.
type Effect int

const (
	EffectAllow    Effect = iota // proceed
	EffectSuspend                // session unresolved, hold the request
	EffectRedirect               // send the caller to Decision.Target
)

// String returns the effect name for logs and display.
func (e Effect) String() string {
	switch e {
	case EffectAllow:
		return "allow"
	case EffectSuspend:
		return "suspend"
	case EffectRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Route names a navigable surface.
type Route string

const (
	RouteLogin     Route = "login"
	RouteRegister  Route = "register"
	RouteDashboard Route = "dashboard"
	RouteCourses   Route = "courses"
	RouteMentors   Route = "mentors"
	RouteSessions  Route = "sessions"
	RouteChat      Route = "chat"
	RouteProgress  Route = "progress"
	RouteStudy     Route = "study"
	RouteUsers     Route = "users"
)

// routeCapabilities declares what each surface requires. Unlisted routes
// default to CapabilityAny: a surface someone forgot to register here must
// fail closed for anonymous callers, not open.
var routeCapabilities = map[Route]Capability{
	RouteLogin:     CapabilityNone,
	RouteRegister:  CapabilityNone,
	RouteCourses:   CapabilityNone,
	RouteMentors:   CapabilityNone,
	RouteDashboard: CapabilityAny,
	RouteSessions:  CapabilityAny,
	RouteChat:      CapabilityAny,
	RouteProgress:  CapabilityAny,
	RouteStudy:     CapabilityAny,
	RouteUsers:     CapabilityAdmin,
}

// Decision is the outcome of an access check. Target is set only for
// EffectRedirect.
type Decision struct {
	Effect Effect
	Target Route
}

// Authorize decides access from a session snapshot and a required
// capability. It is a pure function: same inputs, same decision, no side
// effects. Rules apply in priority order and the first match wins:
//
//  1. Session not yet resolved: suspend, even for open surfaces. Rendering
//     anything before resolution finishes causes a redirect flicker when
//     the stored credential turns out to be live.
//  2. Anonymous and the surface requires any capability: redirect to login.
//  3. Authenticated but the role does not satisfy the capability: redirect
//     to the dashboard.
//  4. Otherwise allow.
func Authorize(snap Snapshot, required Capability) Decision {
	if snap.Status == StatusUninitialized || snap.Status == StatusResolving {
		return Decision{Effect: EffectSuspend}
	}

	if required == CapabilityNone {
		return Decision{Effect: EffectAllow}
	}

	if snap.Status != StatusAuthenticated || snap.Identity == nil {
		return Decision{Effect: EffectRedirect, Target: RouteLogin}
	}

	if !satisfies(snap.Identity.Role, required) {
		return Decision{Effect: EffectRedirect, Target: RouteDashboard}
	}

	return Decision{Effect: EffectAllow}
}

// AuthorizeRoute decides access to a named surface using the declared
// capability table.
func AuthorizeRoute(snap Snapshot, route Route) Decision {
	return Authorize(snap, RequiredCapability(route))
}

// RequiredCapability returns the capability the route declares. Unlisted
// routes fail closed to CapabilityAny.
func RequiredCapability(route Route) Capability {
	required, ok := routeCapabilities[route]
	if !ok {
		return CapabilityAny
	}

	return required
}

// satisfies reports whether a role meets a capability. Unknown roles (a
// newer server may mint ones this build has never heard of) satisfy
// nothing beyond CapabilityAny.
func satisfies(role api.Role, required Capability) bool {
	switch required {
	case CapabilityAny:
		return true
	case CapabilityStudent:
		return role == api.RoleStudent
	case CapabilityMentor:
		return role == api.RoleMentor
	case CapabilityAdmin:
		return role == api.RoleAdmin
	default:
		return false
	}
}
