package auth

import (
	"slices"
	"sort"
	"strings"
)

// Route is the list of navigation segments of the displayed screen,
// e.g. ["(auth)", "sign-in"] or ["reservation"].
type Route []string

// ParseRoute splits a slash-separated path into segments.
// Leading, trailing and repeated slashes are ignored; a query string is dropped.
func ParseRoute(path string) Route {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	route := make(Route, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			route = append(route, p)
		}
	}
	return route
}

// Group returns the first segment, the screen group the guard matches on.
func (r Route) Group() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Path renders the route as an absolute path.
func (r Route) Path() string {
	return "/" + strings.Join(r, "/")
}

// Redirect is a navigation target produced by the guard.
type Redirect struct {
	Path   string
	Params map[string]string
}

// Href renders the redirect as path plus query. Params are emitted in key
// order and are not escaped: values are in-app paths.
func (r Redirect) Href() string {
	if len(r.Params) == 0 {
		return r.Path
	}
	keys := make([]string, 0, len(r.Params))
	for k := range r.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(r.Path)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Params[k])
	}
	return b.String()
}

// GuardPolicy holds the product decisions the guard applies.
type GuardPolicy struct {
	// GuestsBlockedFromProtected sends guests to sign-in when they open a
	// protected group; they must upgrade to an account first.
	GuestsBlockedFromProtected bool
}

// DefaultGuardPolicy blocks guests from protected groups.
var DefaultGuardPolicy = GuardPolicy{GuestsBlockedFromProtected: true}

// RouteTable names the screen groups and targets the guard works with.
type RouteTable struct {
	AuthGroup       string
	ProtectedGroups []string
	HomeGroup       string
	SignInPath      string
	HomePath        string
	// ReturnParam is the query parameter carrying the originally requested path.
	ReturnParam string
}

// DefaultRouteTable matches the app's navigation tree.
var DefaultRouteTable = RouteTable{
	AuthGroup:       "(auth)",
	ProtectedGroups: []string{"reservation"},
	HomeGroup:       "home",
	SignInPath:      "/sign-in",
	HomePath:        "/home",
	ReturnParam:     "redirect",
}

// GuardRule identifies which row of the decision table matched.
type GuardRule uint8

const (
	RuleNone GuardRule = iota
	RuleAuthenticatedInAuthGroup
	RuleAnonymousInProtected
	RuleGuestInProtected
	RuleAnonymousAtHome
	RuleEnteredInAuthGroup
)

func (r GuardRule) String() string {
	switch r {
	case RuleAuthenticatedInAuthGroup:
		return "authenticated_in_auth_group"
	case RuleAnonymousInProtected:
		return "anonymous_in_protected"
	case RuleGuestInProtected:
		return "guest_in_protected"
	case RuleAnonymousAtHome:
		return "anonymous_at_home"
	case RuleEnteredInAuthGroup:
		return "entered_in_auth_group"
	default:
		return "none"
	}
}

// Decision is the guard output. Redirect is nil when no navigation is needed.
type Decision struct {
	Rule     GuardRule
	Redirect *Redirect
}

// Redirects reports whether the decision requires navigation.
func (d Decision) Redirects() bool { return d.Redirect != nil }

// Guard maps (IdentityState, Route) to an optional redirect.
type Guard struct {
	routes RouteTable
	policy GuardPolicy
}

// NewGuard builds a guard. Empty RouteTable fields fall back to DefaultRouteTable.
func NewGuard(routes RouteTable, policy GuardPolicy) Guard {
	d := DefaultRouteTable
	if routes.AuthGroup == "" {
		routes.AuthGroup = d.AuthGroup
	}
	if len(routes.ProtectedGroups) == 0 {
		routes.ProtectedGroups = d.ProtectedGroups
	}
	if routes.HomeGroup == "" {
		routes.HomeGroup = d.HomeGroup
	}
	if routes.SignInPath == "" {
		routes.SignInPath = d.SignInPath
	}
	if routes.HomePath == "" {
		routes.HomePath = d.HomePath
	}
	if routes.ReturnParam == "" {
		routes.ReturnParam = d.ReturnParam
	}
	routes.ProtectedGroups = slices.Clone(routes.ProtectedGroups)
	return Guard{routes: routes, policy: policy}
}

// Routes returns the guard's route table.
func (g Guard) Routes() RouteTable { return g.routes }

// Policy returns the guard's policy.
func (g Guard) Policy() GuardPolicy { return g.policy }

// Decide evaluates the decision table in priority order; the first match wins.
func (g Guard) Decide(state IdentityState, route Route) Decision {
	group := route.Group()
	inAuth := group == g.routes.AuthGroup
	inProtected := slices.Contains(g.routes.ProtectedGroups, group)

	switch {
	case state.IsAuthenticated() && inAuth:
		return g.toHome(RuleAuthenticatedInAuthGroup)
	case inProtected && state.IsAnonymous():
		return g.toSignIn(RuleAnonymousInProtected, route)
	case inProtected && state.IsGuest() && g.policy.GuestsBlockedFromProtected:
		return g.toSignIn(RuleGuestInProtected, route)
	case group == g.routes.HomeGroup && state.IsAnonymous():
		return Decision{Rule: RuleAnonymousAtHome, Redirect: &Redirect{Path: g.routes.SignInPath}}
	case (state.IsAuthenticated() || state.IsGuest()) && inAuth:
		return g.toHome(RuleEnteredInAuthGroup)
	default:
		return Decision{Rule: RuleNone}
	}
}

func (g Guard) toHome(rule GuardRule) Decision {
	return Decision{Rule: rule, Redirect: &Redirect{Path: g.routes.HomePath}}
}

func (g Guard) toSignIn(rule GuardRule, route Route) Decision {
	return Decision{
		Rule: rule,
		Redirect: &Redirect{
			Path:   g.routes.SignInPath,
			Params: map[string]string{g.routes.ReturnParam: route.Path()},
		},
	}
}
