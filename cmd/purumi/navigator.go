package main

import (
	"io"
	"sync"

	domainauth "github.com/purumi/purumi/internal/domain/auth"
	"github.com/purumi/purumi/internal/ports"
)

var _ ports.Navigator = (*terminalNavigator)(nil)

// terminalNavigator keeps the current screen route in memory and prints
// every redirect.
type terminalNavigator struct {
	mu     sync.Mutex
	routes domainauth.RouteTable
	route  domainauth.Route
	out    io.Writer
}

func newTerminalNavigator(out io.Writer, routes domainauth.RouteTable, start string) *terminalNavigator {
	n := &terminalNavigator{routes: routes, out: out}
	n.route = n.resolve(start)
	return n
}

// resolve maps a URL path to screen segments. The sign-in screen lives in
// the auth group, which does not appear in its URL.
func (n *terminalNavigator) resolve(path string) domainauth.Route {
	route := domainauth.ParseRoute(path)
	if route.Path() == n.routes.SignInPath && n.routes.AuthGroup != "" {
		return append(domainauth.Route{n.routes.AuthGroup}, route...)
	}
	return route
}

func (n *terminalNavigator) CurrentRoute() domainauth.Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append(domainauth.Route(nil), n.route...)
}

func (n *terminalNavigator) Replace(target domainauth.Redirect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = n.resolve(target.Path)
	return writef(n.out, "→ %s\n", target.Href())
}
