// Package guard redirects signed-out sessions away from protected routes.
package guard

import (
	"fmt"
	"sync/atomic"

	"github.com/felixgeelhaar/cloudstudy/internal/log"
	"github.com/felixgeelhaar/cloudstudy/internal/nav"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

// Guard watches the store and the navigator. Whenever either the user or the
// route changes it re-checks access, and sends signed-out sessions on a
// protected route to the login route with Replace.
//
// A Guard only navigates; it never dispatches.
type Guard struct {
	store     *store.Store
	nav       *nav.Navigator
	protected []nav.Route
	login     nav.Route
	logger    *log.Logger
	redirects atomic.Int64
}

// Option configures a Guard.
type Option func(*Guard)

// WithProtected replaces the default protected prefixes.
func WithProtected(prefixes ...nav.Route) Option {
	return func(g *Guard) { g.protected = prefixes }
}

// WithLoginRoute sets where signed-out sessions are sent.
func WithLoginRoute(r nav.Route) Option {
	return func(g *Guard) { g.login = r }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// New creates a guard protecting nav.RouteDashboard by default.
// It fails if the login route would itself be protected, since that loops.
func New(s *store.Store, n *nav.Navigator, opts ...Option) (*Guard, error) {
	g := &Guard{
		store:     s,
		nav:       n,
		protected: []nav.Route{nav.RouteDashboard},
		login:     nav.RouteLogin,
		logger:    log.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}

	if g.IsProtected(g.login) {
		return nil, fmt.Errorf("login route %s is protected", g.login)
	}
	return g, nil
}

// IsProtected reports whether r requires a signed-in user.
func (g *Guard) IsProtected(r nav.Route) bool {
	for _, p := range g.protected {
		if r.Within(p) {
			return true
		}
	}
	return false
}

// Check evaluates the current route now. It reports whether it redirected.
func (g *Guard) Check() bool {
	current := g.nav.Current()
	if !g.IsProtected(current) || g.store.State().Authenticated() {
		return false
	}

	g.redirects.Add(1)
	g.logger.Debug("redirecting signed-out session", "from", string(current), "to", string(g.login))
	g.nav.Replace(g.login)
	return true
}

// Start evaluates once and then subscribes to user and route changes.
// The returned function stops the guard.
func (g *Guard) Start() (stop func()) {
	unsubscribe := g.store.Subscribe(func(prev, next store.State) {
		if store.UserChanged(prev, next) {
			g.Check()
		}
	})
	remove := g.nav.OnChange(func(nav.Change) {
		g.Check()
	})

	g.Check()

	return func() {
		unsubscribe()
		remove()
	}
}

// Redirects returns how many times the guard has redirected.
func (g *Guard) Redirects() int64 {
	return g.redirects.Load()
}
