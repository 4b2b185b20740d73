// Package nav is the in-process router: a history stack of routes with
// change listeners.
package nav

import (
	"slices"
	"strings"
	"sync"
)

// Route is an application path such as "/login".
type Route string

// Application routes.
const (
	RouteHome      Route = "/"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteDashboard Route = "/dashboard"
	RouteProfile   Route = "/dashboard/profile"
)

// Within reports whether r equals prefix or is nested below it.
func (r Route) Within(prefix Route) bool {
	if r == prefix {
		return true
	}
	p := strings.TrimSuffix(string(prefix), "/")
	return strings.HasPrefix(string(r), p+"/")
}

// Change describes one navigation.
type Change struct {
	From    Route
	To      Route
	Replace bool
}

// Listener observes navigations. It runs synchronously after the history is
// updated and may navigate again.
type Listener func(Change)

// Navigator is a browser-style history stack.
type Navigator struct {
	mu        sync.Mutex
	history   []Route
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn Listener
}

// New creates a navigator positioned at start.
func New(start Route) *Navigator {
	return &Navigator{
		history: []Route{start},
	}
}

// Current returns the active route.
func (n *Navigator) Current() Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.history[len(n.history)-1]
}

// History returns a copy of the stack, oldest first.
func (n *Navigator) History() []Route {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Route, len(n.history))
	copy(out, n.history)
	return out
}

// Push appends r to the history. Pushing the current route is a no-op.
func (n *Navigator) Push(r Route) {
	n.mu.Lock()
	from := n.history[len(n.history)-1]
	if from == r {
		n.mu.Unlock()
		return
	}
	n.history = append(n.history, r)
	n.mu.Unlock()

	n.notify(Change{From: from, To: r})
}

// Replace swaps the current entry for r, so Back cannot return to it.
func (n *Navigator) Replace(r Route) {
	n.mu.Lock()
	from := n.history[len(n.history)-1]
	n.history[len(n.history)-1] = r
	n.mu.Unlock()

	if from != r {
		n.notify(Change{From: from, To: r, Replace: true})
	}
}

// Back pops the current entry. It reports false when there is nothing to go
// back to.
func (n *Navigator) Back() bool {
	n.mu.Lock()
	if len(n.history) < 2 {
		n.mu.Unlock()
		return false
	}
	from := n.history[len(n.history)-1]
	n.history = n.history[:len(n.history)-1]
	to := n.history[len(n.history)-1]
	n.mu.Unlock()

	if from != to {
		n.notify(Change{From: from, To: to})
	}
	return true
}

// OnChange registers l and returns a function that removes it.
func (n *Navigator) OnChange(l Listener) (remove func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners = append(n.listeners, listener{id: id, fn: l})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.listeners = slices.DeleteFunc(n.listeners, func(x listener) bool { return x.id == id })
	}
}

func (n *Navigator) notify(c Change) {
	n.mu.Lock()
	ls := make([]Listener, len(n.listeners))
	for i, l := range n.listeners {
		ls[i] = l.fn
	}
	n.mu.Unlock()

	for _, l := range ls {
		l(c)
	}
}
