package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteWithin(t *testing.T) {
	tests := []struct {
		route  Route
		prefix Route
		want   bool
	}{
		{RouteDashboard, RouteDashboard, true},
		{RouteProfile, RouteDashboard, true},
		{"/dashboard/", RouteDashboard, true},
		{"/dashboards", RouteDashboard, false},
		{RouteLogin, RouteDashboard, false},
		{RouteProfile, "/dashboard/", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.route)+"_in_"+string(tt.prefix), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.route.Within(tt.prefix))
		})
	}
}

func TestNavigator_PushAndBack(t *testing.T) {
	n := New(RouteHome)

	n.Push(RouteLogin)
	n.Push(RouteRegister)
	assert.Equal(t, RouteRegister, n.Current())
	assert.Equal(t, []Route{RouteHome, RouteLogin, RouteRegister}, n.History())

	assert.True(t, n.Back())
	assert.Equal(t, RouteLogin, n.Current())
	assert.True(t, n.Back())
	assert.False(t, n.Back(), "cannot go back past the first entry")
	assert.Equal(t, RouteHome, n.Current())
}

func TestNavigator_PushSameRouteIsNoop(t *testing.T) {
	n := New(RouteHome)
	calls := 0
	n.OnChange(func(Change) { calls++ })

	n.Push(RouteHome)

	assert.Len(t, n.History(), 1)
	assert.Zero(t, calls)
}

func TestNavigator_ReplaceDropsEntry(t *testing.T) {
	n := New(RouteHome)
	n.Push(RouteProfile)

	n.Replace(RouteLogin)

	assert.Equal(t, []Route{RouteHome, RouteLogin}, n.History())
	assert.True(t, n.Back())
	assert.Equal(t, RouteHome, n.Current(), "the replaced route is gone from history")
}

func TestNavigator_Listeners(t *testing.T) {
	n := New(RouteHome)
	var changes []Change
	remove := n.OnChange(func(c Change) { changes = append(changes, c) })

	n.Push(RouteLogin)
	n.Replace(RouteRegister)
	n.Back()
	remove()
	n.Push(RouteLogin)

	assert.Equal(t, []Change{
		{From: RouteHome, To: RouteLogin},
		{From: RouteLogin, To: RouteRegister, Replace: true},
		{From: RouteRegister, To: RouteHome},
	}, changes)
}

func TestNavigator_ListenerMayNavigate(t *testing.T) {
	n := New(RouteHome)
	n.OnChange(func(c Change) {
		if c.To == RouteProfile {
			n.Replace(RouteLogin)
		}
	})

	n.Push(RouteProfile)

	assert.Equal(t, RouteLogin, n.Current())
	assert.Equal(t, []Route{RouteHome, RouteLogin}, n.History())
}

func TestNavigator_RemoveReleasesListener(t *testing.T) {
	n := New(RouteHome)
	var first, second int

	removeFirst := n.OnChange(func(Change) { first++ })
	for range 10 {
		n.OnChange(func(Change) {})()
	}
	n.OnChange(func(Change) { second++ })

	assert.Len(t, n.listeners, 2)

	removeFirst()
	removeFirst()
	n.Push(RouteLogin)

	assert.Len(t, n.listeners, 1)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}
