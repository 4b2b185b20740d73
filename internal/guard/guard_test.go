package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/cloudstudy/internal/nav"
	"github.com/felixgeelhaar/cloudstudy/internal/store"
)

func newGuard(t *testing.T, st *store.Store, n *nav.Navigator, opts ...Option) *Guard {
	t.Helper()
	g, err := New(st, n, opts...)
	require.NoError(t, err)
	return g
}

func TestCheck_SignedOutOnProtectedRouteRedirects(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteHome)
	n.Push(nav.RouteProfile)
	g := newGuard(t, st, n)

	assert.True(t, g.Check())
	assert.Equal(t, nav.RouteLogin, n.Current())
	assert.Equal(t, int64(1), g.Redirects())
}

func TestCheck_SignedInDoesNotRedirect(t *testing.T) {
	st := store.New(store.Initial())
	require.NoError(t, st.Dispatch(store.Login(store.User{Email: "a@b.com"})))
	n := nav.New(nav.RouteHome)
	n.Push(nav.RouteProfile)
	g := newGuard(t, st, n)

	assert.False(t, g.Check())
	assert.Equal(t, nav.RouteProfile, n.Current())
	assert.Zero(t, g.Redirects())
}

func TestCheck_UnprotectedRoute(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteRegister)
	g := newGuard(t, st, n)

	assert.False(t, g.Check())
	assert.Equal(t, nav.RouteRegister, n.Current())
}

func TestRedirectReplacesHistory(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteHome)
	g := newGuard(t, st, n)
	stop := g.Start()
	defer stop()

	n.Push(nav.RouteProfile)

	assert.Equal(t, nav.RouteLogin, n.Current())
	assert.NotContains(t, n.History(), nav.RouteProfile)
	assert.True(t, n.Back())
	assert.Equal(t, nav.RouteHome, n.Current())
}

func TestStart_ReactsToLogout(t *testing.T) {
	st := store.New(store.Initial())
	require.NoError(t, st.Dispatch(store.Login(store.User{Email: "a@b.com"})))
	n := nav.New(nav.RouteHome)
	n.Push(nav.RouteProfile)
	g := newGuard(t, st, n)
	stop := g.Start()
	defer stop()

	assert.Equal(t, nav.RouteProfile, n.Current(), "signed-in user stays")

	require.NoError(t, st.Dispatch(store.Logout()))
	assert.Equal(t, nav.RouteLogin, n.Current(), "logout re-evaluates the guard")
}

func TestStart_EvaluatesImmediately(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteProfile)
	g := newGuard(t, st, n)

	stop := g.Start()
	defer stop()

	assert.Equal(t, nav.RouteLogin, n.Current())
}

func TestStop_DetachesGuard(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteHome)
	g := newGuard(t, st, n)

	stop := g.Start()
	stop()
	n.Push(nav.RouteProfile)

	assert.Equal(t, nav.RouteProfile, n.Current())
	assert.Zero(t, g.Redirects())
}

func TestGuardNeverDispatches(t *testing.T) {
	st := store.New(store.Initial())
	n := nav.New(nav.RouteHome)
	g := newGuard(t, st, n)
	stop := g.Start()
	defer stop()

	n.Push(nav.RouteProfile)
	assert.Zero(t, st.State().Version())
}

func TestNew_RejectsProtectedLoginRoute(t *testing.T) {
	_, err := New(store.New(store.Initial()), nav.New(nav.RouteHome),
		WithProtected(nav.RouteDashboard),
		WithLoginRoute("/dashboard/login"),
	)
	assert.Error(t, err)
}

func TestWithProtected(t *testing.T) {
	g := newGuard(t, store.New(store.Initial()), nav.New(nav.RouteHome), WithProtected("/settings"))

	assert.True(t, g.IsProtected("/settings/profile"))
	assert.False(t, g.IsProtected(nav.RouteProfile))
}
