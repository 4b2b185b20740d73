package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func signedIn(t *testing.T, u User) State {
	t.Helper()
	s, err := Reduce(Initial(), Login(u))
	require.NoError(t, err)
	return s
}

func TestReduce_Login(t *testing.T) {
	states := map[string]State{
		"initial":   Initial(),
		"signed in": signedIn(t, User{Email: "old@b.com"}),
	}

	for name, s := range states {
		t.Run(name, func(t *testing.T) {
			u := User{ID: 7, Email: "a@b.com", Role: strPtr("admin")}

			next, err := Reduce(s, Login(u))
			require.NoError(t, err)

			got, ok := next.User()
			require.True(t, ok)
			assert.Equal(t, u, got)
			assert.Equal(t, s.Version()+1, next.Version())
		})
	}
}

func TestReduce_LoginDoesNotAliasPayload(t *testing.T) {
	u := User{Email: "a@b.com", Role: strPtr("user")}
	action := Login(u)

	next, err := Reduce(Initial(), action)
	require.NoError(t, err)

	*action.Payload.User.Role = "admin"
	action.Payload.User.Email = "changed@b.com"

	got, _ := next.User()
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "user", *got.Role)
}

func TestReduce_LoginMissingUser(t *testing.T) {
	for name, action := range map[string]Action{
		"nil payload": {Type: ActionLogin},
		"nil user":    {Type: ActionLogin, Payload: &LoginPayload{}},
	} {
		t.Run(name, func(t *testing.T) {
			s := Initial()
			next, err := Reduce(s, action)
			assert.ErrorIs(t, err, ErrMissingUser)
			assert.False(t, next.Authenticated())
		})
	}
}

func TestReduce_Logout(t *testing.T) {
	for name, s := range map[string]State{
		"initial":   Initial(),
		"signed in": signedIn(t, User{Email: "a@b.com"}),
	} {
		t.Run(name, func(t *testing.T) {
			next, err := Reduce(s, Logout())
			require.NoError(t, err)
			assert.False(t, next.Authenticated())
			_, ok := next.User()
			assert.False(t, ok)
		})
	}
}

func TestReduce_UnrecognizedAction(t *testing.T) {
	for _, typ := range []ActionType{"", "refresh", "LOGIN"} {
		t.Run(string(typ), func(t *testing.T) {
			_, err := Reduce(signedIn(t, User{Email: "a@b.com"}), Action{Type: typ})
			require.Error(t, err)

			var unrecognized *UnrecognizedActionError
			require.True(t, errors.As(err, &unrecognized))
			assert.Equal(t, typ, unrecognized.Type)
		})
	}
}

func TestReduce_ZeroActionIsRejected(t *testing.T) {
	_, err := Reduce(Initial(), Action{})

	var unrecognized *UnrecognizedActionError
	assert.ErrorAs(t, err, &unrecognized)
}

func TestReduce_DoesNotModifyInput(t *testing.T) {
	s := signedIn(t, User{Email: "a@b.com"})
	before, _ := s.User()

	_, err := Reduce(s, Logout())
	require.NoError(t, err)

	after, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestStore_LoginScenario(t *testing.T) {
	st := New(Initial())

	require.NoError(t, st.Dispatch(Login(User{Email: "a@b.com"})))

	u, ok := st.State().User()
	require.True(t, ok)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestStore_LogoutScenario(t *testing.T) {
	st := New(signedIn(t, User{Email: "a@b.com"}))

	require.NoError(t, st.Dispatch(Logout()))
	assert.False(t, st.State().Authenticated())
}

func TestStore_LogoutIsIdempotent(t *testing.T) {
	st := New(signedIn(t, User{Email: "a@b.com"}))

	require.NoError(t, st.Dispatch(Logout()))
	assert.False(t, st.State().Authenticated())

	require.NoError(t, st.Dispatch(Logout()))
	assert.False(t, st.State().Authenticated())
}

func TestStore_FailedDispatchKeepsSnapshot(t *testing.T) {
	st := New(Initial())
	require.NoError(t, st.Dispatch(Login(User{Email: "a@b.com"})))
	before := st.State()

	calls := 0
	st.Subscribe(func(prev, next State) { calls++ })

	err := st.Dispatch(Action{Type: "unknown"})
	require.Error(t, err)

	assert.Equal(t, before, st.State())
	assert.Equal(t, before.Version(), st.State().Version())
	assert.Zero(t, calls, "subscribers must not run for a failed dispatch")
}

func TestStore_SubscribersRunSynchronouslyInOrder(t *testing.T) {
	st := New(Initial())
	var order []string

	st.Subscribe(func(prev, next State) {
		order = append(order, "first")
		assert.False(t, prev.Authenticated())
		assert.True(t, next.Authenticated())
		assert.Equal(t, next, st.State(), "snapshot must be swapped before notification")
	})
	st.Subscribe(func(prev, next State) { order = append(order, "second") })

	require.NoError(t, st.Dispatch(Login(User{Email: "a@b.com"})))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestStore_Unsubscribe(t *testing.T) {
	st := New(Initial())
	calls := 0
	unsubscribe := st.Subscribe(func(prev, next State) { calls++ })

	require.NoError(t, st.Dispatch(Logout()))
	unsubscribe()
	unsubscribe()
	require.NoError(t, st.Dispatch(Logout()))

	assert.Equal(t, 1, calls)
}

func TestStore_ReentrantDispatch(t *testing.T) {
	st := New(Initial())
	st.Subscribe(func(prev, next State) {
		if next.Authenticated() {
			require.NoError(t, st.Dispatch(Logout()))
		}
	})

	require.NoError(t, st.Dispatch(Login(User{Email: "a@b.com"})))
	assert.False(t, st.State().Authenticated())
	assert.Equal(t, uint64(2), st.State().Version())
}

func TestUserChanged(t *testing.T) {
	s0 := Initial()
	s1, _ := Reduce(s0, Login(User{Email: "a@b.com"}))
	s2, _ := Reduce(s1, Login(User{Email: "a@b.com"}))
	s3, _ := Reduce(s2, Logout())
	s4, _ := Reduce(s3, Logout())

	assert.True(t, UserChanged(s0, s1))
	assert.True(t, UserChanged(s1, s2), "a new login is a new identity")
	assert.True(t, UserChanged(s2, s3))
	assert.False(t, UserChanged(s3, s4), "repeated logout keeps the user absent")
}

func TestUser_JSONPreservesUnknownFields(t *testing.T) {
	raw := `{"id":3,"email":"a@b.com","picture_url":null,"role":"admin","plan":"pro","flags":{"beta":true}}`

	var u User
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	assert.Equal(t, int64(3), u.ID)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Nil(t, u.PictureURL)
	assert.Equal(t, "admin", u.DisplayRole())
	require.Contains(t, u.Attributes, "plan")
	assert.JSONEq(t, `"pro"`, string(u.Attributes["plan"]))

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestUser_DisplayHelpers(t *testing.T) {
	u := User{Email: "a@b.com"}
	assert.Equal(t, "User", u.DisplayRole())
	_, ok := u.Picture()
	assert.False(t, ok)

	u.PictureURL = strPtr("https://res.cloudinary.com/demo/a.png")
	u.Role = strPtr("admin")
	pic, ok := u.Picture()
	assert.True(t, ok)
	assert.Equal(t, "https://res.cloudinary.com/demo/a.png", pic)
	assert.Equal(t, "a@b.com (admin)", u.String())
}
