package store

import (
	"errors"
	"fmt"
)

// ActionType tags an Action.
type ActionType string

const (
	// ActionLogin signs a user in. Requires a LoginPayload.
	ActionLogin ActionType = "login"
	// ActionLogout signs the current user out.
	ActionLogout ActionType = "logout"
)

// LoginPayload carries the user for ActionLogin.
type LoginPayload struct {
	User *User
}

// Action describes an intended state transition.
// The zero Action is accepted by Reduce and rejected as unrecognized.
type Action struct {
	Type    ActionType
	Payload *LoginPayload
}

// Login builds a login action for u.
func Login(u User) Action {
	return Action{Type: ActionLogin, Payload: &LoginPayload{User: &u}}
}

// Logout builds a logout action.
func Logout() Action {
	return Action{Type: ActionLogout}
}

// ErrMissingUser is returned when a login action carries no user.
var ErrMissingUser = errors.New("login action requires a user payload")

// UnrecognizedActionError is returned for action types Reduce does not handle.
// It always indicates a programming error at the dispatch site.
type UnrecognizedActionError struct {
	Type ActionType
}

func (e *UnrecognizedActionError) Error() string {
	return fmt.Sprintf("unrecognized action type %q", string(e.Type))
}

// Validate checks an action before it reaches the reducer.
func (a Action) Validate() error {
	switch a.Type {
	case ActionLogin:
		if a.Payload == nil || a.Payload.User == nil {
			return ErrMissingUser
		}
		return nil
	case ActionLogout:
		return nil
	default:
		return &UnrecognizedActionError{Type: a.Type}
	}
}

// Reduce computes the snapshot that results from applying action to state.
// It has no side effects and never modifies state.
func Reduce(state State, action Action) (State, error) {
	if err := action.Validate(); err != nil {
		return state, err
	}

	switch action.Type {
	case ActionLogin:
		u := action.Payload.User.Clone()
		return State{user: &u, version: state.version + 1}, nil
	default:
		return State{user: nil, version: state.version + 1}, nil
	}
}
