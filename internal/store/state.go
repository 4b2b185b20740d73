// Package store holds the process-wide client state.
//
// State is an immutable snapshot. The only way to change it is Store.Dispatch,
// which runs the pure Reduce function and publishes the result to subscribers.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// User is the authenticated account as returned by the backend.
//
// The backend owns the shape of this record. Fields the client does not know
// about are kept in Attributes and written back out by MarshalJSON.
type User struct {
	ID         int64
	Email      string
	PictureURL *string
	Role       *string
	Attributes map[string]json.RawMessage
}

// DisplayRole returns the role, or "User" when the backend sent none.
func (u User) DisplayRole() string {
	if u.Role == nil || *u.Role == "" {
		return "User"
	}
	return *u.Role
}

// Picture returns the profile picture URL and whether one is set.
func (u User) Picture() (string, bool) {
	if u.PictureURL == nil || *u.PictureURL == "" {
		return "", false
	}
	return *u.PictureURL, true
}

// Clone returns a deep copy of u.
func (u User) Clone() User {
	c := u
	if u.PictureURL != nil {
		p := *u.PictureURL
		c.PictureURL = &p
	}
	if u.Role != nil {
		r := *u.Role
		c.Role = &r
	}
	if u.Attributes != nil {
		c.Attributes = make(map[string]json.RawMessage, len(u.Attributes))
		for k, v := range u.Attributes {
			c.Attributes[k] = bytes.Clone(v)
		}
	}
	return c
}

var knownUserFields = map[string]struct{}{
	"id": {}, "email": {}, "picture_url": {}, "role": {},
}

type userWire struct {
	ID         int64   `json:"id,omitempty"`
	Email      string  `json:"email"`
	PictureURL *string `json:"picture_url"`
	Role       *string `json:"role"`
}

// UnmarshalJSON decodes the known fields and keeps the rest in Attributes.
func (u *User) UnmarshalJSON(data []byte) error {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*u = User{ID: w.ID, Email: w.Email, PictureURL: w.PictureURL, Role: w.Role}
	for k, v := range all {
		if _, known := knownUserFields[k]; known {
			continue
		}
		if u.Attributes == nil {
			u.Attributes = make(map[string]json.RawMessage)
		}
		u.Attributes[k] = v
	}
	return nil
}

// MarshalJSON encodes the known fields plus every preserved attribute.
func (u User) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(userWire{ID: u.ID, Email: u.Email, PictureURL: u.PictureURL, Role: u.Role})
	if err != nil {
		return nil, err
	}
	if len(u.Attributes) == 0 {
		return known, nil
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(known, &out); err != nil {
		return nil, err
	}
	extra := maps.Clone(u.Attributes)
	for k := range knownUserFields {
		delete(extra, k)
	}
	maps.Copy(out, extra)
	return json.Marshal(out)
}

// String implements fmt.Stringer for text output.
func (u User) String() string {
	return fmt.Sprintf("%s (%s)", u.Email, u.DisplayRole())
}

// State is an immutable snapshot of client state.
// The zero value is the initial, signed-out state.
type State struct {
	user    *User
	version uint64
}

// Initial returns the snapshot the application starts with.
func Initial() State {
	return State{}
}

// User returns a copy of the signed-in user and true, or false when signed out.
func (s State) User() (User, bool) {
	if s.user == nil {
		return User{}, false
	}
	return s.user.Clone(), true
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool {
	return s.user != nil
}

// Version increases by one with every successful dispatch.
func (s State) Version() uint64 {
	return s.version
}

// UserChanged reports whether the user identity differs between two snapshots.
// Every login produces a new identity; repeated logouts do not.
func UserChanged(prev, next State) bool {
	return prev.user != next.user
}
