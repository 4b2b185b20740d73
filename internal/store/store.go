package store

import (
	"sync"
)

// Subscriber is called after every successful dispatch with the previous and
// the new snapshot.
type Subscriber func(prev, next State)

type subscription struct {
	id int
	fn Subscriber
}

// Store holds the current snapshot for the lifetime of the application.
//
// Create exactly one per process, before any view mounts. The mutex only
// protects the swap; subscribers run outside it, so they may read State or
// dispatch again.
type Store struct {
	mu     sync.RWMutex
	state  State
	subs   []subscription
	nextID int
}

// New creates a store holding initial.
func New(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies action to the current snapshot, replaces it and notifies
// every subscriber in subscription order before returning.
//
// If the reducer fails the snapshot is left intact, no subscriber runs, and
// the reducer's error is returned.
func (s *Store) Dispatch(action Action) error {
	s.mu.Lock()
	prev := s.state
	next, err := Reduce(prev, action)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(prev, next)
	}
	return nil
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (s *Store) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}
