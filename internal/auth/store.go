// Package auth holds the current identity-provider session and the call
// surface the rest of the process uses for sign-in, sign-up, sign-out,
// password reset, and OAuth.
package auth

import (
	"sync"

	"github.com/calbec/lessonmarket/internal/model"
)

// Event is a session state transition. Events fire on transitions only:
// replacing one live session with another emits nothing.
type Event int

const (
	EventSignedIn Event = iota + 1
	EventSignedOut
)

type Listener func(Event, *model.Session)

// Store holds the current session. The session is immutable and replaced
// wholesale, last-writer-wins. Every replacement bumps a generation
// counter; work keyed to a superseded generation must be discarded by
// whoever started it.
type Store struct {
	mu      sync.Mutex
	session *model.Session
	gen     uint64
	nextSub int
	subs    map[int]Listener
}

func NewStore() *Store {
	return &Store{subs: make(map[int]Listener)}
}

// Set replaces the current session and returns the new generation.
func (s *Store) Set(sess *model.Session) uint64 {
	s.mu.Lock()
	wasSignedOut := s.session == nil
	s.session = sess
	s.gen++
	gen := s.gen
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if wasSignedOut {
		for _, fn := range listeners {
			fn(EventSignedIn, sess)
		}
	}
	return gen
}

// Clear drops the current session. Clearing an already-empty store is a
// no-op and emits nothing.
func (s *Store) Clear() {
	s.mu.Lock()
	wasSignedIn := s.session != nil
	if wasSignedIn {
		s.session = nil
		s.gen++
	}
	listeners := s.listenersLocked()
	s.mu.Unlock()

	if wasSignedIn {
		for _, fn := range listeners {
			fn(EventSignedOut, nil)
		}
	}
}

// Current returns the session, or nil when signed out.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Generation returns the current replacement counter.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Subscribe registers a transition listener and returns its unsubscribe
// function. Listeners run synchronously, outside the store lock.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) listenersLocked() []Listener {
	listeners := make([]Listener, 0, len(s.subs))
	for _, fn := range s.subs {
		listeners = append(listeners, fn)
	}
	return listeners
}
