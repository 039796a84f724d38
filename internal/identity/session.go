// Package identity resolves authenticated sessions to user profiles.
package identity

import (
	"context"
	"sync"
)

// Identity is what the provider knows about an authenticated principal.
type Identity struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    string
}

// State is one observation of the session. A nil Identity is anonymous.
type State struct {
	Identity *Identity
	Token    string
}

// Authenticated reports whether the state carries an identity.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// Anonymous is the signed-out state.
var Anonymous = State{}

// Session is the explicit session context. Until the first Set the state is
// unknown and Ready stays open.
type Session struct {
	mu     sync.RWMutex
	state  State
	known  bool
	ready  chan struct{}
	subs   map[int]func(State)
	nextID int
}

// NewSession returns a session whose state is not yet known.
func NewSession() *Session {
	return &Session{
		ready: make(chan struct{}),
		subs:  make(map[int]func(State)),
	}
}

// Set publishes a new state to every subscriber.
func (s *Session) Set(state State) {
	s.mu.Lock()
	s.state = state
	if !s.known {
		s.known = true
		close(s.ready)
	}
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(state)
	}
}

// Current returns the latest state, which is Anonymous before the first Set.
func (s *Session) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready is closed once the first state is known.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the first state is known.
func (s *Session) Wait(ctx context.Context) (State, error) {
	select {
	case <-s.ready:
		return s.Current(), nil
	case <-ctx.Done():
		return Anonymous, ctx.Err()
	}
}

// Subscribe registers fn for every later state change. If a state is
// already known fn is called with it before Subscribe returns.
func (s *Session) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	known, state := s.known, s.state
	s.mu.Unlock()

	if known {
		fn(state)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
