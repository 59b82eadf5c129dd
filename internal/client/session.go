package client

import (
	"context"
	"sync"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
)

// State is the session lifecycle state.
type State int

const (
	// StateChecking is the initial state, while the single who-am-I probe
	// is in flight. The UI shows a loading gate and nothing else.
	StateChecking State = iota
	// StateAnonymous means no valid session exists.
	StateAnonymous
	// StateAuthenticated means a user is logged in.
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateChecking:
		return "checking"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// SessionStore holds the authenticated identity (or its absence) and is the
// sole source of truth for route gating. It starts in StateChecking.
type SessionStore struct {
	mu       sync.Mutex
	client   *Client
	notifier Notifier
	msgs     messages.Catalog

	state    State
	identity *model.Identity
	onChange func(State, *model.Identity)
}

// NewSessionStore creates a SessionStore in StateChecking.
func NewSessionStore(c *Client, notifier Notifier, msgs messages.Catalog) *SessionStore {
	return &SessionStore{
		client:   c,
		notifier: notifier,
		msgs:     msgs,
		state:    StateChecking,
	}
}

// OnChange registers the observer fired on every state transition. The
// router guard hangs off this to re-resolve the current route.
func (s *SessionStore) OnChange(fn func(State, *model.Identity)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State returns the current session state.
func (s *SessionStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns a copy of the authenticated identity, or nil.
func (s *SessionStore) Identity() *model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// CheckSession performs the single startup who-am-I probe. Success moves to
// StateAuthenticated, any failure to StateAnonymous. No retry.
func (s *SessionStore) CheckSession(ctx context.Context) {
	var id model.Identity
	if err := s.client.get(ctx, "/api/auth/me", &id); err != nil {
		s.transition(StateAnonymous, nil)
		return
	}
	s.transition(StateAuthenticated, &id)
}

// Login submits credentials. On success the session becomes authenticated
// and a positive notification fires; on any failure a negative notification
// fires and the session stays anonymous.
func (s *SessionStore) Login(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}

	var id model.Identity
	if err := s.client.post(ctx, "/api/auth/login", body, &id); err != nil {
		if apiErr, ok := err.(*APIError); ok {
			s.notifier.Error(apiErr.Display(s.msgs))
		} else {
			s.notifier.Error(s.msgs.Resolve(messages.NetworkError))
		}
		return err
	}

	s.transition(StateAuthenticated, &id)
	s.notifier.Success(s.msgs.Resolve(messages.LoginDone))
	return nil
}

// Logout requests server-side termination and clears the session locally no
// matter what the server said. A network failure must not trap the user in
// an authenticated-looking state.
func (s *SessionStore) Logout(ctx context.Context) {
	_ = s.client.post(ctx, "/api/auth/logout", nil, nil)
	s.transition(StateAnonymous, nil)
}

// Invalidate is called by controllers that observed a 401. It transitions
// to StateAnonymous at most once; repeated or concurrent calls while
// already anonymous don't re-fire the observer. The check and the state
// change happen under one lock so two racing 401s can't both fire it.
func (s *SessionStore) Invalidate() {
	s.mu.Lock()
	if s.state == StateAnonymous {
		s.mu.Unlock()
		return
	}
	s.state = StateAnonymous
	s.identity = nil
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(StateAnonymous, nil)
	}
}

// transition updates the state and fires the observer outside the lock, so
// the observer can read the store again without deadlocking.
func (s *SessionStore) transition(state State, id *model.Identity) {
	s.mu.Lock()
	s.state = state
	s.identity = id
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(state, id)
	}
}
