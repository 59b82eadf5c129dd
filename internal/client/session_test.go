package client

import (
	"context"
	"sync"
	"testing"

	"github.com/bachecahq/bacheca/internal/messages"
	"github.com/bachecahq/bacheca/internal/model"
)

// transitions records every observer fire.
type transitions struct {
	mu     sync.Mutex
	states []State
}

func (tr *transitions) watch(s *SessionStore) {
	s.OnChange(func(state State, _ *model.Identity) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		tr.states = append(tr.states, state)
	})
}

func (tr *transitions) snapshot() []State {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]State(nil), tr.states...)
}

func TestSessionStore_StartsChecking(t *testing.T) {
	backend := newTestBackend(t)

	sess := NewSessionStore(backend.client, NopNotifier{}, messages.Default())
	if sess.State() != StateChecking {
		t.Errorf("state = %v, want checking", sess.State())
	}
	if sess.Identity() != nil {
		t.Error("identity should be nil before the probe")
	}
}

func TestCheckSession_NoCookie(t *testing.T) {
	backend := newTestBackend(t)

	sess := NewSessionStore(backend.client, NopNotifier{}, messages.Default())
	var tr transitions
	tr.watch(sess)

	sess.CheckSession(context.Background())

	if sess.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", sess.State())
	}
	if got := tr.snapshot(); len(got) != 1 || got[0] != StateAnonymous {
		t.Errorf("transitions = %v, want [anonymous]", got)
	}
}

func TestCheckSession_WithLiveCookie(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")
	ctx := context.Background()

	// Log in once; the cookie stays in the client's jar, as it would in a
	// browser restarted with a persisted cookie.
	first := NewSessionStore(backend.client, NopNotifier{}, messages.Default())
	if err := first.Login(ctx, "mario", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	second := NewSessionStore(backend.client, NopNotifier{}, messages.Default())
	second.CheckSession(ctx)

	if second.State() != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", second.State())
	}
	id := second.Identity()
	if id == nil || id.Username != "mario" {
		t.Errorf("identity = %+v, want mario", id)
	}
}

func TestLogin_Success(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")

	rec := &recorder{}
	sess := NewSessionStore(backend.client, rec, messages.Default())

	if err := sess.Login(context.Background(), "mario", testPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.State() != StateAuthenticated {
		t.Errorf("state = %v, want authenticated", sess.State())
	}
	if got := rec.lastSuccess(); got != "Accesso effettuato con successo" {
		t.Errorf("success notification = %q", got)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")

	rec := &recorder{}
	sess := NewSessionStore(backend.client, rec, messages.Default())
	sess.CheckSession(context.Background())

	err := sess.Login(context.Background(), "mario", "sbagliata")
	if err == nil {
		t.Fatal("expected an error")
	}
	if sess.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous after failed login", sess.State())
	}
	if got := rec.lastError(); got != "Credenziali non valide" {
		t.Errorf("error notification = %q", got)
	}
}

func TestLogin_NetworkFailure(t *testing.T) {
	c, err := New("http://127.0.0.1:0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec := &recorder{}
	sess := NewSessionStore(c, rec, messages.Default())

	if err := sess.Login(context.Background(), "mario", testPassword); err == nil {
		t.Fatal("expected an error")
	}
	if got := rec.lastError(); got != "Errore di rete, riprova" {
		t.Errorf("error notification = %q", got)
	}
}

func TestLogout(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")
	ctx := context.Background()

	sess := backend.loggedInSession(t, "mario", testPassword, nil)
	sess.Logout(ctx)

	if sess.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", sess.State())
	}
	if sess.Identity() != nil {
		t.Error("identity should be cleared")
	}

	// The server-side session is gone too: a fresh probe stays anonymous.
	probe := NewSessionStore(backend.client, NopNotifier{}, messages.Default())
	probe.CheckSession(ctx)
	if probe.State() != StateAnonymous {
		t.Errorf("probe state = %v, want anonymous", probe.State())
	}
}

func TestLogout_ServerUnreachable(t *testing.T) {
	c, err := New("http://127.0.0.1:0")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess := NewSessionStore(c, NopNotifier{}, messages.Default())
	sess.transition(StateAuthenticated, &model.Identity{ID: "u1", Username: "mario"})

	// The local session must clear even when the server can't be told.
	sess.Logout(context.Background())
	if sess.State() != StateAnonymous {
		t.Errorf("state = %v, want anonymous", sess.State())
	}
}

func TestInvalidate_AtMostOnce(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")

	sess := backend.loggedInSession(t, "mario", testPassword, nil)
	var tr transitions
	tr.watch(sess)

	sess.Invalidate()
	sess.Invalidate()
	sess.Invalidate()

	got := tr.snapshot()
	if len(got) != 1 || got[0] != StateAnonymous {
		t.Errorf("transitions = %v, want a single anonymous transition", got)
	}
}

func TestInvalidate_ConcurrentCallsFireOnce(t *testing.T) {
	backend := newTestBackend(t)
	backend.seedUser(t, "mario")

	sess := backend.loggedInSession(t, "mario", testPassword, nil)
	var tr transitions
	tr.watch(sess)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Invalidate()
		}()
	}
	wg.Wait()

	got := tr.snapshot()
	if len(got) != 1 || got[0] != StateAnonymous {
		t.Errorf("transitions = %v, want a single anonymous transition", got)
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateChecking:      "checking",
		StateAnonymous:     "anonymous",
		StateAuthenticated: "authenticated",
		State(99):          "unknown",
	}
	for s, want := range states {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}
