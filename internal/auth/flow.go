// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/alit-chat/internal/session"
)

// State is the auth flow state.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged-out"
	case StateAuthenticating:
		return "authenticating"
	case StateLoggedIn:
		return "logged-in"
	default:
		return "unknown"
	}
}

// =============================================================================
// INPUT CONTRACTS
// =============================================================================

// LoginRequest is the structured login submission.
type LoginRequest struct {
	Username string
	Password string
}

// RegisterRequest is the structured registration submission.
type RegisterRequest struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// =============================================================================
// FLOW
// =============================================================================

// StateFunc is notified after every state transition. The shell uses it to
// reveal or hide the main views and refresh identity display; the flow never
// renders anything itself.
type StateFunc func(state State, sess *session.Session)

// Flow is the auth state machine. Success and failure both land the machine
// in a terminal state for the attempt; nothing is retried automatically.
type Flow struct {
	mu       sync.Mutex
	state    State
	client   *Client
	sessions *session.Store
	onChange StateFunc
}

// NewFlow creates a flow over the given client and session store.
func NewFlow(client *Client, sessions *session.Store) *Flow {
	return &Flow{
		state:    StateLoggedOut,
		client:   client,
		sessions: sessions,
	}
}

// OnChange registers the state transition callback.
func (f *Flow) OnChange(fn StateFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onChange = fn
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// MarkLoggedIn transitions directly to LoggedIn. Used at startup when a
// persisted or server-restored session already exists.
func (f *Flow) MarkLoggedIn() {
	sess, ok := f.sessions.Get()
	if !ok {
		return
	}
	f.transition(StateLoggedIn, &sess)
}

// Login authenticates with the server. On success the session store is
// populated and the flow is LoggedIn; on any failure the flow returns to
// LoggedOut and the error is returned for inline display.
func (f *Flow) Login(ctx context.Context, req LoginRequest) error {
	f.transition(StateAuthenticating, nil)

	// The password travels verbatim; only the username is a display
	// identifier safe to trim.
	sess, err := f.client.Login(ctx, strings.TrimSpace(req.Username), req.Password)
	if err != nil {
		f.transition(StateLoggedOut, nil)
		return err
	}

	if err := f.sessions.Set(sess); err != nil {
		log.Printf("auth: failed to persist session: %v", err)
	}
	f.transition(StateLoggedIn, &sess)
	return nil
}

// Register creates an account and logs in. The password/confirmation match
// is checked locally and fails fast before any network call.
func (f *Flow) Register(ctx context.Context, req RegisterRequest) error {
	// Passwords are compared and sent exactly as typed; whitespace is
	// significant in a credential.
	if req.Password != req.PasswordConfirm {
		return ErrPasswordMismatch
	}

	f.transition(StateAuthenticating, nil)

	sess, err := f.client.Register(ctx,
		strings.TrimSpace(req.Username),
		strings.TrimSpace(req.Email),
		req.Password,
	)
	if err != nil {
		f.transition(StateLoggedOut, nil)
		return err
	}

	if err := f.sessions.Set(sess); err != nil {
		log.Printf("auth: failed to persist session: %v", err)
	}
	f.transition(StateLoggedIn, &sess)
	return nil
}

// Logout notifies the server best-effort and always ends LoggedOut with the
// session store cleared, regardless of network outcome.
func (f *Flow) Logout(ctx context.Context) {
	token := f.sessions.Token()
	if err := f.client.Logout(ctx, token); err != nil {
		log.Printf("auth: logout notification failed: %v", err)
	}

	if err := f.sessions.Clear(); err != nil {
		log.Printf("auth: failed to clear session: %v", err)
	}
	f.transition(StateLoggedOut, nil)
}

func (f *Flow) transition(state State, sess *session.Session) {
	f.mu.Lock()
	f.state = state
	fn := f.onChange
	f.mu.Unlock()

	if fn != nil {
		fn(state, sess)
	}
}
