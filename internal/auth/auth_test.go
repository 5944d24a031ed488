// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/alit-chat/internal/session"
	"github.com/jeranaias/alit-chat/internal/storage"
)

func newFlow(t *testing.T, handler http.Handler) (*Flow, *session.Store, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	sessions := session.NewStore(storage.NewMemoryStore())
	return NewFlow(NewClient(server.URL), sessions), sessions, server
}

// =============================================================================
// LOGIN TESTS
// =============================================================================

func TestLogin_Success(t *testing.T) {
	flow, sessions, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "alice", body["username"])
		require.Equal(t, "secret", body["password"])

		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{
				"username": "alice",
				"email":    "alice@example.com",
				"avatar":   "A",
				"token":    "tok-1",
			},
		})
	}))

	var states []State
	flow.OnChange(func(s State, _ *session.Session) { states = append(states, s) })

	err := flow.Login(context.Background(), LoginRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.Equal(t, StateLoggedIn, flow.State())
	require.Equal(t, []State{StateAuthenticating, StateLoggedIn}, states)

	sess, ok := sessions.Get()
	require.True(t, ok)
	require.Equal(t, "alice", sess.Username)
	require.Equal(t, "tok-1", sess.Token)
}

func TestLogin_ServerRejection(t *testing.T) {
	flow, sessions, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Неверный пароль"})
	}))

	err := flow.Login(context.Background(), LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, err)

	// The server's message is surfaced verbatim.
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, KindAuth, authErr.Kind)
	require.Equal(t, "Неверный пароль", authErr.Message)

	require.Equal(t, StateLoggedOut, flow.State())
	_, ok := sessions.Get()
	require.False(t, ok)
}

func TestLogin_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	sessions := session.NewStore(storage.NewMemoryStore())
	flow := NewFlow(NewClient(server.URL), sessions)

	err := flow.Login(context.Background(), LoginRequest{Username: "a", Password: "b"})
	require.True(t, IsConnectivity(err), "error = %v", err)
	require.Equal(t, StateLoggedOut, flow.State())
}

// =============================================================================
// REGISTER TESTS
// =============================================================================

func TestRegister_PasswordMismatchMakesNoNetworkCall(t *testing.T) {
	var calls atomic.Int32
	flow, _, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	err := flow.Register(context.Background(), RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "one",
		PasswordConfirm: "two",
	})
	require.True(t, IsValidation(err), "error = %v", err)
	require.Equal(t, int32(0), calls.Load(), "validation failure must not reach the network")
	require.Equal(t, StateLoggedOut, flow.State())
}

func TestRegister_WhitespacePasswordsCompareVerbatim(t *testing.T) {
	var calls atomic.Int32
	flow, _, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))

	// "pw " and " pw" differ; trimming would make them pass the precondition.
	err := flow.Register(context.Background(), RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "pw ",
		PasswordConfirm: " pw",
	})
	require.True(t, IsValidation(err), "error = %v", err)
	require.Equal(t, int32(0), calls.Load(), "mismatched passwords must not reach the network")
	require.Equal(t, StateLoggedOut, flow.State())
}

func TestLogin_PasswordSentVerbatim(t *testing.T) {
	flow, _, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, " secret ", body["password"], "password must not be altered on the wire")

		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"username": "alice", "token": "tok-ws"},
		})
	}))

	err := flow.Login(context.Background(), LoginRequest{Username: "alice", Password: " secret "})
	require.NoError(t, err)
}

func TestRegister_PasswordSentVerbatim(t *testing.T) {
	flow, _, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, " secret ", body["password"], "password must not be altered on the wire")

		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"username": "carol", "token": "tok-ws2"},
		})
	}))

	err := flow.Register(context.Background(), RegisterRequest{
		Username:        "carol",
		Email:           "c@example.com",
		Password:        " secret ",
		PasswordConfirm: " secret ",
	})
	require.NoError(t, err)
}

func TestRegister_Success(t *testing.T) {
	flow, sessions, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/register", r.URL.Path)

		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "bob@example.com", body["email"])
		// Confirmation never crosses the wire.
		_, present := body["passwordConfirm"]
		require.False(t, present)

		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]string{"username": "bob", "email": "bob@example.com", "token": "tok-2"},
		})
	}))

	err := flow.Register(context.Background(), RegisterRequest{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "pw",
		PasswordConfirm: "pw",
	})
	require.NoError(t, err)
	require.Equal(t, StateLoggedIn, flow.State())

	sess, ok := sessions.Get()
	require.True(t, ok)
	require.Equal(t, "bob", sess.Username)
}

// =============================================================================
// LOGOUT TESTS
// =============================================================================

func TestLogout_AlwaysClearsSession(t *testing.T) {
	var sawBearer atomic.Bool
	flow, sessions, _ := newFlow(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/auth/logout" {
			sawBearer.Store(r.Header.Get("Authorization") == "Bearer tok-3")
		}
	}))

	require.NoError(t, sessions.Set(session.Session{Username: "c", Token: "tok-3"}))
	flow.MarkLoggedIn()
	require.Equal(t, StateLoggedIn, flow.State())

	flow.Logout(context.Background())
	require.Equal(t, StateLoggedOut, flow.State())
	require.True(t, sawBearer.Load(), "logout must attach the bearer token")

	_, ok := sessions.Get()
	require.False(t, ok)
}

func TestLogout_NetworkFailureStillClears(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	sessions := session.NewStore(storage.NewMemoryStore())
	flow := NewFlow(NewClient(server.URL), sessions)
	sessions.Set(session.Session{Username: "d", Token: "t"})
	flow.MarkLoggedIn()

	flow.Logout(context.Background())
	require.Equal(t, StateLoggedOut, flow.State())
	_, ok := sessions.Get()
	require.False(t, ok)
}

// =============================================================================
// SESSION RESTORE TESTS
// =============================================================================

func TestCurrentUser_RestoreProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/user", r.URL.Path)
		// /user returns the bare user object.
		json.NewEncoder(w).Encode(map[string]string{
			"username": "eve", "email": "e@example.com", "avatar": "E", "token": "tok-4",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	sessions := session.NewStore(storage.NewMemoryStore())

	restored := sessions.RestoreFromServer(context.Background(), client)
	require.True(t, restored)
	sess, ok := sessions.Get()
	require.True(t, ok)
	require.Equal(t, "eve", sess.Username)
	require.Equal(t, "tok-4", sess.Token)
}

func TestCurrentUser_Non200LeavesStateEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	sessions := session.NewStore(storage.NewMemoryStore())
	restored := sessions.RestoreFromServer(context.Background(), NewClient(server.URL))
	require.False(t, restored)
	_, ok := sessions.Get()
	require.False(t, ok)
}

func TestCurrentUser_SendsPersistedBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"username": "eve", "token": "tok-5"})
	}))
	defer server.Close()

	sessions := session.NewStore(storage.NewMemoryStore())
	require.NoError(t, sessions.Set(session.Session{Username: "eve", Token: "tok-5"}))

	client := NewClient(server.URL)
	client.SetTokenSource(sessions.Token)

	_, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-5", gotAuth)
}
