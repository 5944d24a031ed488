// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"

	"github.com/jeranaias/alit-chat/internal/session"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registerBody struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the success envelope of /login and /register.
type authResponse struct {
	User session.Session `json:"user"`
}

// errorResponse is the failure envelope of every auth endpoint.
type errorResponse struct {
	Error string `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the chat server's auth API. It keeps a cookie jar: the
// server sets a session cookie alongside the bearer token, and the cookie is
// what makes the startup "current user" probe work.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// tokenSource supplies the persisted bearer token, when set. The cookie
	// only lives for the process; across restarts the token is what makes
	// the "current user" probe succeed.
	tokenSource func() string
}

// NewClient creates an auth client for the server at baseURL.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar: jar,
		},
	}
}

// SetTokenSource registers a callback that yields the current bearer token.
func (c *Client) SetTokenSource(fn func() string) {
	c.tokenSource = fn
}

// Login posts credentials. A server rejection surfaces the server's error
// string verbatim (KindAuth); a transport failure is reported generically
// (KindConnectivity).
func (c *Client) Login(ctx context.Context, username, password string) (session.Session, error) {
	return c.postCredentials(ctx, "/api/auth/login", loginBody{Username: username, Password: password})
}

// Register posts a new account. Response handling mirrors Login.
func (c *Client) Register(ctx context.Context, username, email, password string) (session.Session, error) {
	return c.postCredentials(ctx, "/api/auth/register", registerBody{
		Username: username,
		Email:    email,
		Password: password,
	})
}

func (c *Client) postCredentials(ctx context.Context, path string, body any) (session.Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return session.Session{}, &Error{Kind: KindAuth, Message: msg}
	}

	var result authResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}
	return result.User, nil
}

// Logout notifies the server, attaching the bearer token when present so the
// server can revoke it. Callers treat this as best-effort.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// CurrentUser probes /api/auth/user with the jar's cookie and, when a token
// source is set, the persisted bearer token. Implements session.Probe for
// the startup restore.
func (c *Client) CurrentUser(ctx context.Context) (session.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/user", nil)
	if err != nil {
		return session.Session{}, err
	}
	if c.tokenSource != nil {
		if token := c.tokenSource(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.Session{}, &Error{Kind: KindAuth, Message: resp.Status}
	}

	// /user returns the bare user object, not the {user: ...} envelope.
	var sess session.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return session.Session{}, &Error{Kind: KindConnectivity, Message: msgConnectivity, Cause: err}
	}
	return sess, nil
}
