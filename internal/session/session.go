// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/jeranaias/alit-chat/internal/storage"
)

// StorageKey is the fixed key the session blob is persisted under.
const StorageKey = "user"

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is the locally held proof of authenticated identity. The avatar is
// server-assigned (first letter of the username) and rides along in the blob.
type Session struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   string `json:"avatar,omitempty"`
	Token    string `json:"token,omitempty"`
}

// HasToken reports whether the session carries a credential token.
func (s Session) HasToken() bool {
	return s.Token != ""
}

// =============================================================================
// SESSION STORE
// =============================================================================

// Probe performs the one-shot "current user" request used for cookie-based
// session restore. The auth client implements it.
type Probe interface {
	CurrentUser(ctx context.Context) (Session, error)
}

// Store holds the active session and mirrors it to durable storage.
type Store struct {
	mu  sync.RWMutex
	cur *Session
	kv  storage.KV
}

// NewStore creates a session store backed by kv.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

// Get returns the active session, or ok=false when logged out.
func (s *Store) Get() (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return Session{}, false
	}
	return *s.cur, true
}

// Token returns the active session's token, or "" when absent.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cur == nil {
		return ""
	}
	return s.cur.Token
}

// Set makes sess the active session and persists it.
func (s *Store) Set(sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = &sess
	return s.kv.Set(StorageKey, data)
}

// Clear removes the active session from memory and storage.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = nil
	return s.kv.Delete(StorageKey)
}

// Load restores the session from the persisted blob, if any. A corrupt blob
// is discarded rather than surfaced.
func (s *Store) Load() (bool, error) {
	data, found, err := s.kv.Get(StorageKey)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		log.Printf("session: discarding corrupt blob: %v", err)
		s.kv.Delete(StorageKey)
		return false, nil
	}
	if sess.Username == "" {
		return false, nil
	}

	s.mu.Lock()
	s.cur = &sess
	s.mu.Unlock()
	return true, nil
}

// RestoreFromServer performs a single credentials-bearing probe of the
// "current user" endpoint. On success it behaves as Set; on any failure it
// leaves state empty. No retry, nothing surfaced beyond a trace log.
func (s *Store) RestoreFromServer(ctx context.Context, probe Probe) bool {
	sess, err := probe.CurrentUser(ctx)
	if err != nil {
		log.Printf("session: no server-side session to restore: %v", err)
		return false
	}
	if err := s.Set(sess); err != nil {
		log.Printf("session: failed to persist restored session: %v", err)
	}
	return true
}
