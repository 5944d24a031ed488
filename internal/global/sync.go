// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package global

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/alit-chat/internal/session"
)

// Defaults matching the deployed client.
const (
	DefaultPollInterval = 3 * time.Second
	DefaultFetchLimit   = 50
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrUnauthenticated is returned when posting without a session token.
	// The check happens before any network I/O.
	ErrUnauthenticated = errors.New("Вы не авторизованы. Пожалуйста, залогинитесь.")

	// ErrEmptyMessage is returned for whitespace-only input.
	ErrEmptyMessage = errors.New("empty message")
)

// PostError carries the server's rejection of a post, verbatim.
type PostError struct {
	Message string
}

func (e *PostError) Error() string {
	return e.Message
}

// =============================================================================
// TYPES
// =============================================================================

// Message is one entry of the shared feed. The client treats it as read-only
// projection data; it is never mutated locally.
type Message struct {
	Username  string    `json:"username"`
	Avatar    string    `json:"avatar"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateFunc receives the replaced projection after every successful fetch.
type UpdateFunc func(messages []Message)

// =============================================================================
// SYNC
// =============================================================================

// Sync polls the shared feed and posts new messages. Start/Stop bound the
// polling lifecycle to the global view; fetches replace the projection
// wholesale. Fetches are sequence-numbered so a slow response that resolves
// after a newer one is discarded instead of clobbering it.
type Sync struct {
	baseURL    string
	httpClient *http.Client
	sessions   *session.Store
	interval   time.Duration
	limit      int

	mu       sync.Mutex
	messages []Message
	applied  uint64 // sequence of the fetch currently rendered
	nextSeq  uint64
	cancel   context.CancelFunc
	onUpdate UpdateFunc
}

// NewSync creates a feed synchronizer for the server at baseURL.
func NewSync(baseURL string, sessions *session.Store, interval time.Duration, limit int) *Sync {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	return &Sync{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		sessions:   sessions,
		interval:   interval,
		limit:      limit,
	}
}

// OnUpdate registers the projection callback.
func (s *Sync) OnUpdate(fn UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Messages returns the current projection.
func (s *Sync) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Running reports whether a poll loop is active.
func (s *Sync) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// =============================================================================
// POLLING LIFECYCLE
// =============================================================================

// Start begins periodic polling, replacing any previously running poll. An
// immediate fetch precedes the first tick so the view is not blank for a
// whole interval. Poll failures are logged and swallowed; they never stop
// the timer.
func (s *Sync) Start(ctx context.Context) {
	s.Stop()

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	go func() {
		if err := s.Fetch(ctx); err != nil {
			log.Printf("global: initial fetch failed: %v", err)
		}

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Fetch(ctx); err != nil {
					log.Printf("global: poll failed: %v", err)
				}
			}
		}
	}()
}

// Stop cancels the poll loop. In-flight requests are not aborted; their
// responses are discarded by the sequence guard if they arrive late.
func (s *Sync) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// =============================================================================
// FETCH / POST
// =============================================================================

// Fetch requests the most recent messages and replaces the projection
// wholesale: no merge, no de-duplication, ordering is whatever the server
// returned. A response that lost the race to a newer fetch is dropped.
func (s *Sync) Fetch(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.mu.Unlock()

	url := fmt.Sprintf("%s/api/chat/messages?limit=%d", s.baseURL, s.limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	s.attachAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("feed request failed: %s", resp.Status)
	}

	var messages []Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return fmt.Errorf("failed to decode feed: %w", err)
	}

	s.mu.Lock()
	if seq <= s.applied {
		s.mu.Unlock()
		return nil // stale response, a newer fetch already landed
	}
	s.applied = seq
	s.messages = messages
	fn := s.onUpdate
	s.mu.Unlock()

	if fn != nil {
		fn(messages)
	}
	return nil
}

// Post sends a message to the shared feed. Requires a session token; without
// one it fails with ErrUnauthenticated before any network call. On success
// it triggers an immediate refresh.
func (s *Sync) Post(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	if s.sessions.Token() == "" {
		return ErrUnauthenticated
	}

	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/chat/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	s.attachAuth(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("Ошибка при отправке сообщения: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return &PostError{Message: errResp.Error}
		}
		return &PostError{Message: resp.Status}
	}

	if err := s.Fetch(ctx); err != nil {
		log.Printf("global: refresh after post failed: %v", err)
	}
	return nil
}

// attachAuth adds the bearer token when a session is present.
func (s *Sync) attachAuth(req *http.Request) {
	if token := s.sessions.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
