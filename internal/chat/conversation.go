// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"sort"
	"sync"

	"github.com/jeranaias/alit-chat/internal/util"
)

// Default titles shown before a conversation earns one from its first
// exchange.
const (
	FirstConversationTitle = "Первый разговор"
	NewConversationTitle   = "Новый разговор"
)

var (
	// ErrNotFound is returned when a conversation id does not exist.
	ErrNotFound = errors.New("conversation not found")

	// ErrLastConversation is returned when deleting the only conversation.
	ErrLastConversation = errors.New("cannot delete the last conversation")
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds one independent message thread in the AI view.
type Conversation struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// Meta is the lightweight listing view of a conversation.
type Meta struct {
	ID           int
	Title        string
	MessageCount int
	Current      bool
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// Store is the in-memory collection of conversations. It always contains at
// least one conversation, and the current id always refers to an existing
// one. Driven from the shell's single input loop; the mutex only guards the
// shell against the polling goroutine reading listings.
type Store struct {
	mu      sync.Mutex
	byID    map[int]*Conversation
	current int
}

// NewStore creates a store seeded with the initial conversation.
func NewStore() *Store {
	first := &Conversation{ID: 1, Title: FirstConversationTitle}
	return &Store{
		byID:    map[int]*Conversation{1: first},
		current: 1,
	}
}

// Current returns the current conversation id.
func (s *Store) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Create allocates a new conversation with id = 1 + max existing id, a
// default title and an empty log, and makes it current.
func (s *Store) Create() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := 0
	for existing := range s.byID {
		if existing > id {
			id = existing
		}
	}
	id++

	s.byID[id] = &Conversation{ID: id, Title: NewConversationTitle}
	s.current = id
	return id
}

// SwitchTo makes id the current conversation and returns its message log for
// replay. Returns ErrNotFound if the id does not exist.
func (s *Store) SwitchTo(id int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.current = id

	msgs := make([]Message, len(conv.Messages))
	copy(msgs, conv.Messages)
	return msgs, nil
}

// AppendExchange appends a completed user/assistant pair to conversation id.
// The pair is appended atomically: a conversation never holds an unanswered
// user message. On the first exchange the title is derived from the user
// message (30 characters, "..." when truncated).
func (s *Store) AppendExchange(id int, userMsg, assistantMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}

	conv.Messages = append(conv.Messages,
		NewMessage(RoleUser, userMsg),
		NewMessage(RoleAssistant, assistantMsg),
	)

	if len(conv.Messages) == 2 {
		conv.Title = util.TitleFromMessage(userMsg)
	}
	return nil
}

// Delete removes conversation id. Deleting the only remaining conversation
// is rejected with ErrLastConversation and leaves state unchanged. If the
// current conversation was deleted, current moves to an arbitrary surviving
// conversation (whichever the map yields first, not necessarily the
// lowest id).
func (s *Store) Delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	if len(s.byID) <= 1 {
		return ErrLastConversation
	}

	delete(s.byID, id)

	if s.current == id {
		for remaining := range s.byID {
			s.current = remaining
			break
		}
	}
	return nil
}

// History returns up to n trailing messages of the current conversation, in
// order. n <= 0 returns the full log.
func (s *Store) History(n int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.byID[s.current]
	msgs := conv.Messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// List returns conversation metadata sorted by id for display.
func (s *Store) List() []Meta {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Meta, 0, len(s.byID))
	for _, conv := range s.byID {
		out = append(out, Meta{
			ID:           conv.ID,
			Title:        conv.Title,
			MessageCount: len(conv.Messages),
			Current:      conv.ID == s.current,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of conversations.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
