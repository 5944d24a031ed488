// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jeranaias/alit-chat/internal/chat"
	"github.com/jeranaias/alit-chat/internal/ollama"
	"github.com/jeranaias/alit-chat/internal/ratelimit"
)

// DefaultSystemPrompt is the assistant persona preamble sent ahead of every
// conversation. Verbatim from the deployed assistant configuration.
const DefaultSystemPrompt = "Ты помощник по имени Alit. Ты дружелюбный и полезный. Отвечай на русском языке, если пользователь пишет на русском. Ты помогаеш с кодом ты знаешь точто ты слабый ии покачто так как твои возможности ограничен на сервере так как сервер не мощный и у него мало ресурсов поэтому старайся отвечать кратко но по делу. и правильно пиши код. ты почти свободный ии. в плане того что ты можеш пообщяться с пользователем и тебя никто не отключит пока mistral запущен."

// DefaultHistoryWindow is how many trailing messages (5 exchanges) are
// replayed as context.
const DefaultHistoryWindow = 10

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrEmptyMessage is returned for whitespace-only input. Callers treat it as
// a no-op: nothing is rendered, nothing is counted.
var ErrEmptyMessage = errors.New("empty message")

// RateLimitError is returned when the request gate denies an attempt. It is
// not a failed request: limiter state is untouched and no message is
// appended.
type RateLimitError struct {
	Wait time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.Wait)
}

// Notice is the assistant-style text shown in place of a reply.
func (e *RateLimitError) Notice() string {
	secs := int(math.Ceil(e.Wait.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("⏳ Подождите %d сек перед следующим запросом (ограничение API)", secs)
}

// =============================================================================
// PIPELINE
// =============================================================================

// Config holds the fixed request parameters.
type Config struct {
	Model         string
	SystemPrompt  string
	HistoryWindow int
	Temperature   float64
	TopP          float64
	NumPredict    int
}

// DefaultPipelineConfig returns the deployed generation parameters.
func DefaultPipelineConfig() Config {
	return Config{
		Model:         "mistral",
		SystemPrompt:  DefaultSystemPrompt,
		HistoryWindow: DefaultHistoryWindow,
		Temperature:   0.5,
		TopP:          0.9,
		NumPredict:    512,
	}
}

// Pipeline turns one user utterance into one assistant reply. Every failure
// is terminal for the attempt; the caller decides whether to resend.
type Pipeline struct {
	client        *ollama.Client
	limiter       *ratelimit.Limiter
	conversations *chat.Store
	cfg           Config
}

// NewPipeline wires the pipeline over its collaborators.
func NewPipeline(client *ollama.Client, limiter *ratelimit.Limiter, conversations *chat.Store, cfg Config) *Pipeline {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	return &Pipeline{
		client:        client,
		limiter:       limiter,
		conversations: conversations,
		cfg:           cfg,
	}
}

// Send runs one request cycle against the current conversation and returns
// the assistant reply. Exit points, in order:
//
//  1. whitespace-only input: ErrEmptyMessage, nothing happens.
//  2. rate gate denial: *RateLimitError carrying the remaining wait.
//  3. availability probe failure: unavailable error with remediation text.
//  4. HTTP failure: classified by the backend client.
//  5. success: the user/assistant pair is appended atomically and the reply
//     returned.
func (p *Pipeline) Send(ctx context.Context, input string) (string, error) {
	message := strings.TrimSpace(input)
	if message == "" {
		return "", ErrEmptyMessage
	}

	if granted, wait := p.limiter.TryAcquire(time.Now()); !granted {
		return "", &RateLimitError{Wait: wait}
	}

	if err := p.client.CheckAvailable(ctx); err != nil {
		return "", err
	}

	messages := p.buildMessages(message)

	reply, err := p.client.Chat(ctx, p.cfg.Model, messages, &ollama.Options{
		Temperature: p.cfg.Temperature,
		TopP:        p.cfg.TopP,
		NumPredict:  p.cfg.NumPredict,
	})
	if err != nil {
		return "", err
	}

	convID := p.conversations.Current()
	if err := p.conversations.AppendExchange(convID, message, reply); err != nil {
		// Current() always maps to an existing conversation; reaching this
		// means the store invariant broke.
		return "", err
	}
	return reply, nil
}

// buildMessages assembles the outbound request: system preamble, the last
// HistoryWindow messages of the current conversation, then the new user
// message.
func (p *Pipeline) buildMessages(userMsg string) []ollama.Message {
	history := p.conversations.History(p.cfg.HistoryWindow)

	messages := make([]ollama.Message, 0, len(history)+2)
	messages = append(messages, ollama.NewSystemMessage(p.cfg.SystemPrompt))
	for _, m := range history {
		messages = append(messages, ollama.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, ollama.NewUserMessage(userMsg))
	return messages
}
