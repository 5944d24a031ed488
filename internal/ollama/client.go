// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the AI backend.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes backend errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnavailable
	ErrTypeModelNotFound
	ErrTypeBackend
	ErrTypeMalformedResponse
)

// User-facing remediation text. The application is Russian-localized; these
// strings are shown verbatim in the chat view.
const (
	remediationUnavailable = "Ollama не запущена!\n\nРешение:\n1. Откройте приложение Ollama\n2. Выполните: ollama run mistral\n3. Оставьте окно открытым"
	remediationModel       = "Модель не найдена!\n\nРешение:\n1. Откройте Ollama\n2. Выполните: ollama run mistral\n3. Дождитесь скачивания"
	remediationBackend     = "Ошибка Ollama. Перезапустите приложение."
	remediationMalformed   = "Некорректный ответ от Ollama"
)

// Sentinel errors for easy checking.
var (
	ErrUnavailable       = &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable}
	ErrModelNotFound     = &ClientError{Type: ErrTypeModelNotFound, Message: remediationModel}
	ErrBackend           = &ClientError{Type: ErrTypeBackend, Message: remediationBackend}
	ErrMalformedResponse = &ClientError{Type: ErrTypeMalformedResponse, Message: remediationMalformed}
)

// IsUnavailable checks if an error indicates the backend is unreachable.
func IsUnavailable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnavailable
	}
	return false
}

// IsModelNotFound checks if an error is a model not found error.
func IsModelNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeModelNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the AI backend client.
type ClientConfig struct {
	// BaseURL is the chat server root; the proxy endpoints live under
	// BaseURL/api/ollama (default: http://localhost:5000).
	BaseURL string

	// Timeout for requests. Zero means no timeout: generation on a weak
	// host can be slow.
	Timeout time.Duration

	// DefaultModel to use if none specified (default: "mistral").
	DefaultModel string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:      "http://localhost:5000",
		DefaultModel: "mistral",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the proxied Ollama API.
//
// Example:
//
//	client := ollama.NewClient()
//	if err := client.CheckAvailable(ctx); err != nil {
//	    // surface remediation to the user
//	}
//	resp, err := client.Chat(ctx, "mistral", messages, opts)
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:5000"
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "mistral"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// DefaultModel returns the configured default model.
func (c *Client) DefaultModel() string {
	return c.config.DefaultModel
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckAvailable probes the proxied tags endpoint. Any transport failure or
// non-200 status is reported as ErrUnavailable with operator remediation.
func (c *Client) CheckAvailable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/ollama/tags", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}

// ListModels retrieves the models available behind the proxy.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/ollama/tags", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrUnavailable
	}

	var result TagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeMalformedResponse, Message: remediationMalformed, Cause: err}
	}
	return result.Models, nil
}

// =============================================================================
// CHAT
// =============================================================================

// Chat sends a non-streaming chat request and returns the assistant reply.
//
// HTTP outcomes are classified: 404 means the model is missing, 500 means
// Ollama itself failed, any other non-200 carries the server-supplied detail
// when present, and a 200 without message content is malformed.
func (c *Client) Chat(ctx context.Context, model string, messages []Message, opts *Options) (string, error) {
	if model == "" {
		model = c.config.DefaultModel
	}

	reqBody := ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options:  opts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnknown, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/ollama/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnavailable, Message: remediationUnavailable, Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", ErrModelNotFound

	case resp.StatusCode == http.StatusInternalServerError:
		return "", ErrBackend

	case resp.StatusCode != http.StatusOK:
		if detail := decodeErrorDetail(resp); detail != "" {
			return "", &ClientError{Type: ErrTypeBackend, Message: detail}
		}
		return "", &ClientError{
			Type:    ErrTypeBackend,
			Message: fmt.Sprintf("Ошибка: %d", resp.StatusCode),
		}
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeMalformedResponse, Message: remediationMalformed, Cause: err}
	}
	if strings.TrimSpace(result.Message.Content) == "" {
		return "", ErrMalformedResponse
	}

	return result.Message.Content, nil
}

// decodeErrorDetail extracts the server-supplied error message from a non-2xx
// body. The proxy forwards either {"error":{"message":...}} or {"error":"..."}.
func decodeErrorDetail(resp *http.Response) string {
	var raw struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil || len(raw.Error) == 0 {
		return ""
	}

	var nested struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw.Error, &nested); err == nil && nested.Message != "" {
		return nested.Message
	}

	var plain string
	if err := json.Unmarshal(raw.Error, &plain); err == nil {
		return plain
	}
	return ""
}
