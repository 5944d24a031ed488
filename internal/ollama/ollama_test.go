// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient points a client at a test server.
func newTestClient(url string) *Client {
	return NewClientWithConfig(&ClientConfig{BaseURL: url, DefaultModel: "mistral"})
}

// =============================================================================
// HEALTH CHECK TESTS
// =============================================================================

func TestCheckAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ollama/tags" {
			t.Errorf("probe hit %q, want /api/ollama/tags", r.URL.Path)
		}
		w.Write([]byte(`{"models":[{"name":"mistral"}]}`))
	}))
	defer server.Close()

	if err := newTestClient(server.URL).CheckAvailable(context.Background()); err != nil {
		t.Errorf("CheckAvailable() error = %v", err)
	}
}

func TestCheckAvailable_DownServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	err := newTestClient(server.URL).CheckAvailable(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("CheckAvailable() error = %v, want unavailable", err)
	}
}

func TestCheckAvailable_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	err := newTestClient(server.URL).CheckAvailable(context.Background())
	if !IsUnavailable(err) {
		t.Errorf("CheckAvailable() error = %v, want unavailable", err)
	}
}

// =============================================================================
// CHAT CLASSIFICATION TESTS
// =============================================================================

func TestChat_Success(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/ollama/chat" {
			t.Errorf("chat hit %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotReq)
		w.Write([]byte(`{"model":"mistral","message":{"role":"assistant","content":"привет"},"done":true}`))
	}))
	defer server.Close()

	reply, err := newTestClient(server.URL).Chat(context.Background(), "", []Message{
		NewSystemMessage("preamble"),
		NewUserMessage("hi"),
	}, &Options{Temperature: 0.5, TopP: 0.9, NumPredict: 512})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply != "привет" {
		t.Errorf("Chat() = %q", reply)
	}

	// Request carries the fixed parameters and the default model.
	if gotReq.Model != "mistral" {
		t.Errorf("request model = %q", gotReq.Model)
	}
	if gotReq.Stream {
		t.Error("request stream = true, want false")
	}
	if gotReq.Options == nil || gotReq.Options.Temperature != 0.5 || gotReq.Options.TopP != 0.9 || gotReq.Options.NumPredict != 512 {
		t.Errorf("request options = %+v", gotReq.Options)
	}
}

func TestChat_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantMsg  string
	}{
		{"404 model not found", http.StatusNotFound, `{}`, ErrTypeModelNotFound, ""},
		{"500 backend error", http.StatusInternalServerError, `{}`, ErrTypeBackend, ""},
		{"other status with nested detail", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, ErrTypeBackend, "slow down"},
		{"other status with plain detail", http.StatusBadRequest, `{"error":"bad model name"}`, ErrTypeBackend, "bad model name"},
		{"other status without detail", http.StatusForbidden, ``, ErrTypeBackend, "Ошибка: 403"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Chat(context.Background(), "mistral", []Message{NewUserMessage("x")}, nil)
			if err == nil {
				t.Fatal("Chat() error = nil")
			}

			clientErr, ok := err.(*ClientError)
			if !ok {
				t.Fatalf("Chat() error type = %T", err)
			}
			if clientErr.Type != tc.wantType {
				t.Errorf("error Type = %v, want %v", clientErr.Type, tc.wantType)
			}
			if tc.wantMsg != "" && clientErr.Message != tc.wantMsg {
				t.Errorf("error Message = %q, want %q", clientErr.Message, tc.wantMsg)
			}
		})
	}
}

func TestChat_MalformedSuccessBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing message", `{"model":"mistral","done":true}`},
		{"empty content", `{"message":{"role":"assistant","content":"  "}}`},
		{"not json", `<html>`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Chat(context.Background(), "mistral", []Message{NewUserMessage("x")}, nil)
			clientErr, ok := err.(*ClientError)
			if !ok || clientErr.Type != ErrTypeMalformedResponse {
				t.Errorf("Chat() error = %v, want malformed response", err)
			}
		})
	}
}

func TestChat_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Chat(context.Background(), "mistral", []Message{NewUserMessage("x")}, nil)
	if !IsUnavailable(err) {
		t.Errorf("Chat() error = %v, want unavailable", err)
	}
}
