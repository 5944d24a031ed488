// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the AI backend. Ollama itself
// is never reached directly: the chat server proxies it under /api/ollama,
// which is what this client talks to.
package ollama
