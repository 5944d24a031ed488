// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the authenticated user's identity and credential
// token. Exactly one session is active at a time; it is persisted as a single
// blob through an injected key-value store and restored at startup, either
// from the blob or from a one-shot server-side cookie probe.
package session
