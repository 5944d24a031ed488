// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the key-value persistence layer for alit-chat.
//
// The client keeps exactly one durable blob: the authenticated session. It is
// stored through the KV interface so the session store can be tested without
// a real backend. Three backends are provided: an in-memory store for tests,
// a file store writing one JSON blob per key, and a SQLite store for
// installs that prefer a single database file.
package storage
