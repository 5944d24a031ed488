// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth drives the login, registration and logout flows against the
// chat server's auth API and reconciles the result into the session store.
package auth
