// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat contains the in-memory conversation bookkeeping for the AI
// view: an ordered message log per conversation, a current conversation, and
// the title derivation rules.
package chat
