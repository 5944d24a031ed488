// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render formats chat output for the terminal: role-tagged message
// bubbles, syntax-highlighted code blocks inside assistant replies, and the
// shared feed's timestamped lines.
package render
