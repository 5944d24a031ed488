// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for alit-chat: rune-safe string
// truncation for titles and previews, display-width handling for terminal
// output, and atomic file writes for the persistence layer.
package util
