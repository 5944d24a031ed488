// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the interactive terminal shell: the login gate,
// the assistant and global chat views, and the slash commands that move
// between them.
package cli
