// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package global synchronizes the shared multi-user chat feed: a
// fixed-interval poll while the global view is active, plus authenticated
// posting with an immediate refresh.
package global
