// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant orchestrates one AI request/response cycle: input
// validation, rate limiting, backend availability probe, request
// construction with a bounded history window, and response ingestion into
// the conversation store.
package assistant
