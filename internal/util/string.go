// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"github.com/mattn/go-runewidth"
)

// UNICODE: Rune-aware truncation preserves multi-byte characters.
// Conversation titles and previews are derived from user input, which is
// frequently Cyrillic; byte slicing would corrupt it.

// TruncateRunes truncates a string to a maximum number of runes (characters).
// If the string is truncated, "..." is appended and the result stays within
// maxRunes total.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TitleFromMessage derives a conversation title from a user message: the
// first 30 characters, with "..." appended when the message is longer.
func TitleFromMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) <= 30 {
		return msg
	}
	return string(runes[:30]) + "..."
}

// TruncateWidth truncates a string to a maximum display width, accounting
// for double-width (CJK) characters.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth > 3 {
		return runewidth.Truncate(s, maxWidth, "...")
	}
	return runewidth.Truncate(s, maxWidth, "")
}

// StringWidth returns the display width of a string. Double-width characters
// count as 2 columns.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}
