// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/alit-chat/internal/chat"
	"github.com/jeranaias/alit-chat/internal/global"
	"github.com/jeranaias/alit-chat/internal/util"
)

// =============================================================================
// MESSAGE STYLES
// =============================================================================

var (
	userBadge      = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	assistantBadge = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	usernameStyle  = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	timestampStyle = lipgloss.NewStyle().Foreground(TextMuted)
	noticeStyle    = lipgloss.NewStyle().Foreground(Amber)
	errorStyle     = lipgloss.NewStyle().Foreground(Rose)
	successStyle   = lipgloss.NewStyle().Foreground(Emerald)
	mutedStyle     = lipgloss.NewStyle().Foreground(TextMuted)
)

// AssistantName is the display name for assistant replies.
const AssistantName = "Алит"

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// Message formats one conversation entry. Assistant replies get code-block
// and inline-code treatment; user input is shown verbatim.
func Message(m chat.Message, width int) string {
	switch m.Role {
	case chat.RoleAssistant:
		body := ParseCodeBlocks(m.Content, width)
		body = ParseInlineCode(body)
		return assistantBadge.Render(AssistantName+":") + " " + body
	default:
		return userBadge.Render("Вы:") + " " + m.Content
	}
}

// Transcript renders a whole conversation history, oldest first.
func Transcript(messages []chat.Message, width int) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Message(m, width))
		b.WriteString("\n")
	}
	return b.String()
}

// ConversationLine formats one entry of the conversation list. The current
// conversation is marked; titles are width-capped so the list stays aligned.
func ConversationLine(meta chat.Meta, titleWidth int) string {
	marker := "  "
	if meta.Current {
		marker = successStyle.Render("> ")
	}
	title := util.TruncateWidth(meta.Title, titleWidth)
	count := mutedStyle.Render(fmt.Sprintf("(%d)", meta.MessageCount))
	return fmt.Sprintf("%s[%d] %s %s", marker, meta.ID, title, count)
}

// =============================================================================
// GLOBAL FEED RENDERING
// =============================================================================

// FeedLine formats one shared-feed message as a single timestamped line.
func FeedLine(m global.Message) string {
	ts := timestampStyle.Render(m.Timestamp.Local().Format("15:04"))
	name := m.Username
	if m.Avatar != "" {
		name = m.Avatar + " " + name
	}
	return fmt.Sprintf("%s %s %s", ts, usernameStyle.Render(name+":"), m.Content)
}

// Feed renders the whole projection, oldest first.
func Feed(messages []global.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(FeedLine(m))
		b.WriteString("\n")
	}
	return b.String()
}

// =============================================================================
// NOTICES
// =============================================================================

// Notice formats a warning line, e.g. the rate-limit countdown.
func Notice(text string) string {
	return noticeStyle.Render(text)
}

// Error formats an error line.
func Error(text string) string {
	return errorStyle.Render("✗ " + text)
}

// Success formats a confirmation line.
func Success(text string) string {
	return successStyle.Render("✓ " + text)
}

// Muted formats secondary information.
func Muted(text string) string {
	return mutedStyle.Render(text)
}

// Thinking is the placeholder shown while a reply is pending.
func Thinking() string {
	return mutedStyle.Render(AssistantName + " печатает...")
}

// LocalTime is a small helper for status lines.
func LocalTime(t time.Time) string {
	return timestampStyle.Render(t.Local().Format("15:04:05"))
}
