// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/alit-chat/internal/chat"
	"github.com/jeranaias/alit-chat/internal/global"
)

var ansiRE = regexp.MustCompile("\x1b\\[[0-9;]*m")

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

func TestParseCodeBlocks_FencedBlock(t *testing.T) {
	text := "before\n```go\nfmt.Println(\"hi\")\n```\nafter"
	got := stripANSI(ParseCodeBlocks(text, 80))

	if !strings.Contains(got, "before") || !strings.Contains(got, "after") {
		t.Error("surrounding prose lost")
	}
	if !strings.Contains(got, "fmt.Println") {
		t.Error("code body lost")
	}
	if strings.Contains(got, "```") {
		t.Error("fence markers leaked into output")
	}
	if !strings.Contains(got, "go") {
		t.Error("language badge missing")
	}
}

func TestParseCodeBlocks_UnclosedFence(t *testing.T) {
	got := stripANSI(ParseCodeBlocks("```python\nprint(1)", 80))
	if !strings.Contains(got, "print(1)") {
		t.Error("unclosed block should still render")
	}
}

func TestParseCodeBlocks_PlainText(t *testing.T) {
	if got := ParseCodeBlocks("no code here", 80); got != "no code here" {
		t.Errorf("got %q", got)
	}
}

func TestParseInlineCode(t *testing.T) {
	got := stripANSI(ParseInlineCode("use `go test` to verify"))
	if !strings.Contains(got, "go test") {
		t.Error("inline code lost")
	}
	if strings.Contains(got, "`") {
		t.Error("backticks leaked")
	}

	// unclosed backtick passes through verbatim
	if got := ParseInlineCode("dangling `tick"); got != "dangling `tick" {
		t.Errorf("got %q", got)
	}
}

func TestMessage_Roles(t *testing.T) {
	user := stripANSI(Message(chat.Message{Role: chat.RoleUser, Content: "привет"}, 80))
	if !strings.Contains(user, "Вы:") || !strings.Contains(user, "привет") {
		t.Errorf("user line = %q", user)
	}

	asst := stripANSI(Message(chat.Message{Role: chat.RoleAssistant, Content: "здравствуйте"}, 80))
	if !strings.Contains(asst, "Алит:") || !strings.Contains(asst, "здравствуйте") {
		t.Errorf("assistant line = %q", asst)
	}
}

func TestTranscript_Order(t *testing.T) {
	msgs := []chat.Message{
		{Role: chat.RoleUser, Content: "first"},
		{Role: chat.RoleAssistant, Content: "second"},
	}
	got := stripANSI(Transcript(msgs, 80))
	if strings.Index(got, "first") > strings.Index(got, "second") {
		t.Error("transcript out of order")
	}
}

func TestConversationLine(t *testing.T) {
	line := stripANSI(ConversationLine(chat.Meta{ID: 2, Title: "Новый разговор", MessageCount: 4, Current: true}, 40))
	if !strings.Contains(line, "[2]") || !strings.Contains(line, "Новый разговор") || !strings.Contains(line, "(4)") {
		t.Errorf("line = %q", line)
	}
	if !strings.Contains(line, ">") {
		t.Error("current marker missing")
	}

	other := stripANSI(ConversationLine(chat.Meta{ID: 1, Title: "x", MessageCount: 0}, 40))
	if strings.Contains(other, ">") {
		t.Error("non-current conversation should not be marked")
	}
}

func TestFeedLine(t *testing.T) {
	ts := time.Date(2025, 3, 1, 14, 5, 0, 0, time.Local)
	m := global.Message{Username: "alice", Avatar: "🐱", Content: "hello", Timestamp: ts}
	got := stripANSI(FeedLine(m))
	if !strings.Contains(got, "14:05") {
		t.Errorf("timestamp missing from %q", got)
	}
	if !strings.Contains(got, "🐱 alice:") || !strings.Contains(got, "hello") {
		t.Errorf("line = %q", got)
	}

	// no avatar: bare username
	got = stripANSI(FeedLine(global.Message{Username: "bob", Content: "hi", Timestamp: ts}))
	if !strings.Contains(got, " bob:") {
		t.Errorf("line = %q", got)
	}
}

func TestNotices(t *testing.T) {
	if got := stripANSI(Error("boom")); !strings.Contains(got, "✗ boom") {
		t.Errorf("got %q", got)
	}
	if got := stripANSI(Success("saved")); !strings.Contains(got, "✓ saved") {
		t.Errorf("got %q", got)
	}
	if got := stripANSI(Thinking()); !strings.Contains(got, "Алит") {
		t.Errorf("got %q", got)
	}
}
