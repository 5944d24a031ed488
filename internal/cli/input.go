// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// input.go - Line editing and input history for the interactive shell.

package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/alit-chat/internal/config"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// Input provides readline-like editing with persistent history. Arrow keys
// navigate history; Ctrl+C aborts the current prompt.
type Input struct {
	line        *liner.State
	historyFile string
}

// NewInput creates a line editor and loads history from the config directory.
func NewInput() *Input {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	in := &Input{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	in.loadHistory()
	return in
}

func (in *Input) loadHistory() {
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
}

// ReadLine reads one line with the given prompt. Non-empty input is added
// to history.
func (in *Input) ReadLine(prompt string) (string, error) {
	input, err := in.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		in.line.AppendHistory(input)
	}
	return input, nil
}

// ReadSecret reads a line without echo. Used for passwords; never recorded
// in history.
func (in *Input) ReadSecret(prompt string) (string, error) {
	return in.line.PasswordPrompt(prompt)
}

// saveHistory persists history with owner-only permissions.
func (in *Input) saveHistory() {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err != nil {
		return
	}
	f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	in.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (in *Input) Close() {
	in.saveHistory()
	in.line.Close()
}
