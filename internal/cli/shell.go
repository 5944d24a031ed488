// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// shell.go - Interactive REPL for the alit chat client.
//
// Handles the login gate and the two chat views:
//
//   ai      - conversation with the Alit assistant (default)
//   global  - shared multi-user feed, polled while the view is active
//
// Interactive Commands:
//   /help, /h           Show available commands
//   /new                Start a new conversation
//   /chats              List conversations
//   /switch N           Switch to conversation N
//   /delete N           Delete conversation N
//   /global             Switch to the global chat view
//   /ai                 Switch back to the assistant view
//   /profile            Show the logged-in user
//   /logout             Log out and return to the login gate
//   /quit, /q           Exit
//   Ctrl+D              Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/alit-chat/internal/assistant"
	"github.com/jeranaias/alit-chat/internal/auth"
	"github.com/jeranaias/alit-chat/internal/chat"
	"github.com/jeranaias/alit-chat/internal/global"
	"github.com/jeranaias/alit-chat/internal/render"
	"github.com/jeranaias/alit-chat/internal/session"
)

// =============================================================================
// STYLES
// =============================================================================

// init configures the lipgloss color profile from terminal capabilities.
// This respects NO_COLOR, FORCE_COLOR, and TTY detection.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(render.Cyan).
			Bold(true)

	globalPromptStyle = lipgloss.NewStyle().
				Foreground(render.Emerald).
				Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(render.Purple).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(render.TextMuted)

	commandStyle = lipgloss.NewStyle().
			Foreground(render.Emerald)
)

// =============================================================================
// VIEWS
// =============================================================================

// View selects which chat the input line feeds.
type View int

const (
	ViewAssistant View = iota
	ViewGlobal
)

func (v View) String() string {
	if v == ViewGlobal {
		return "global"
	}
	return "ai"
}

// =============================================================================
// SHELL
// =============================================================================

// Shell ties the auth flow, the assistant pipeline, and the global feed to
// an interactive prompt.
type Shell struct {
	flow          *auth.Flow
	sessions      *session.Store
	pipeline      *assistant.Pipeline
	conversations *chat.Store
	feed          *global.Sync

	input *Input
	out   io.Writer
	view  View

	// feed snapshot shown last, used to avoid reprinting an unchanged poll
	shownFeedLen  int
	shownFeedLast string
}

// NewShell creates the interactive shell.
func NewShell(flow *auth.Flow, sessions *session.Store, pipeline *assistant.Pipeline, conversations *chat.Store, feed *global.Sync) *Shell {
	return &Shell{
		flow:          flow,
		sessions:      sessions,
		pipeline:      pipeline,
		conversations: conversations,
		feed:          feed,
		out:           os.Stdout,
	}
}

// Run starts the REPL and blocks until the user exits.
func (s *Shell) Run(ctx context.Context) error {
	if !IsTTY() {
		return &TTYRequiredError{Operation: "chat"}
	}

	s.input = NewInput()
	defer s.input.Close()
	defer s.feed.Stop()

	s.printWelcome()

	if s.flow.State() != auth.StateLoggedIn {
		if err := s.authGate(ctx); err != nil {
			return err
		}
	}
	s.printProfile()
	s.replayConversation()

	for {
		input, err := s.input.ReadLine(s.prompt())
		if err != nil {
			// Ctrl+C or Ctrl+D - exit gracefully
			fmt.Fprintln(s.out)
			fmt.Fprintln(s.out, infoStyle.Render("До встречи!"))
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := s.handleCommand(ctx, input)
			if err != nil {
				fmt.Fprintln(s.out, render.Error(err.Error()))
			}
			if !keepGoing {
				fmt.Fprintln(s.out, infoStyle.Render("До встречи!"))
				return nil
			}
			continue
		}

		switch s.view {
		case ViewGlobal:
			s.postToFeed(ctx, input)
		default:
			s.askAssistant(ctx, input)
		}
	}
}

func (s *Shell) prompt() string {
	if s.view == ViewGlobal {
		return globalPromptStyle.Render("global> ")
	}
	return promptStyle.Render("alit> ")
}

// =============================================================================
// AUTH GATE
// =============================================================================

// authGate loops until a login or registration succeeds. Only "login",
// "register", and "quit" are accepted here; everything else reprints the
// hint.
func (s *Shell) authGate(ctx context.Context) error {
	fmt.Fprintln(s.out, infoStyle.Render("Войдите или зарегистрируйтесь: login | register | quit"))

	for {
		input, err := s.input.ReadLine(promptStyle.Render("auth> "))
		if err != nil {
			return errors.New("login aborted")
		}

		switch strings.ToLower(strings.TrimSpace(input)) {
		case "login", "l":
			if s.runLogin(ctx) {
				return nil
			}
		case "register", "r":
			if s.runRegister(ctx) {
				return nil
			}
		case "quit", "q", "exit":
			return errors.New("login aborted")
		case "":
			continue
		default:
			fmt.Fprintln(s.out, infoStyle.Render("Команды: login | register | quit"))
		}
	}
}

func (s *Shell) runLogin(ctx context.Context) bool {
	username, err := s.input.ReadLine("  Имя пользователя: ")
	if err != nil {
		return false
	}
	password, err := s.input.ReadSecret("  Пароль: ")
	if err != nil {
		return false
	}

	err = s.flow.Login(ctx, auth.LoginRequest{
		Username: strings.TrimSpace(username),
		Password: password,
	})
	if err != nil {
		fmt.Fprintln(s.out, render.Error(err.Error()))
		return false
	}
	return true
}

func (s *Shell) runRegister(ctx context.Context) bool {
	username, err := s.input.ReadLine("  Имя пользователя: ")
	if err != nil {
		return false
	}
	email, err := s.input.ReadLine("  Email: ")
	if err != nil {
		return false
	}
	password, err := s.input.ReadSecret("  Пароль: ")
	if err != nil {
		return false
	}
	confirm, err := s.input.ReadSecret("  Повторите пароль: ")
	if err != nil {
		return false
	}

	err = s.flow.Register(ctx, auth.RegisterRequest{
		Username:        strings.TrimSpace(username),
		Email:           strings.TrimSpace(email),
		Password:        password,
		PasswordConfirm: confirm,
	})
	if err != nil {
		fmt.Fprintln(s.out, render.Error(err.Error()))
		return false
	}
	return true
}

// =============================================================================
// ASSISTANT VIEW
// =============================================================================

func (s *Shell) askAssistant(ctx context.Context, input string) {
	fmt.Fprintln(s.out, render.Thinking())

	reply, err := s.pipeline.Send(ctx, input)
	if err != nil {
		var rle *assistant.RateLimitError
		if errors.As(err, &rle) {
			fmt.Fprintln(s.out, render.Notice(rle.Notice()))
			return
		}
		fmt.Fprintln(s.out, render.Error(err.Error()))
		return
	}

	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, render.Message(chat.Message{Role: chat.RoleAssistant, Content: reply}, GetTerminalWidth()))
	fmt.Fprintln(s.out)
}

// replayConversation prints the current conversation's history, the way the
// view would after switching to it.
func (s *Shell) replayConversation() {
	history := s.conversations.History(0)
	if len(history) == 0 {
		return
	}
	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, render.Transcript(history, GetTerminalWidth()))
	fmt.Fprintln(s.out)
}

// =============================================================================
// GLOBAL VIEW
// =============================================================================

func (s *Shell) postToFeed(ctx context.Context, input string) {
	if err := s.feed.Post(ctx, input); err != nil {
		fmt.Fprintln(s.out, render.Error(err.Error()))
	}
}

// showFeed prints the projection when it changed since last shown.
func (s *Shell) showFeed(messages []global.Message) {
	last := ""
	if len(messages) > 0 {
		m := messages[len(messages)-1]
		last = m.Username + "\x00" + m.Content
	}
	if len(messages) == s.shownFeedLen && last == s.shownFeedLast {
		return
	}
	s.shownFeedLen = len(messages)
	s.shownFeedLast = last

	fmt.Fprintln(s.out)
	fmt.Fprint(s.out, render.Feed(messages))
}

func (s *Shell) enterGlobal(ctx context.Context) {
	if s.view == ViewGlobal {
		return
	}
	s.view = ViewGlobal
	s.shownFeedLen = 0
	s.shownFeedLast = ""
	s.feed.OnUpdate(s.showFeed)
	s.feed.Start(ctx)
	fmt.Fprintln(s.out, commandStyle.Render("[Общий чат]"))
}

func (s *Shell) leaveGlobal() {
	if s.view != ViewGlobal {
		return
	}
	s.feed.Stop()
	s.feed.OnUpdate(nil)
	s.view = ViewAssistant
	fmt.Fprintln(s.out, commandStyle.Render("[Чат с Алит]"))
	s.replayConversation()
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleCommand processes slash commands.
// Returns (keepGoing, error) where keepGoing=false means exit.
func (s *Shell) handleCommand(ctx context.Context, cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return true, nil
	}

	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
		return true, nil

	case "/new":
		id := s.conversations.Create()
		fmt.Fprintln(s.out, commandStyle.Render(fmt.Sprintf("[Новый разговор #%d]", id)))
		return true, nil

	case "/chats":
		s.printConversations()
		return true, nil

	case "/switch":
		return true, s.switchConversation(args)

	case "/delete":
		return true, s.deleteConversation(args)

	case "/global":
		s.enterGlobal(ctx)
		return true, nil

	case "/ai":
		s.leaveGlobal()
		return true, nil

	case "/profile":
		s.printProfile()
		return true, nil

	case "/logout":
		s.feed.Stop()
		s.view = ViewAssistant
		s.flow.Logout(ctx)
		fmt.Fprintln(s.out, commandStyle.Render("[Вы вышли из аккаунта]"))
		if err := s.authGate(ctx); err != nil {
			return false, nil
		}
		s.printProfile()
		return true, nil

	case "/quit", "/q", "/exit":
		return false, nil

	default:
		return true, fmt.Errorf("неизвестная команда: %s (наберите /help)", command)
	}
}

func (s *Shell) switchConversation(args []string) error {
	id, err := parseConversationID(args)
	if err != nil {
		return err
	}
	history, err := s.conversations.SwitchTo(id)
	if err != nil {
		return fmt.Errorf("разговор %d не найден", id)
	}
	fmt.Fprintln(s.out, commandStyle.Render(fmt.Sprintf("[Разговор #%d]", id)))
	if len(history) > 0 {
		fmt.Fprintln(s.out)
		fmt.Fprint(s.out, render.Transcript(history, GetTerminalWidth()))
		fmt.Fprintln(s.out)
	}
	return nil
}

func (s *Shell) deleteConversation(args []string) error {
	id, err := parseConversationID(args)
	if err != nil {
		return err
	}
	switch err := s.conversations.Delete(id); {
	case errors.Is(err, chat.ErrLastConversation):
		return errors.New("нельзя удалить единственный разговор")
	case errors.Is(err, chat.ErrNotFound):
		return fmt.Errorf("разговор %d не найден", id)
	case err != nil:
		return err
	}
	fmt.Fprintln(s.out, commandStyle.Render(fmt.Sprintf("[Разговор #%d удалён]", id)))
	return nil
}

// parseConversationID extracts the numeric argument of /switch and /delete.
func parseConversationID(args []string) (int, error) {
	if len(args) == 0 {
		return 0, errors.New("укажите номер разговора")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("некорректный номер разговора: %s", args[0])
	}
	return id, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

func (s *Shell) printWelcome() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, welcomeStyle.Render("alit chat"))
	fmt.Fprintln(s.out, infoStyle.Render(strings.Repeat("─", 30)))
	fmt.Fprintln(s.out, infoStyle.Render("Напишите сообщение и нажмите Enter. Команды: /help, /quit"))
	fmt.Fprintln(s.out)
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out)
	fmt.Fprintln(s.out, promptStyle.Render("Команды"))
	fmt.Fprintln(s.out, infoStyle.Render(strings.Repeat("─", 20)))
	fmt.Fprintln(s.out)

	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Показать эту справку"},
		{"/new", "Начать новый разговор"},
		{"/chats", "Список разговоров"},
		{"/switch N", "Переключиться на разговор N"},
		{"/delete N", "Удалить разговор N"},
		{"/global", "Общий чат"},
		{"/ai", "Чат с Алит"},
		{"/profile", "Текущий пользователь"},
		{"/logout", "Выйти из аккаунта"},
		{"/quit, /q", "Выход"},
	}
	for _, c := range commands {
		fmt.Fprintf(s.out, "  %s  %s\n",
			commandStyle.Render(fmt.Sprintf("%-12s", c.cmd)),
			infoStyle.Render(c.desc))
	}
	fmt.Fprintln(s.out)
}

func (s *Shell) printConversations() {
	fmt.Fprintln(s.out)
	for _, meta := range s.conversations.List() {
		fmt.Fprintln(s.out, render.ConversationLine(meta, 40))
	}
	fmt.Fprintln(s.out)
}

func (s *Shell) printProfile() {
	sess, ok := s.sessions.Get()
	if !ok {
		fmt.Fprintln(s.out, infoStyle.Render("[Не авторизован]"))
		return
	}
	name := sess.Username
	if sess.Avatar != "" {
		name = sess.Avatar + " " + name
	}
	line := name
	if sess.Email != "" {
		line += " <" + sess.Email + ">"
	}
	fmt.Fprintln(s.out, infoStyle.Render("Вы вошли как: ")+commandStyle.Render(line))
}
