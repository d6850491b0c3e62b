// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/util"
)

// =============================================================================
// PROMPT MODES
// =============================================================================

// Mode changes the header subtitle. Requests are identical in every mode.
type Mode int

const (
	ModeAsk Mode = iota
	ModeMath
	ModeResearch
	ModeVideo
)

// Subtitle returns the header tagline for the mode.
func (m Mode) Subtitle() string {
	switch m {
	case ModeMath:
		return "Solve in a blink."
	case ModeResearch:
		return "Connect dots in a blink."
	case ModeVideo:
		return "Summarize in a blink."
	default:
		return "Ask in a blink."
	}
}

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	"new":    handleNewCommand,
	"n":      handleNewCommand,
	"delete": handleDeleteCommand,
	"search": handleSearchCommand,

	"youtube": handleYouTubeCommand,
	"yt":      handleYouTubeCommand,
	"upload":  handleUploadCommand,
	"context": handleContextCommand,
	"ctx":     handleContextCommand,

	"ask":      modeHandler(ModeAsk),
	"math":     modeHandler(ModeMath),
	"research": modeHandler(ModeResearch),
}

// handleCommand runs a slash command typed into the input line.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	handler, ok := commandHandlers[name]
	if !ok {
		m.setStatus(fmt.Sprintf("Unknown command: /%s (try /help)", name), true)
		return m, nil
	}
	return handler(&m, parts[1:])
}

func handleHelpCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	return *m, nil
}

func handleQuitCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	m.cancel()
	return *m, tea.Quit
}

func handleNewCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return m.startNewChat()
}

// handleDeleteCommand deletes the conversation named by an id or list
// position, or the open one when no argument is given.
func handleDeleteCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) > 0 {
		id, err := m.sess.Store().Resolve(args[0])
		if err != nil {
			m.setStatus(fmt.Sprintf("No conversation %s", args[0]), true)
			return *m, nil
		}
		return m.handleDeleteID(id)
	}

	id := m.sess.ActiveID()
	if id == "" {
		m.setStatus("No conversation selected", true)
		return *m, nil
	}
	return m.handleDeleteID(id)
}

// handleSearchCommand filters the sidebar. With no query the filter is
// removed.
func handleSearchCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.filter = strings.Join(args, " ")
	m.refreshSidebar()
	if m.filter == "" {
		m.setStatus("Showing all conversations", false)
	} else {
		m.setStatus(fmt.Sprintf("%d conversations match %q", len(m.sidebar.Entries()), m.filter), false)
	}
	return *m, nil
}

func handleYouTubeCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	url, ok := m.sess.Dispatcher().Validate(strings.Join(args, " "))
	if !ok {
		m.setStatus("Usage: /youtube <url>", true)
		return *m, nil
	}
	m.mode = ModeVideo

	disp := m.sess.Dispatcher()
	return m.startRequest(dispatch.VideoPrompt+url, func(ctx context.Context) ReplyMsg {
		return ReplyMsg{Reply: disp.Summarize(ctx, url)}
	})
}

// handleUploadCommand loads a document as pending context. PDFs are sent
// to the backend for extraction; anything else is read as text.
func handleUploadCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	path := strings.TrimSpace(strings.Join(args, " "))
	if path == "" {
		m.setStatus("Usage: /upload <path>", true)
		return *m, nil
	}
	m.setStatus("Loading "+filepath.Base(path)+"...", false)

	svc := m.service
	ctx := m.ctx
	return *m, func() tea.Msg {
		return loadDocument(ctx, svc, path)
	}
}

func loadDocument(ctx context.Context, svc Service, path string) UploadDoneMsg {
	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err := contextwatch.ReadContext(path)
		if err == nil && text == "" {
			err = errors.New("file is empty")
		}
		return UploadDoneMsg{Source: name, Text: text, Err: err}
	}

	if svc == nil {
		return UploadDoneMsg{Source: name, Err: errors.New("no backend configured")}
	}
	f, err := os.Open(path)
	if err != nil {
		return UploadDoneMsg{Source: name, Err: err}
	}
	defer f.Close()

	resp, err := svc.Upload(ctx, name, f)
	switch {
	case err != nil:
		return UploadDoneMsg{Source: name, Err: err}
	case resp.Error != "":
		return UploadDoneMsg{Source: name, Err: errors.New(resp.Error)}
	case strings.TrimSpace(resp.ExtractedText) == "":
		return UploadDoneMsg{Source: name, Err: errors.New("no text extracted")}
	}
	return UploadDoneMsg{Source: name, Text: resp.ExtractedText}
}

// handleContextCommand shows or clears the pending context.
func handleContextCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) > 0 && strings.EqualFold(args[0], "clear") {
		m.sess.ClearPendingContext()
		m.setStatus("Context cleared", false)
		return *m, nil
	}

	src := m.sess.PendingSource()
	if src == "" {
		m.setStatus("No context attached", false)
		return *m, nil
	}
	preview := util.TruncateRunes(util.SingleLine(m.sess.PendingContext()), 60)
	m.setStatus(fmt.Sprintf("Context from %s: %s", src, preview), false)
	return *m, nil
}

func modeHandler(mode Mode) CommandHandler {
	return func(m *Model, _ []string) (tea.Model, tea.Cmd) {
		m.mode = mode
		m.setStatus(mode.Subtitle(), false)
		return *m, nil
	}
}

// commandHelp lists the commands shown by /help.
var commandHelp = [][2]string{
	{"/new", "start a new conversation"},
	{"/youtube <url>", "summarize a YouTube video"},
	{"/upload <path>", "attach a document to following questions"},
	{"/context [clear]", "show or clear the attached document"},
	{"/search [text]", "filter the conversation list"},
	{"/delete [n]", "delete conversation n, or the open one"},
	{"/math, /research, /ask", "switch prompt mode"},
	{"/quit", "exit"},
}
