// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/storage"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// =============================================================================
// LINE EDITING
// =============================================================================

// ChatCLI provides input history and line editing for the chat REPL.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a line editor. An empty historyFile disables
// persistent input history.
func NewChatCLI(historyFile string) *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	c := &ChatCLI{line: line, historyFile: historyFile}
	if historyFile != "" {
		if f, err := os.Open(historyFile); err == nil {
			c.line.ReadHistory(f)
			f.Close()
		}
	}
	return c
}

// ReadInput reads one line, adding non-empty input to the history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves history and restores the terminal.
func (c *ChatCLI) Close() {
	if c.historyFile != "" {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

// errQuit ends the REPL.
var errQuit = errors.New("quit")

// HandleChat runs the line-mode chat until EOF, Ctrl+C or /quit.
func HandleChat(app *App) error {
	historyFile := ""
	if !app.Args.Ephemeral {
		if dir, err := app.Config.ResolveDataDir(); err == nil {
			historyFile = filepath.Join(dir, "chat_history")
		}
	}

	cli := NewChatCLI(historyFile)
	defer cli.Close()

	if !app.Args.Quiet {
		fmt.Fprintln(app.Out, labelStyle.Render("FlashQuery")+" "+dimStyle.Render(app.Client.BaseURL()))
		fmt.Fprintln(app.Out, dimStyle.Render("Type a question, /help for commands, /quit to exit."))
	}

	for {
		input, err := cli.ReadInput("> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := processLine(app, input); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(app.Err, styles.RenderError(err.Error()))
		}
	}
}

// processLine handles one REPL line: a slash command or a question.
func processLine(app *App, input string) error {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if !strings.HasPrefix(input, "/") {
		r, err := app.Session.Send(ctx, input)
		if err != nil {
			return err
		}
		printLabeled(app.Out, "FlashQuery", r.Answer)
		if r.Err != nil {
			fmt.Fprintln(app.Err, styles.RenderWarning(r.Err.Error()))
		}
		return nil
	}

	fields := strings.Fields(input)
	cmd, rest := strings.ToLower(fields[0]), strings.TrimSpace(strings.TrimPrefix(input, fields[0]))

	switch cmd {
	case "/quit", "/exit", "/q":
		return errQuit

	case "/help", "/h", "/?":
		printChatHelp(app.Out)

	case "/new", "/n":
		app.Session.NewConversation()
		fmt.Fprintln(app.Out, styles.RenderInfo("Started a new conversation"))

	case "/list", "/ls":
		fmt.Fprint(app.Out, storage.FormatList(app.Store.List()))
		fmt.Fprintln(app.Out)

	case "/open", "/o":
		conv, err := loadConversation(app, rest)
		if err != nil {
			return err
		}
		app.Session.Select(conv.ID)
		for _, t := range conv.Turns() {
			printLabeled(app.Out, t.Role.DisplayName(), t.Text)
		}

	case "/delete", "/rm":
		conv, err := loadConversation(app, rest)
		if err != nil {
			return err
		}
		cleared, err := app.Session.Delete(conv.ID)
		if err != nil {
			return err
		}
		msg := "Deleted " + conv.Title
		if cleared {
			msg += " (next question starts a new conversation)"
		}
		fmt.Fprintln(app.Out, styles.RenderSuccess(msg))

	case "/youtube", "/yt":
		fmt.Fprintln(app.Out, dimStyle.Render(dispatch.VideoPrompt+rest))
		r, err := app.Session.Summarize(ctx, rest)
		if errors.Is(err, dispatch.ErrEmptyInput) {
			return errors.New("usage: /youtube URL")
		}
		if err != nil {
			return err
		}
		printLabeled(app.Out, "FlashQuery", r.Answer)

	case "/context", "/ctx":
		return chatContext(app, rest)

	default:
		return fmt.Errorf("unknown command %s (try /help)", cmd)
	}
	return nil
}

// chatContext shows, clears or loads the document context.
func chatContext(app *App, arg string) error {
	switch {
	case arg == "":
		if src := app.Session.PendingSource(); src != "" {
			fmt.Fprintln(app.Out, styles.RenderInfo(fmt.Sprintf("Context from %s (%d chars)", src, len(app.Session.PendingContext()))))
		} else {
			fmt.Fprintln(app.Out, styles.RenderInfo("No context attached"))
		}
	case strings.EqualFold(arg, "clear"):
		app.Session.ClearPendingContext()
		fmt.Fprintln(app.Out, styles.RenderInfo("Context cleared"))
	default:
		text, err := contextwatch.ReadContext(arg)
		if err != nil {
			return err
		}
		app.Session.SetPendingContext(text, arg)
		fmt.Fprintln(app.Out, styles.RenderSuccess("Context loaded from "+arg))
	}
	return nil
}

func printChatHelp(w io.Writer) {
	rows := [][2]string{
		{"/new", "start a new conversation"},
		{"/list", "list conversations"},
		{"/open N", "continue conversation N"},
		{"/delete N", "delete conversation N"},
		{"/youtube URL", "summarize a YouTube video"},
		{"/context [clear|PATH]", "show, clear or load document context"},
		{"/quit", "exit"},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-24s %s\n", r[0], dimStyle.Render(r[1]))
	}
}
