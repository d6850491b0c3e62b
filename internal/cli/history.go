// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/model"
	"github.com/jeranaias/flashquery-tui/internal/storage"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
	"github.com/jeranaias/flashquery-tui/internal/util"
)

// ErrConfirmationRequired is returned by destructive commands run without
// --confirm.
var ErrConfirmationRequired = errors.New("refusing to delete without --confirm")

// Export formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatText     = "txt"
)

// summaryJSON is the --json form of a list row.
type summaryJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	Turns     int    `json:"turns"`
}

// HandleHistory dispatches the history subcommands.
func HandleHistory(app *App) error {
	p := NewArgParser(app.Args.Raw, "confirm")

	switch app.Args.Subcommand {
	case "", "list", "ls":
		return historyList(app, app.Store.List())
	case "search", "find":
		query := strings.Join(p.PositionalFrom(1), " ")
		if query == "" {
			return errors.New("usage: flashquery history search TEXT")
		}
		return historyList(app, app.Store.Search(query))
	case "show", "view":
		return historyShow(app, p.Positional(1))
	case "export":
		return historyExport(app, p.Positional(1), p.FlagOrDefault("format", FormatMarkdown), p.Flag("output"))
	case "delete", "rm":
		return historyDelete(app, p.Positional(1), p.BoolFlag("confirm"))
	case "delete-all", "clear":
		return historyDeleteAll(app, p.BoolFlag("confirm"))
	}
	return fmt.Errorf("unknown history subcommand: %s", app.Args.Subcommand)
}

func historyList(app *App, list []storage.Summary) error {
	if app.Args.JSON {
		rows := make([]summaryJSON, 0, len(list))
		for _, s := range list {
			rows = append(rows, summaryJSON{
				ID:        s.ID,
				Title:     s.Title,
				CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
				Turns:     s.TurnCount,
			})
		}
		return NewJSONResponse("history list", rows).Write(app.Out)
	}

	out := storage.FormatList(list)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := fmt.Fprint(app.Out, out)
	return err
}

// loadConversation resolves an id or 1-based list position.
func loadConversation(app *App, ref string) (*model.Conversation, error) {
	if ref == "" {
		return nil, errors.New("missing conversation id or number")
	}
	id, err := app.Store.Resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, ref)
	}
	conv, ok := app.Store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", storage.ErrConversationNotFound, ref)
	}
	return conv, nil
}

func historyShow(app *App, ref string) error {
	conv, err := loadConversation(app, ref)
	if err != nil {
		return err
	}

	if app.Args.JSON {
		data, err := storage.ExportJSON(conv)
		if err != nil {
			return err
		}
		_, err = app.Out.Write(append(data, '\n'))
		return err
	}

	fmt.Fprintln(app.Out, labelStyle.Render(conv.Title))
	fmt.Fprintln(app.Out, dimStyle.Render(conv.CreatedAt.Local().Format("2006-01-02 15:04")+"  "+conv.ID))
	fmt.Fprintln(app.Out)
	for _, t := range conv.Turns() {
		printLabeled(app.Out, t.Role.DisplayName(), t.Text)
		fmt.Fprintln(app.Out)
	}
	return nil
}

func historyExport(app *App, ref, format, output string) error {
	conv, err := loadConversation(app, ref)
	if err != nil {
		return err
	}

	var data []byte
	switch strings.ToLower(format) {
	case FormatJSON:
		if data, err = storage.ExportJSON(conv); err != nil {
			return err
		}
		data = append(data, '\n')
	case FormatMarkdown, "markdown":
		data = []byte(storage.ExportMarkdown(conv))
	case FormatText, "text":
		data = []byte(storage.ExportText(conv))
	default:
		return fmt.Errorf("unsupported export format %q (use json, md or txt)", format)
	}

	if output == "" {
		_, err = app.Out.Write(data)
		return err
	}
	if err := util.AtomicWriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	if !app.Args.Quiet {
		fmt.Fprintln(app.Err, styles.RenderSuccess("Exported to "+output))
	}
	return nil
}

func historyDelete(app *App, ref string, confirm bool) error {
	conv, err := loadConversation(app, ref)
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("%w (would delete %q)", ErrConfirmationRequired, conv.Title)
	}
	if err := app.Store.Delete(conv.ID); err != nil {
		return err
	}

	if app.Args.JSON {
		return NewJSONResponse("history delete", map[string]string{"id": conv.ID}).Write(app.Out)
	}
	if !app.Args.Quiet {
		fmt.Fprintln(app.Out, styles.RenderSuccess("Deleted "+util.TruncateRunes(conv.Title, 40)))
	}
	return nil
}

func historyDeleteAll(app *App, confirm bool) error {
	n := app.Store.Len()
	if !confirm {
		return fmt.Errorf("%w (would delete %d conversations)", ErrConfirmationRequired, n)
	}
	if err := app.Store.Clear(); err != nil {
		return err
	}

	if app.Args.JSON {
		return NewJSONResponse("history delete-all", map[string]int{"deleted": n}).Write(app.Out)
	}
	if !app.Args.Quiet {
		fmt.Fprintln(app.Out, styles.RenderSuccess(fmt.Sprintf("Deleted %d conversations", n)))
	}
	return nil
}
