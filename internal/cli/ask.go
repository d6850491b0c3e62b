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
	"strings"

	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// maxStdinQuestion bounds a question read from a pipe.
const maxStdinQuestion = 1 << 20

// ErrNoQuestion is returned by ask when no question was given.
var ErrNoQuestion = errors.New("no question given (usage: flashquery ask \"question\")")

// askResult is the --json payload of ask.
type askResult struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	Fallback       bool   `json:"fallback"`
	LatencyMs      int64  `json:"latency_ms"`
	Error          string `json:"error,omitempty"`
}

// HandleAsk asks one question (or summarizes one video with --youtube),
// stores the exchange and prints the answer. When no question is given on
// the command line and stdin is not a terminal, the question is read from
// stdin.
func HandleAsk(app *App) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := NewArgParser(app.Args.Raw)
	if url := p.Flag("youtube"); url != "" {
		r, err := app.Session.Summarize(ctx, url)
		if err != nil {
			return err
		}
		return printReply(app, r)
	}

	question := app.Args.Query
	if strings.TrimSpace(question) == "" && !isTerminalReader(app.In) {
		data, err := io.ReadAll(io.LimitReader(app.In, maxStdinQuestion))
		if err != nil {
			return fmt.Errorf("read question from stdin: %w", err)
		}
		question = string(data)
	}

	r, err := app.Session.Send(ctx, question)
	if errors.Is(err, dispatch.ErrEmptyInput) {
		return ErrNoQuestion
	}
	if err != nil {
		return err
	}
	return printReply(app, r)
}

// printReply prints an answer. A backend failure still prints the fallback
// text and is then reported as the command's error.
func printReply(app *App, r dispatch.Reply) error {
	if app.Args.JSON {
		res := askResult{
			ConversationID: app.Session.ActiveID(),
			Question:       r.UserText,
			Answer:         r.Answer,
			Fallback:       r.Fallback,
			LatencyMs:      r.Latency.Milliseconds(),
		}
		if r.Err != nil {
			res.Error = r.Err.Error()
		}
		return NewJSONResponse("ask", res).Write(app.Out)
	}

	if app.Args.Quiet {
		fmt.Fprintln(app.Out, r.Answer)
	} else {
		printLabeled(app.Out, "FlashQuery", r.Answer)
	}

	if r.Err != nil {
		if !app.Args.Quiet {
			fmt.Fprintln(app.Err, styles.RenderWarning("backend request failed, the fallback reply was saved"))
		}
		return r.Err
	}
	return nil
}
