// flashquery - a terminal client for the FlashQuery question-answering service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flashquery-tui/internal/cli"
	"github.com/jeranaias/flashquery-tui/internal/config"
	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/ui/chat"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])
	cli.ConfigureColors(args)

	if err := run(cmd, args); err != nil {
		if args.JSON {
			_ = cli.NewJSONErrorResponse("flashquery", err).Write(os.Stdout)
		} else {
			fmt.Fprintln(os.Stderr, styles.RenderError("Error: "+err.Error()))
		}
		os.Exit(1)
	}
}

func run(cmd cli.Command, args cli.Args) error {
	if err := config.LoadDotEnv(config.DotEnvPaths()...); err != nil {
		return err
	}

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return nil
	case cli.CmdHelp:
		cli.PrintUsage(os.Stdout)
		if args.Subcommand != "" {
			return fmt.Errorf("unknown command: %s", args.Subcommand)
		}
		return nil
	case cli.CmdConfig:
		return cli.HandleConfig(args, os.Stdout, os.Stderr)
	}

	app, err := cli.NewApp(args)
	if err != nil {
		return err
	}
	defer app.Close()

	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(app)
	case cli.CmdChat:
		return cli.HandleChat(app)
	case cli.CmdHistory:
		return cli.HandleHistory(app)
	default:
		return runTUI(app)
	}
}

// runTUI starts the full-screen interface.
func runTUI(app *cli.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := chat.Options{
		Session:       app.Session,
		Service:       app.Client,
		Theme:         styles.NewTheme(),
		TitleMaxRunes: app.Config.UI.TitleMaxRunes,
		SidebarWidth:  app.Config.UI.SidebarWidth,
		BackendURL:    app.Client.BaseURL(),
	}

	if path := app.Config.Context.File; path != "" && app.Config.Context.Watch {
		w, err := contextwatch.New(path, 0)
		if err != nil {
			return err
		}
		updates, err := w.Start(ctx)
		if err != nil {
			// The file was already read once; keep going without live updates
			slog.Warn("context watch unavailable", "path", path, "error", err)
		} else {
			defer w.Close()
			opts.ContextUpdates = updates
		}
	}

	p := tea.NewProgram(
		chat.New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running flashquery: %w", err)
	}
	return nil
}
