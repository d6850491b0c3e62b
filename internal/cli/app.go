// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/config"
	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/kvstore"
	"github.com/jeranaias/flashquery-tui/internal/logging"
	"github.com/jeranaias/flashquery-tui/internal/session"
	"github.com/jeranaias/flashquery-tui/internal/storage"
)

// =============================================================================
// APPLICATION WIRING
// =============================================================================

// App bundles everything a command needs: configuration, the conversation
// store, the backend client and the session controller.
type App struct {
	Args    Args
	Config  *config.Config
	KV      kvstore.Store
	Store   *storage.ConversationStore
	Client  *backend.Client
	Session *session.Session

	In  io.Reader
	Out io.Writer
	Err io.Writer

	closeLog func() error
}

// LoadConfig reads the config file named by --config (or the default
// location) and applies command-line overrides.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.BaseURL != "" {
		cfg.Backend.BaseURL = args.BaseURL
	}
	if args.ContextFile != "" {
		cfg.Context.File = args.ContextFile
	}
	if args.Ephemeral {
		cfg.Storage.Backend = config.BackendMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewApp loads configuration, installs the logger and opens the store.
func NewApp(args Args) (*App, error) {
	cfg, err := LoadConfig(args)
	if err != nil {
		return nil, err
	}

	closeLog, err := setupLogging(cfg, args)
	if err != nil {
		return nil, err
	}

	dir, err := cfg.ResolveDataDir()
	if err != nil {
		closeLog()
		return nil, err
	}
	kv, err := kvstore.Open(cfg.Storage.Backend, dir)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	app, err := newApp(args, cfg, kv, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		kv.Close()
		closeLog()
		return nil, err
	}
	app.closeLog = closeLog
	return app, nil
}

// newApp wires the application around an already opened store.
func newApp(args Args, cfg *config.Config, kv kvstore.Store, in io.Reader, out, errOut io.Writer) (*App, error) {
	store, err := storage.Open(kv)
	if err != nil {
		return nil, err
	}

	client := backend.NewClientWithConfig(&backend.ClientConfig{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Timeout(),
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	})
	disp := dispatch.New(client, store, dispatch.WithMinDelay(cfg.MinDelay()))

	app := &App{
		Args:    args,
		Config:  cfg,
		KV:      kv,
		Store:   store,
		Client:  client,
		Session: session.New(store, disp),
		In:      in,
		Out:     out,
		Err:     errOut,
	}

	if path := cfg.Context.File; path != "" {
		text, err := contextwatch.ReadContext(path)
		if err != nil {
			return nil, fmt.Errorf("read context file: %w", err)
		}
		app.Session.SetPendingContext(text, path)
	}
	return app, nil
}

// Close releases the store and the log file.
func (a *App) Close() error {
	err := a.KV.Close()
	if a.closeLog != nil {
		if cerr := a.closeLog(); err == nil {
			err = cerr
		}
	}
	return err
}

// setupLogging sends slog output to the log file. Ephemeral runs do not
// write to the data directory at all.
func setupLogging(cfg *config.Config, args Args) (func() error, error) {
	if args.Ephemeral {
		logging.Discard()
		return func() error { return nil }, nil
	}

	level := logging.ParseLevel(cfg.Log.Level)
	switch {
	case args.Verbose:
		level = slog.LevelDebug
	case args.Quiet:
		level = slog.LevelWarn
	}

	path, err := cfg.ResolveLogFile()
	if err != nil {
		return nil, err
	}
	return logging.Setup(path, level)
}
