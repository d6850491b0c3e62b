// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/flashquery-tui/internal/config"
	"github.com/jeranaias/flashquery-tui/internal/ui/styles"
)

// HandleConfig implements the config subcommands. It does not need the
// store, so it works even when the data directory is unusable.
func HandleConfig(args Args, out, errOut io.Writer) error {
	path := args.ConfigPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	p := NewArgParser(args.Raw, "force")

	switch args.Subcommand {
	case "", "show":
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config show", cfg).Write(out)
		}
		return toml.NewEncoder(out).Encode(cfg)

	case "path":
		_, err := fmt.Fprintln(out, path)
		return err

	case "init":
		if _, err := os.Stat(path); err == nil && !p.BoolFlag("force") {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
		if !args.Quiet {
			fmt.Fprintln(errOut, styles.RenderSuccess("Wrote "+path))
		}
		return nil

	case "get":
		key := p.Positional(1)
		if key == "" {
			return errors.New("usage: flashquery config get KEY")
		}
		cfg, err := LoadConfig(args)
		if err != nil {
			return err
		}
		v, err := cfg.Get(key)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, v)
		return err

	case "set":
		key, value := p.Positional(1), p.Positional(2)
		if key == "" || p.PositionalCount() < 3 {
			return errors.New("usage: flashquery config set KEY VALUE")
		}
		cfg := config.Default()
		if _, err := os.Stat(path); err == nil {
			if cfg, err = config.LoadFromPath(path); err != nil {
				return err
			}
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
		return config.Save(cfg, path)

	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(out, k)
		}
		return nil
	}
	return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
}
