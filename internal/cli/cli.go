// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the flashquery command line: argument parsing
// and the non-TUI commands.
package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath  string
	BaseURL     string
	ContextFile string
	JSON        bool
	Quiet       bool
	Verbose     bool
	Ephemeral   bool
	NoColor     bool

	// Command-specific
	Query      string
	Subcommand string

	// Raw holds the arguments after the command name
	Raw []string
}

const usageText = `flashquery - terminal client for the FlashQuery question-answering service

Usage:
  flashquery                         Start the TUI (default)
  flashquery ask "question"          Ask one question (reads stdin when piped)
  flashquery ask --youtube URL       Summarize a YouTube video
  flashquery chat                    Line-mode chat
  flashquery history [list]          List conversations, most recent first
  flashquery history search TEXT     List conversations containing TEXT
  flashquery history show <id|n>     Print a conversation
  flashquery history export <id|n> [--format json|md|txt] [--output FILE]
  flashquery history delete <id|n> --confirm
  flashquery history delete-all --confirm
  flashquery config [show|path|init|get KEY|set KEY VALUE]
  flashquery version

Global flags:
  --config PATH        Config file (default ~/.flashquery/config.toml)
  --base-url URL       FlashQuery backend address
  --context-file PATH  Attach the text of PATH to every question
  --json               Machine-readable output
  -q, --quiet          Print only answers
  -v, --verbose        Debug logging
  --ephemeral          Keep history in memory only
  --no-color           Disable colors

Version %s
`

// PrintUsage writes the help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "flashquery version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse parses command-line arguments (without the program name) and
// returns the command and args.
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "ask", "a":
		args.Query = strings.Join(positionals(remaining), " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "history", "hist", "h":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdHistory, args
	case "config", "cfg":
		if len(remaining) > 0 {
			args.Subcommand = strings.ToLower(remaining[0])
		}
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	default:
		// Unknown command: help reports it
		args.Subcommand = cmd
		return CmdHelp, args
	}
}

// positionals drops command-specific flags from a query.
func positionals(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--youtube" || a == "--format" || a == "--output":
			i++
		case strings.HasPrefix(a, "--"):
		default:
			out = append(out, a)
		}
	}
	return out
}

// parseGlobalFlags extracts global flags from args and returns the rest.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	value := func(i *int, name string) (string, bool) {
		arg := argv[*i]
		if v, ok := strings.CutPrefix(arg, name+"="); ok {
			return v, true
		}
		if arg == name && *i+1 < len(argv) {
			*i++
			return argv[*i], true
		}
		return "", false
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
			continue
		case "-v", "--verbose":
			args.Verbose = true
			continue
		case "--json":
			args.JSON = true
			continue
		case "--ephemeral":
			args.Ephemeral = true
			continue
		case "--no-color":
			args.NoColor = true
			continue
		}

		if v, ok := value(&i, "--config"); ok {
			args.ConfigPath = v
			continue
		}
		if v, ok := value(&i, "--base-url"); ok {
			args.BaseURL = v
			continue
		}
		if v, ok := value(&i, "--context-file"); ok {
			args.ContextFile = v
			continue
		}
		remaining = append(remaining, arg)
	}
	return remaining, args
}
