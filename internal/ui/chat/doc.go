// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the root Bubble Tea model for the FlashQuery TUI.

# Key Components

## Model (model.go)

The Model composes the conversation sidebar, the transcript and a one-line
input around a session.Session:
  - Enter sends the input line; whitespace-only input is ignored
  - Tab moves focus between the input and the sidebar
  - Ctrl+N starts a new conversation

Exchanges run inside a tea.Cmd so the event loop never blocks on the
network. The finished reply comes back as a ReplyMsg and is committed to
the store from Update, into whichever conversation is active at that
moment. After every commit the sidebar and transcript are re-rendered
from the store.

## Commands (commands.go)

Slash commands are dispatched through a handler registry:
  - /youtube <url> summarizes a video
  - /upload <path> attaches a document as context for following questions
  - /context, /search, /delete, /new, /help, /quit
  - /math, /research and /ask only change the header subtitle

## View (view.go)

Header with backend status, sidebar and transcript side by side, the input
box and a status bar with the attached context and pending request count.
*/
package chat
