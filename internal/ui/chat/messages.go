// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/contextwatch"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
)

// =============================================================================
// REQUEST MESSAGES
// =============================================================================

// ReplyMsg delivers a finished exchange back to the event loop, where it
// is committed to the store.
type ReplyMsg struct {
	Ticket int
	Reply  dispatch.Reply
}

// UploadDoneMsg reports the outcome of /upload.
type UploadDoneMsg struct {
	Source string
	Text   string
	Err    error
}

// =============================================================================
// BACKEND STATUS
// =============================================================================

// BackendStatusMsg carries the result of the startup reachability check.
type BackendStatusMsg struct {
	Info *backend.ServiceInfo
	Err  error
}

// =============================================================================
// CONTEXT FILE
// =============================================================================

// ContextUpdateMsg forwards a change of the watched context file.
type ContextUpdateMsg struct {
	Update contextwatch.Update
}

// contextClosedMsg is sent once the watcher channel closes.
type contextClosedMsg struct{}

// =============================================================================
// STATUS LINE
// =============================================================================

// StatusMsg replaces the status line text.
type StatusMsg struct {
	Text  string
	Error bool
}
