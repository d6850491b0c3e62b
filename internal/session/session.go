// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/model"
	"github.com/jeranaias/flashquery-tui/internal/storage"
)

// =============================================================================
// SESSION
// =============================================================================

// Session tracks the active conversation and the pending document context.
type Session struct {
	mu sync.Mutex

	store *storage.ConversationStore
	disp  *dispatch.Dispatcher

	activeID      string
	pending       string
	pendingSource string
}

// New creates a session with nothing selected.
func New(store *storage.ConversationStore, disp *dispatch.Dispatcher) *Session {
	return &Session{
		store: store,
		disp:  disp,
	}
}

// Store returns the conversation store.
func (s *Session) Store() *storage.ConversationStore {
	return s.store
}

// Dispatcher returns the request dispatcher.
func (s *Session) Dispatcher() *dispatch.Dispatcher {
	return s.disp
}

// =============================================================================
// ACTIVE SELECTION
// =============================================================================

// ActiveID returns the active conversation id, or "" for a fresh chat.
func (s *Session) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a copy of the active conversation, or nil.
func (s *Session) Active() *model.Conversation {
	id := s.ActiveID()
	if id == "" {
		return nil
	}
	conv, _ := s.store.Get(id)
	return conv
}

// Select makes id the active conversation and returns it. An unknown id
// clears the selection and returns nil so the transcript shows empty.
func (s *Session) Select(id string) *model.Conversation {
	conv, ok := s.store.Get(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !ok {
		s.activeID = ""
		return nil
	}
	s.activeID = id
	return conv
}

// NewConversation clears the selection. The next send starts a new
// conversation.
func (s *Session) NewConversation() {
	s.mu.Lock()
	s.activeID = ""
	s.mu.Unlock()
}

// Delete removes a conversation. It reports whether the deleted
// conversation was the active one, in which case the selection is cleared.
// Deleting any other conversation leaves the selection alone.
func (s *Session) Delete(id string) (bool, error) {
	if err := s.store.Delete(id); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && id == s.activeID {
		s.activeID = ""
		return true, nil
	}
	return false, nil
}

// =============================================================================
// PENDING CONTEXT
// =============================================================================

// PendingContext returns the text attached to outgoing questions.
func (s *Session) PendingContext() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// PendingSource describes where the pending context came from.
func (s *Session) PendingSource() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingSource
}

// SetPendingContext attaches text to every following question until it
// is replaced or cleared.
func (s *Session) SetPendingContext(text, source string) {
	s.mu.Lock()
	s.pending = text
	s.pendingSource = source
	s.mu.Unlock()

	slog.Info("pending context set", "source", source, "chars", len(text))
}

// ClearPendingContext detaches any document context.
func (s *Session) ClearPendingContext() {
	s.SetPendingContext("", "")
}

// =============================================================================
// SENDING
// =============================================================================

// Commit stores a reply in the active conversation, starting one when
// nothing is selected, and makes that conversation active.
func (s *Session) Commit(r dispatch.Reply) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.disp.Commit(s.activeID, r)
	if err != nil {
		slog.Error("commit failed", "seq", r.Seq, "error", err)
		return s.activeID, err
	}
	s.activeID = id
	return id, nil
}

// Send exchanges one question and commits it, for callers without an
// event loop.
func (s *Session) Send(ctx context.Context, text string) (dispatch.Reply, error) {
	text, ok := s.disp.Validate(text)
	if !ok {
		return dispatch.Reply{}, dispatch.ErrEmptyInput
	}

	r := s.disp.Exchange(ctx, text, s.PendingContext())
	_, err := s.Commit(r)
	return r, err
}

// Summarize requests a video summary and commits it.
func (s *Session) Summarize(ctx context.Context, url string) (dispatch.Reply, error) {
	url, ok := s.disp.Validate(url)
	if !ok {
		return dispatch.Reply{}, dispatch.ErrEmptyInput
	}

	r := s.disp.Summarize(ctx, url)
	_, err := s.Commit(r)
	return r, err
}
