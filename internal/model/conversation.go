// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidTurnPair is returned when a pair is not user-then-assistant.
var ErrInvalidTurnPair = errors.New("turn pair must be a user turn followed by an assistant turn")

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, ordered sequence of turns.
type Conversation struct {
	// ID is opaque and stable for the lifetime of the conversation.
	ID string

	// Title is taken from the first user turn and never changes.
	Title string

	// CreatedAt orders conversations in listings (most recent first).
	CreatedAt time.Time

	turns []Turn
}

// NewConversation creates an empty conversation with a fresh ID.
func NewConversation(title string) *Conversation {
	return &Conversation{
		ID:        NewConversationID(),
		Title:     title,
		CreatedAt: time.Now(),
	}
}

// RestoreConversation rebuilds a conversation from persisted fields. The
// turns are copied.
func RestoreConversation(id, title string, createdAt time.Time, turns []Turn) *Conversation {
	return &Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: createdAt,
		turns:     append([]Turn(nil), turns...),
	}
}

// NewConversationID mints a UUIDv7. The leading 48 bits are Unix
// milliseconds and the following bits are a per-process monotonic
// sequence, so IDs minted within the same millisecond never collide.
func NewConversationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// =============================================================================
// TURN MANAGEMENT
// =============================================================================

// AppendPair appends a user turn and its assistant reply, in that order.
// Nothing is appended when the pair is malformed.
func (c *Conversation) AppendPair(user, assistant Turn) error {
	if user.Role != RoleUser || assistant.Role != RoleAssistant {
		return ErrInvalidTurnPair
	}
	c.turns = append(c.turns, user, assistant)
	return nil
}

// TruncateTurns drops turns beyond n. Used to roll back a failed append.
func (c *Conversation) TruncateTurns(n int) {
	if n >= 0 && n < len(c.turns) {
		c.turns = c.turns[:n]
	}
}

// Turns returns a copy of the turns in arrival order.
func (c *Conversation) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

// TurnCount returns the number of turns.
func (c *Conversation) TurnCount() int {
	return len(c.turns)
}

// IsEmpty returns true if there are no turns.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}

// LastTurn returns the most recent turn and false when empty.
func (c *Conversation) LastTurn() (Turn, bool) {
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// Clone returns a deep copy so callers can read without racing the store.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	return RestoreConversation(c.ID, c.Title, c.CreatedAt, c.turns)
}
