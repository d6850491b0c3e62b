// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/model"
)

// Keys in the kv store.
const (
	// ChatsKey holds every conversation as one JSON object keyed by id.
	ChatsKey = "flashQueryChats"

	// LegacyHistoryKey is the flat message log written by older clients.
	LegacyHistoryKey = "flashquery_history"

	// LegacyImportedKey marks that the flat log has been imported.
	LegacyImportedKey = "flashquery_history_imported"
)

// =============================================================================
// PERSISTED SHAPE
// =============================================================================

// chatRecord is one conversation as persisted under ChatsKey.
type chatRecord struct {
	Title     string       `json:"title"`
	CreatedAt int64        `json:"created_at,omitempty"` // Unix milliseconds
	Messages  []turnRecord `json:"messages"`
}

// turnRecord is one persisted message.
type turnRecord struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// legacyEntry is one element of the flat legacy log.
type legacyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toRecord(c *model.Conversation) chatRecord {
	turns := c.Turns()
	rec := chatRecord{
		Title:    c.Title,
		Messages: make([]turnRecord, 0, len(turns)),
	}
	if !c.CreatedAt.IsZero() {
		rec.CreatedAt = c.CreatedAt.UnixMilli()
	}
	for _, t := range turns {
		rec.Messages = append(rec.Messages, turnRecord{Role: string(t.Role), Text: t.Text})
	}
	return rec
}

// fromRecord rebuilds a conversation. Messages with an unknown role are
// dropped and logged rather than failing the whole load.
func fromRecord(id string, rec chatRecord) *model.Conversation {
	turns := make([]model.Turn, 0, len(rec.Messages))
	for _, m := range rec.Messages {
		role, ok := model.ParseRole(m.Role)
		if !ok {
			slog.Warn("dropping message with unknown role", "conversation", id, "role", m.Role)
			continue
		}
		turns = append(turns, model.Turn{Role: role, Text: m.Text})
	}
	return model.RestoreConversation(id, rec.Title, createdAt(id, rec.CreatedAt), turns)
}

// createdAt resolves the creation time of a persisted record. Records
// written before created_at existed used the creation time in Unix
// milliseconds as their id.
func createdAt(id string, ms int64) time.Time {
	if ms > 0 {
		return time.UnixMilli(ms)
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil && n > 0 {
		return time.UnixMilli(n)
	}
	return time.Time{}
}
