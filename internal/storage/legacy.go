// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/model"
)

// LegacyOrphanReply answers a legacy question that never got a reply.
const LegacyOrphanReply = "Sorry, I couldn't understand that."

// importLegacy converts the flat legacy log into conversations, once.
// Failures are logged and leave the store as it was; the marker is only
// written after the imported conversations are durable.
func (s *ConversationStore) importLegacy() {
	var imported bool
	if s.kv.Load(LegacyImportedKey, &imported) && imported {
		return
	}

	var entries []legacyEntry
	if !s.kv.Load(LegacyHistoryKey, &entries) {
		return
	}

	convs := legacyConversations(entries, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]string, 0, len(convs))
	for _, c := range convs {
		if _, exists := s.convs[c.ID]; exists {
			continue
		}
		s.convs[c.ID] = c
		added = append(added, c.ID)
	}

	if len(added) > 0 {
		if err := s.persistLocked(); err != nil {
			for _, id := range added {
				delete(s.convs, id)
			}
			slog.Warn("legacy history import failed", "error", err)
			return
		}
	}

	if err := s.kv.Save(LegacyImportedKey, true); err != nil {
		slog.Warn("failed to mark legacy history imported", "error", err)
		return
	}
	slog.Info("legacy history imported", "entries", len(entries), "conversations", len(added))
}

// legacyConversations pairs each user entry with the assistant entry that
// follows it. Assistant entries with no preceding question are skipped and
// a question with no answer gets LegacyOrphanReply. Creation times count
// back from importTime so the log's order is preserved and every imported
// conversation sorts below new ones.
func legacyConversations(entries []legacyEntry, importTime time.Time) []*model.Conversation {
	type pair struct{ question, answer string }

	var pairs []pair
	var pending *string

	flush := func(answer string) {
		pairs = append(pairs, pair{question: *pending, answer: answer})
		pending = nil
	}

	for i := range entries {
		role, ok := model.ParseRole(entries[i].Role)
		if !ok {
			continue
		}
		switch role {
		case model.RoleUser:
			if pending != nil {
				flush(LegacyOrphanReply)
			}
			q := entries[i].Content
			pending = &q
		case model.RoleAssistant:
			if pending != nil {
				flush(entries[i].Content)
			}
		}
	}
	if pending != nil {
		flush(LegacyOrphanReply)
	}

	out := make([]*model.Conversation, 0, len(pairs))
	for i, p := range pairs {
		created := importTime.Add(-time.Duration(len(pairs)-i) * time.Millisecond)
		conv := model.RestoreConversation(fmt.Sprintf("legacy-%d", i+1), p.question, created, nil)
		_ = conv.AppendPair(model.UserTurn(p.question), model.AssistantTurn(p.answer))
		out = append(out, conv)
	}
	return out
}
