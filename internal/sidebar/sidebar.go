// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sidebar projects the conversation list into display entries and
// renders it as a selectable Bubble Tea list.
//
// The projection is a pure function of the store's List output, so the
// sidebar never holds state that can drift from storage: after every
// mutation the caller re-projects and calls SetEntries.
package sidebar

import (
	"time"

	"github.com/jeranaias/flashquery-tui/internal/storage"
	"github.com/jeranaias/flashquery-tui/internal/util"
)

// DefaultTitleRunes is the display bound for conversation titles.
const DefaultTitleRunes = 40

// Entry is one row of the sidebar.
type Entry struct {
	ID string

	// Title is the display title, cut to the configured bound.
	Title string

	// FullTitle is the stored title, untouched.
	FullTitle string

	CreatedAt time.Time
	Turns     int
}

// Project maps summaries, already ordered most recent first, to entries.
// Titles longer than maxTitle characters are cut without an ellipsis. A
// non-positive maxTitle uses DefaultTitleRunes.
func Project(list []storage.Summary, maxTitle int) []Entry {
	if maxTitle <= 0 {
		maxTitle = DefaultTitleRunes
	}

	entries := make([]Entry, 0, len(list))
	for _, s := range list {
		entries = append(entries, Entry{
			ID:        s.ID,
			Title:     util.PrefixRunes(s.Title, maxTitle),
			FullTitle: s.Title,
			CreatedAt: s.CreatedAt,
			Turns:     s.TurnCount,
		})
	}
	return entries
}
