// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/model"
	"github.com/jeranaias/flashquery-tui/internal/util"
)

// =============================================================================
// CONVERSATION LIST FORMATTING
// =============================================================================

// FormatList formats summaries as a table: position, id, creation time,
// turn count and title. Positions are the 1-based references accepted by
// Resolve.
func FormatList(list []Summary) string {
	if len(list) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	sb.WriteString(util.PadRight("#", 4) + " " +
		util.PadRight("ID", 14) + " " +
		util.PadRight("Created", 17) + " " +
		util.PadRight("Turns", 6) + " Title\n")
	sb.WriteString(strings.Repeat("-", 72) + "\n")

	for i, s := range list {
		created := "-"
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Local().Format("2006-01-02 15:04")
		}
		sb.WriteString(util.PadRight(strconv.Itoa(i+1), 4) + " " +
			util.PadRight(util.TruncateRunes(s.ID, 14), 14) + " " +
			util.PadRight(created, 17) + " " +
			util.PadRight(strconv.Itoa(s.TurnCount), 6) + " " +
			util.TruncateRunes(util.SingleLine(s.Title), 30) + "\n")
	}
	return sb.String()
}

// =============================================================================
// CONVERSATION EXPORT
// =============================================================================

// exportDoc is the JSON export shape.
type exportDoc struct {
	ID        string       `json:"id"`
	Title     string       `json:"title"`
	CreatedAt string       `json:"created_at,omitempty"`
	Messages  []turnRecord `json:"messages"`
}

// ExportJSON exports the conversation as pretty-printed JSON.
func ExportJSON(c *model.Conversation) ([]byte, error) {
	rec := toRecord(c)
	doc := exportDoc{
		ID:       c.ID,
		Title:    c.Title,
		Messages: rec.Messages,
	}
	if !c.CreatedAt.IsZero() {
		doc.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// ExportMarkdown exports the conversation as Markdown with role headings.
func ExportMarkdown(c *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("# " + util.SingleLine(c.Title) + "\n\n")
	if !c.CreatedAt.IsZero() {
		sb.WriteString("Created: " + c.CreatedAt.Format(time.RFC3339) + "\n\n")
	}
	sb.WriteString("---\n\n")

	for _, t := range c.Turns() {
		sb.WriteString("**" + t.Role.DisplayName() + "**:\n\n")
		sb.WriteString(t.Text)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportText exports the conversation as plain "Name: text" lines.
func ExportText(c *model.Conversation) string {
	var sb strings.Builder
	for i, t := range c.Turns() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Role.DisplayName() + ": " + t.Text + "\n")
	}
	return sb.String()
}
