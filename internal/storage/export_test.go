// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flashquery-tui/internal/model"
)

func exportFixture() *model.Conversation {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	conv := model.RestoreConversation("abc", "What is 2+2?", created, nil)
	_ = conv.AppendPair(model.UserTurn("What is 2+2?"), model.AssistantTurn("4"))
	return conv
}

func TestExportJSON(t *testing.T) {
	data, err := ExportJSON(exportFixture())
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "abc", doc["id"])
	assert.Equal(t, "What is 2+2?", doc["title"])
	assert.Equal(t, "2025-03-04T05:06:07Z", doc["created_at"])
	assert.Len(t, doc["messages"], 2)
}

func TestExportMarkdown(t *testing.T) {
	md := ExportMarkdown(exportFixture())

	assert.True(t, strings.HasPrefix(md, "# What is 2+2?\n"))
	assert.Contains(t, md, "**You**:\n\nWhat is 2+2?")
	assert.Contains(t, md, "**FlashQuery**:\n\n4")
}

func TestExportText(t *testing.T) {
	assert.Equal(t, "You: What is 2+2?\n\nFlashQuery: 4\n", ExportText(exportFixture()))
}

func TestFormatList(t *testing.T) {
	assert.Equal(t, "No conversations found.", FormatList(nil))

	out := FormatList([]Summary{
		{ID: "newer", Title: "second\nline", CreatedAt: time.Now(), TurnCount: 4},
		{ID: "older", Title: strings.Repeat("x", 50), TurnCount: 2},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[2], "1    newer"))
	assert.Contains(t, lines[2], "second line")
	assert.True(t, strings.HasPrefix(lines[3], "2    older"))
	assert.Contains(t, lines[3], strings.Repeat("x", 27)+"...")
}
