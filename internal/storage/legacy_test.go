// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flashquery-tui/internal/kvstore"
	"github.com/jeranaias/flashquery-tui/internal/model"
)

const flatLog = `[
	{"role": "user", "content": "first question"},
	{"role": "ai", "content": "first answer"},
	{"role": "ai", "content": "stray answer"},
	{"role": "user", "content": "unanswered"},
	{"role": "user", "content": "second question"},
	{"role": "assistant", "content": "second answer"},
	{"role": "system", "content": "ignored"},
	{"role": "user", "content": "trailing"}
]`

func TestLegacyImport_PairsBecomeConversations(t *testing.T) {
	kv := kvstore.NewMemoryStoreWithRaw(map[string]string{LegacyHistoryKey: flatLog})

	s, err := Open(kv, WithClock(fakeClock()))
	require.NoError(t, err)

	list := s.List()
	require.Len(t, list, 4)

	// Most recent first means the end of the log comes first
	want := []struct{ title, answer string }{
		{"trailing", LegacyOrphanReply},
		{"second question", "second answer"},
		{"unanswered", LegacyOrphanReply},
		{"first question", "first answer"},
	}
	for i, w := range want {
		conv, ok := s.Get(list[i].ID)
		require.True(t, ok)
		assert.Equal(t, w.title, conv.Title)

		turns := conv.Turns()
		require.Len(t, turns, 2, "no orphan user turns")
		assert.Equal(t, model.UserTurn(w.title), turns[0])
		assert.Equal(t, model.AssistantTurn(w.answer), turns[1])
	}
	assert.Equal(t, "legacy-1", list[3].ID)
}

func TestLegacyImport_RunsOnceAndLeavesFlatLog(t *testing.T) {
	kv := kvstore.NewMemoryStoreWithRaw(map[string]string{LegacyHistoryKey: flatLog})

	s, err := Open(kv, WithClock(fakeClock()))
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())
	assert.Equal(t, "true", kv.Raw(LegacyImportedKey))

	// Deleting an imported conversation must not bring it back on reopen
	require.NoError(t, s.Delete("legacy-1"))

	reopened, err := Open(kv)
	require.NoError(t, err)
	assert.Equal(t, 3, reopened.Len())

	assert.Equal(t, flatLog, kv.Raw(LegacyHistoryKey))
}

func TestLegacyImport_SortsBelowNewConversations(t *testing.T) {
	kv := kvstore.NewMemoryStoreWithRaw(map[string]string{LegacyHistoryKey: flatLog})
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	s, err := Open(kv, WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	id, err := s.StartOrContinue("", "fresh")
	require.NoError(t, err)
	assert.Equal(t, id, s.List()[0].ID)
}

func TestLegacyImport_FailedPersistSkipsMarker(t *testing.T) {
	kv := kvstore.NewMemoryStoreWithRaw(map[string]string{LegacyHistoryKey: flatLog})
	kv.FailSaves = true

	s, err := Open(kv)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, kv.Raw(LegacyImportedKey))

	kv.FailSaves = false
	s, err = Open(kv)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
}

func TestLegacyImport_CorruptOrMissingLog(t *testing.T) {
	for name, raw := range map[string]map[string]string{
		"missing": {},
		"corrupt": {LegacyHistoryKey: "not json"},
		"empty":   {LegacyHistoryKey: "[]"},
	} {
		kv := kvstore.NewMemoryStoreWithRaw(raw)
		s, err := Open(kv)
		require.NoError(t, err, name)
		assert.Equal(t, 0, s.Len(), name)
	}
}

func TestLegacyImport_KeepsExistingConversations(t *testing.T) {
	kv := kvstore.NewMemoryStoreWithRaw(map[string]string{
		ChatsKey:         `{"1700000000000": {"title": "kept", "messages": []}}`,
		LegacyHistoryKey: `[{"role": "user", "content": "q"}, {"role": "ai", "content": "a"}]`,
	})

	s, err := Open(kv)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	_, ok := s.Get("1700000000000")
	assert.True(t, ok)
}
