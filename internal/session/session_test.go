// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/flashquery-tui/internal/backend"
	"github.com/jeranaias/flashquery-tui/internal/dispatch"
	"github.com/jeranaias/flashquery-tui/internal/kvstore"
	"github.com/jeranaias/flashquery-tui/internal/storage"
)

type stubBackend struct {
	answer   string
	err      error
	contexts []string
}

func (b *stubBackend) Ask(ctx context.Context, question, docContext string) (*backend.AskResponse, error) {
	b.contexts = append(b.contexts, docContext)
	if b.err != nil {
		return nil, b.err
	}
	return &backend.AskResponse{Answer: b.answer}, nil
}

func (b *stubBackend) SummarizeVideo(ctx context.Context, url string) (*backend.YouTubeResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &backend.YouTubeResponse{Summary: "summary of " + url}, nil
}

func newTestSession(t *testing.T, b *stubBackend) *Session {
	t.Helper()
	store, err := storage.Open(kvstore.NewMemoryStore())
	require.NoError(t, err)
	return New(store, dispatch.New(b, store, dispatch.WithMinDelay(0)))
}

// =============================================================================
// SELECTION
// =============================================================================

func TestSession_SendStartsAndContinues(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "4"})
	assert.Equal(t, "", s.ActiveID())
	assert.Nil(t, s.Active())

	_, err := s.Send(context.Background(), "What is 2+2?")
	require.NoError(t, err)
	id := s.ActiveID()
	require.NotEmpty(t, id)

	_, err = s.Send(context.Background(), "And 3+3?")
	require.NoError(t, err)
	assert.Equal(t, id, s.ActiveID())
	assert.Equal(t, 4, s.Active().TurnCount())
}

func TestSession_SendEmptyInput(t *testing.T) {
	b := &stubBackend{answer: "unused"}
	s := newTestSession(t, b)

	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, dispatch.ErrEmptyInput)
	assert.Empty(t, b.contexts, "no request made")
	assert.Equal(t, 0, s.Store().Len())
}

func TestSession_NewConversation(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "first")

	s.NewConversation()
	assert.Equal(t, "", s.ActiveID())

	_, _ = s.Send(context.Background(), "second")
	assert.Equal(t, 2, s.Store().Len())
}

func TestSession_SelectUnknownClears(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "q")

	conv := s.Select("missing")
	assert.Nil(t, conv)
	assert.Equal(t, "", s.ActiveID())
}

func TestSession_SelectLoadsConversation(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "first")
	first := s.ActiveID()
	s.NewConversation()
	_, _ = s.Send(context.Background(), "second")

	conv := s.Select(first)
	require.NotNil(t, conv)
	assert.Equal(t, "first", conv.Title)
	assert.Equal(t, first, s.ActiveID())
}

// =============================================================================
// DELETE COORDINATION
// =============================================================================

func TestSession_DeleteNonActiveKeepsSelection(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "other")
	other := s.ActiveID()
	s.NewConversation()
	_, _ = s.Send(context.Background(), "active")
	active := s.ActiveID()
	before := s.Active().Turns()

	cleared, err := s.Delete(other)
	require.NoError(t, err)
	assert.False(t, cleared)
	assert.Equal(t, active, s.ActiveID())
	assert.Equal(t, before, s.Active().Turns())
}

func TestSession_DeleteActiveClears(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "other")
	s.NewConversation()
	_, _ = s.Send(context.Background(), "active")
	active := s.ActiveID()

	cleared, err := s.Delete(active)
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Equal(t, "", s.ActiveID())
	assert.Nil(t, s.Active())
	assert.Equal(t, 1, s.Store().Len())

	// Loading the deleted id yields an empty transcript, not an error
	assert.Nil(t, s.Select(active))
}

func TestSession_DeleteThenSendStartsFresh(t *testing.T) {
	s := newTestSession(t, &stubBackend{answer: "a"})
	_, _ = s.Send(context.Background(), "doomed")
	_, _ = s.Delete(s.ActiveID())

	_, err := s.Send(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", s.Active().Title)
}

// =============================================================================
// PENDING CONTEXT AND FAILURES
// =============================================================================

func TestSession_PendingContextAttachedUntilCleared(t *testing.T) {
	b := &stubBackend{answer: "a"}
	s := newTestSession(t, b)

	s.SetPendingContext("chapter one", "notes.pdf")
	assert.Equal(t, "notes.pdf", s.PendingSource())

	_, _ = s.Send(context.Background(), "q1")
	_, _ = s.Send(context.Background(), "q2")
	s.ClearPendingContext()
	_, _ = s.Send(context.Background(), "q3")

	assert.Equal(t, []string{"chapter one", "chapter one", ""}, b.contexts)
	assert.Equal(t, "", s.PendingSource())
}

func TestSession_BackendFailureStillCommitsPair(t *testing.T) {
	s := newTestSession(t, &stubBackend{err: errors.New("down")})

	r, err := s.Send(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, dispatch.FallbackError, r.Answer)
	assert.Equal(t, 2, s.Active().TurnCount())
}

func TestSession_Summarize(t *testing.T) {
	s := newTestSession(t, &stubBackend{})

	r, err := s.Summarize(context.Background(), " https://youtu.be/x ")
	require.NoError(t, err)
	assert.Equal(t, "summary of https://youtu.be/x", r.Answer)
	assert.Equal(t, dispatch.VideoPrompt+"https://youtu.be/x", s.Active().Title)

	_, err = s.Summarize(context.Background(), "")
	assert.ErrorIs(t, err, dispatch.ErrEmptyInput)
}
