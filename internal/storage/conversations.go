// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/flashquery-tui/internal/kvstore"
	"github.com/jeranaias/flashquery-tui/internal/model"
)

// =============================================================================
// SUMMARY TYPE
// =============================================================================

// Summary contains metadata for listing conversations.
type Summary struct {
	ID        string
	Title     string
	CreatedAt time.Time
	TurnCount int
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore owns every conversation and writes the full set through
// to the kv store after each mutation. It is safe for concurrent use.
type ConversationStore struct {
	mu    sync.Mutex
	kv    kvstore.Store
	convs map[string]*model.Conversation
	now   func() time.Time
}

// Option configures a ConversationStore.
type Option func(*ConversationStore)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *ConversationStore) {
		s.now = now
	}
}

// Open loads the conversations stored in kv. Missing or corrupt history
// yields an empty store. The legacy flat log is imported on first open.
func Open(kv kvstore.Store, opts ...Option) (*ConversationStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("storage: nil kv store")
	}

	s := &ConversationStore{
		kv:    kv,
		convs: make(map[string]*model.Conversation),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	records := make(map[string]chatRecord)
	if kv.Load(ChatsKey, &records) {
		for id, rec := range records {
			s.convs[id] = fromRecord(id, rec)
		}
	}

	s.importLegacy()

	slog.Debug("conversation store opened", "conversations", len(s.convs))
	return s, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// StartOrContinue returns activeID unchanged when it is non-empty.
// Otherwise it creates and persists a new conversation titled userText and
// returns its id.
func (s *ConversationStore) StartOrContinue(activeID, userText string) (string, error) {
	if activeID != "" {
		return activeID, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv := model.RestoreConversation(model.NewConversationID(), userText, s.now(), nil)
	s.convs[conv.ID] = conv
	if err := s.persistLocked(); err != nil {
		delete(s.convs, conv.ID)
		return "", err
	}

	slog.Info("conversation started", "id", conv.ID)
	return conv.ID, nil
}

// AppendTurnPair appends a user turn and its assistant reply to the
// conversation, then persists. On any error the store is unchanged.
func (s *ConversationStore) AppendTurnPair(id string, user, ai model.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return ErrConversationNotFound
	}

	before := conv.TurnCount()
	if err := conv.AppendPair(user, ai); err != nil {
		return err
	}
	if err := s.persistLocked(); err != nil {
		conv.TruncateTurns(before)
		return err
	}
	return nil
}

// Delete removes a conversation. Deleting an unknown id is a no-op.
func (s *ConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil
	}

	delete(s.convs, id)
	if err := s.persistLocked(); err != nil {
		s.convs[id] = conv
		return err
	}

	slog.Info("conversation deleted", "id", id)
	return nil
}

// Clear removes every conversation.
func (s *ConversationStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.convs
	s.convs = make(map[string]*model.Conversation)
	if err := s.persistLocked(); err != nil {
		s.convs = prev
		return err
	}

	slog.Info("conversation history cleared", "removed", len(prev))
	return nil
}

// =============================================================================
// QUERIES
// =============================================================================

// Get returns a copy of the conversation with the given id.
func (s *ConversationStore) Get(id string) (*model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// Len returns the number of conversations.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}

// List returns every conversation, most recently created first.
func (s *ConversationStore) List() []Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked(nil)
}

// Search returns conversations whose title or any turn contains query,
// ignoring case. An empty query matches everything.
func (s *ConversationStore) Search(query string) []Summary {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	if query == "" {
		return s.listLocked(nil)
	}
	return s.listLocked(func(c *model.Conversation) bool {
		if strings.Contains(strings.ToLower(c.Title), query) {
			return true
		}
		for _, t := range c.Turns() {
			if strings.Contains(strings.ToLower(t.Text), query) {
				return true
			}
		}
		return false
	})
}

// Resolve maps a user-supplied reference to a conversation id. The
// reference is either an id or a 1-based position in List.
func (s *ConversationStore) Resolve(ref string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[ref]; ok {
		return ref, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		list := s.listLocked(nil)
		if n >= 1 && n <= len(list) {
			return list[n-1].ID, nil
		}
	}
	return "", ErrConversationNotFound
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func (s *ConversationStore) listLocked(match func(*model.Conversation) bool) []Summary {
	out := make([]Summary, 0, len(s.convs))
	for _, c := range s.convs {
		if match != nil && !match(c) {
			continue
		}
		out = append(out, Summary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			TurnCount: c.TurnCount(),
		})
	}
	sortSummaries(out)
	return out
}

// sortSummaries orders most recent first, breaking ties by id descending.
func sortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
}

// persistLocked writes the full set of conversations under ChatsKey.
func (s *ConversationStore) persistLocked() error {
	records := make(map[string]chatRecord, len(s.convs))
	for id, c := range s.convs {
		records[id] = toRecord(c)
	}
	if err := s.kv.Save(ChatsKey, records); err != nil {
		slog.Error("failed to persist conversations", "error", err)
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrConversationNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrConversationNotFound) to check for this error.
var ErrConversationNotFound = &ConversationError{Message: "conversation not found"}

// ErrInvalidTurnPair is returned when a pair is not user then assistant.
var ErrInvalidTurnPair = model.ErrInvalidTurnPair

// ConversationError represents a conversation-related error.
// It implements the error interface and can be compared using errors.Is.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}
