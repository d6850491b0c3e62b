// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"errors"
	"sync"
)

// MemoryStore holds encoded blobs in a map. Blobs are still JSON encoded so
// Load behaves exactly like the durable backends.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	// FailSaves makes every Save return ErrSaveFailed. Tests use it to
	// exercise rollback paths.
	FailSaves bool
}

// ErrSaveFailed is returned by a MemoryStore with FailSaves set.
var ErrSaveFailed = errors.New("kvstore: save failed")

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// NewMemoryStoreWithRaw returns a store preloaded with raw (possibly
// invalid) blobs.
func NewMemoryStoreWithRaw(raw map[string]string) *MemoryStore {
	s := NewMemoryStore()
	for k, v := range raw {
		s.blobs[k] = []byte(v)
	}
	return s
}

// Load implements Store.
func (s *MemoryStore) Load(key string, dst any) bool {
	s.mu.Lock()
	raw := s.blobs[key]
	s.mu.Unlock()
	return decodeInto(key, raw, dst)
}

// Save implements Store.
func (s *MemoryStore) Save(key string, v any) error {
	if s.FailSaves {
		return ErrSaveFailed
	}
	data, err := encode(key, v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// Raw returns the encoded blob for key, or "" when missing.
func (s *MemoryStore) Raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.blobs[key])
}
