// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kvstore is the only gateway to durable storage: a synchronous
// store of string-keyed JSON blobs.
//
// Load never fails. A missing key, an unreadable blob or a blob that does
// not parse into the destination all report false and leave the
// destination untouched, so corrupt history can never crash the caller.
//
// # Backends
//
//   - file:   one <key>.json per key, written atomically
//   - bolt:   a single bbolt database file
//   - sqlite: a single SQLite database with a kv table
//   - memory: process memory only
package kvstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"reflect"
)

// Store reads and writes JSON blobs by key.
type Store interface {
	// Load decodes the blob stored under key into dst, which must be a
	// non-nil pointer. It returns false, leaving dst unchanged, when the
	// key is missing or the blob cannot be decoded.
	Load(key string, dst any) bool

	// Save encodes v as JSON and replaces the blob stored under key.
	Save(key string, v any) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error

	// Close releases any underlying handles.
	Close() error
}

// Open returns the backend named by backend, rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch backend {
	case "", "file":
		return NewFileStore(dir)
	case "bolt":
		return NewBoltStore(filepath.Join(dir, "flashquery.bolt"))
	case "sqlite":
		return NewSQLiteStore(filepath.Join(dir, "flashquery.db"))
	case "memory":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown storage backend: %q", backend)
}

// decodeInto unmarshals raw into a fresh value of dst's element type and
// assigns it only on success.
func decodeInto(key string, raw []byte, dst any) bool {
	if len(raw) == 0 {
		return false
	}

	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		slog.Error("kvstore load with non-pointer destination", "key", key)
		return false
	}

	fresh := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		slog.Warn("discarding unreadable blob", "key", key, "error", err)
		return false
	}
	rv.Elem().Set(fresh.Elem())
	return true
}

// encode marshals v for storage.
func encode(key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q: %w", key, err)
	}
	return data, nil
}
