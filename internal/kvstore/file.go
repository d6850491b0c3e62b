// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package kvstore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeranaias/flashquery-tui/internal/util"
)

// FileStore keeps each key in its own JSON file under BaseDir.
type FileStore struct {
	BaseDir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &FileStore{BaseDir: dir}, nil
}

// Load implements Store.
func (s *FileStore) Load(key string, dst any) bool {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to read blob", "key", key, "error", err)
		}
		return false
	}
	return decodeInto(key, data, dst)
}

// Save implements Store.
func (s *FileStore) Save(key string, v any) error {
	data, err := encode(key, v)
	if err != nil {
		return err
	}
	if err := util.AtomicWriteFile(s.filePath(key), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	if err := os.Remove(s.filePath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// filePath maps a key to its file. Path separators in keys are flattened so
// a key can never escape BaseDir.
func (s *FileStore) filePath(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.BaseDir, safe+".json")
}
