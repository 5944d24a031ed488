// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/alit-chat/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists each key as a JSON blob file inside BaseDir.
// Default directory: ~/.alit/state/
type FileStore struct {
	mu sync.Mutex

	// BaseDir is the directory holding the blob files.
	BaseDir string
}

// NewFileStore creates a file store under the user's home directory.
func NewFileStore() (*FileStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewFileStoreWithDir(filepath.Join(homeDir, ".alit", "state"))
}

// NewFileStoreWithDir creates a file store with a custom directory.
func NewFileStoreWithDir(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	return &FileStore{BaseDir: baseDir}, nil
}

// Get reads the blob for key, or found=false if the file does not exist.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set writes the blob for key atomically with owner-only permissions.
// The session blob carries a credential token, so 0600 is required.
func (s *FileStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return util.AtomicWriteFile(s.path(key), value, 0600)
}

// Delete removes the blob file for key. A missing file is not an error.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

// path maps a key to its blob file, rejecting path separators so a key can
// never escape BaseDir.
func (s *FileStore) path(key string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '.':
			return '_'
		}
		return r
	}, key)
	return filepath.Join(s.BaseDir, fmt.Sprintf("%s.json", safe))
}
