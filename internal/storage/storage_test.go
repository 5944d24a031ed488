// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"path/filepath"
	"testing"
)

// kvBackends returns one instance of every backend, each rooted in a
// throwaway directory.
func kvBackends(t *testing.T) map[string]KV {
	t.Helper()

	fileStore, err := NewFileStoreWithDir(filepath.Join(t.TempDir(), "state"))
	if err != nil {
		t.Fatalf("NewFileStoreWithDir() error = %v", err)
	}

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}

	return map[string]KV{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": sqliteStore,
	}
}

func TestKV_SetGetDelete(t *testing.T) {
	for name, kv := range kvBackends(t) {
		t.Run(name, func(t *testing.T) {
			defer kv.Close()

			// Missing key: found=false, no error.
			if _, found, err := kv.Get("user"); err != nil || found {
				t.Fatalf("Get(missing) = found=%v err=%v, want found=false err=nil", found, err)
			}

			if err := kv.Set("user", []byte(`{"username":"alice"}`)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			data, found, err := kv.Get("user")
			if err != nil || !found {
				t.Fatalf("Get() = found=%v err=%v, want found=true err=nil", found, err)
			}
			if string(data) != `{"username":"alice"}` {
				t.Errorf("Get() = %q, want stored blob", data)
			}

			// Overwrite replaces.
			if err := kv.Set("user", []byte(`{"username":"bob"}`)); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}
			data, _, _ = kv.Get("user")
			if string(data) != `{"username":"bob"}` {
				t.Errorf("Get() after overwrite = %q", data)
			}

			if err := kv.Delete("user"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, found, _ := kv.Get("user"); found {
				t.Error("Get() after Delete() still found")
			}

			// Deleting a missing key is not an error.
			if err := kv.Delete("user"); err != nil {
				t.Errorf("Delete(missing) error = %v", err)
			}
		})
	}
}

func TestFileStore_KeySanitization(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	store, err := NewFileStoreWithDir(dir)
	if err != nil {
		t.Fatalf("NewFileStoreWithDir() error = %v", err)
	}

	// A hostile key must not escape the base directory.
	if err := store.Set("../../etc/passwd", []byte("x")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	data, found, err := store.Get("../../etc/passwd")
	if err != nil || !found || string(data) != "x" {
		t.Errorf("round-trip of sanitized key failed: found=%v err=%v data=%q", found, err, data)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Set("user", []byte("blob")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	store.Close()

	// Data survives a reopen.
	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer store.Close()

	data, found, err := store.Get("user")
	if err != nil || !found || string(data) != "blob" {
		t.Errorf("Get() after reopen = found=%v err=%v data=%q", found, err, data)
	}
}
