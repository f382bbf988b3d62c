// Package storage defines the persistence collaborators of the tracker: a
// key-value snapshot store and a flat file store for exports and backups.
package storage

import "time"

// KV persists named JSON snapshots.
type KV interface {
	// Get returns the value stored under key, or an error matching
	// apperr.ErrNotFound when the key is absent.
	Get(key string) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(key string, value []byte) error
	// PutMany stores every entry in one transaction.
	PutMany(entries map[string][]byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
	Close() error
}

// FileInfo describes one file in a Files store.
type FileInfo struct {
	Path      string
	Checksum  string
	Size      int64
	UpdatedAt time.Time
}

// Files is the interface for export, backup and inbox file operations.
// All paths are relative to the store root.
type Files interface {
	// List returns metadata for the regular files directly inside dir whose
	// name ends with one of exts (all files when exts is empty).
	List(dir string, exts ...string) ([]FileInfo, error)
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	Delete(path string) error
	// Move renames oldPath to newPath, creating parent directories.
	Move(oldPath, newPath string) error
}
