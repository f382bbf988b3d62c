// Package testutil provides shared test helpers for stores and clocks.
package testutil

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/lapse/internal/storage"
)

// TestKV creates a temporary SQLite KV store that is closed on cleanup.
func TestKV(t *testing.T) *storage.SQLite {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "lapse-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestFiles creates a temporary data directory with a storage.FS.
func TestFiles(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set to t.
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Recorder collects change events and notices.
type Recorder struct {
	mu      sync.Mutex
	Changes []string
	Notices []string
}

// PublishChange records kind and id as "kind:id".
func (r *Recorder) PublishChange(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Changes = append(r.Changes, kind+":"+id)
}

// PublishNotice records message.
func (r *Recorder) PublishNotice(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Notices = append(r.Notices, message)
}

// Snapshot returns copies of the recorded changes and notices.
func (r *Recorder) Snapshot() (changes, notices []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.Changes...), append([]string(nil), r.Notices...)
}
