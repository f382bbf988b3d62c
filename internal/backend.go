package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/lapse/internal/storage"
	"github.com/starford/lapse/internal/tracker"
)

// NewLogger builds the structured JSON logger used by every command.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Backend is the opened storage and the tracker service on top of it.
type Backend struct {
	KV      *storage.SQLite
	Files   *storage.FS
	Tracker *tracker.Service
}

// OpenBackend opens the snapshot database and data directory and loads the
// tracker state. notifier may be nil.
func OpenBackend(ctx context.Context, cfg *Config, logger *slog.Logger, notifier tracker.Notifier) (*Backend, error) {
	if dir := filepath.Dir(cfg.Storage.SQLitePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	kv, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	files, err := storage.NewFS(cfg.Storage.DataDir)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("init data dir: %w", err)
	}

	opts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithRetention(cfg.Tracker.RetentionCap),
		tracker.WithFiles(files, cfg.Storage.BackupDir),
		tracker.WithDefaults(cfg.Tracker.ItemsPerPage, cfg.Tracker.ReminderDays),
	}
	if notifier != nil {
		opts = append(opts, tracker.WithNotifier(notifier))
	}
	svc := tracker.New(kv, opts...)
	if err := svc.Load(ctx); err != nil {
		kv.Close()
		return nil, fmt.Errorf("load state: %w", err)
	}
	return &Backend{KV: kv, Files: files, Tracker: svc}, nil
}

// Close releases the snapshot database.
func (b *Backend) Close() error {
	return b.KV.Close()
}
