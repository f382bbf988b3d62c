// Package inbox imports export documents dropped into a watched directory.
// Each file is imported once, then moved to processed/ or failed/.
package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/metrics"
	"github.com/starford/lapse/internal/storage"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	defaultDebounce = 200 * time.Millisecond
)

// Extensions accepted by the inbox.
var Extensions = []string{".json", ".yaml", ".yml"}

// Importer applies an import document.
type Importer interface {
	Import(ctx context.Context, data []byte, mode lifecycle.ImportMode) (lifecycle.ImportResult, error)
}

// EventCallback is called after a file was handled. outcome is "imported" or
// "failed"; path is the file's original path relative to the store root.
type EventCallback func(outcome, path string)

// Inbox watches Dir (relative to the Files root) for import documents.
type Inbox struct {
	Files    storage.Files
	Root     string // absolute path of the Files root
	Dir      string
	Mode     lifecycle.ImportMode
	Importer Importer
	Logger   *slog.Logger
	OnEvent  EventCallback
	Debounce time.Duration
	Now      func() time.Time
}

func (in *Inbox) logger() *slog.Logger {
	if in.Logger == nil {
		return slog.Default()
	}
	return in.Logger
}

func (in *Inbox) now() time.Time {
	if in.Now == nil {
		return time.Now()
	}
	return in.Now()
}

// Scan imports every document already waiting in the inbox, in name order.
func (in *Inbox) Scan(ctx context.Context) error {
	files, err := in.Files.List(in.Dir, Extensions...)
	if err != nil {
		return fmt.Errorf("inbox: scan: %w", err)
	}
	for _, f := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		in.Process(ctx, f.Path)
	}
	return nil
}

// Process imports one file and moves it out of the inbox.
func (in *Inbox) Process(ctx context.Context, rel string) {
	logger := in.logger()
	data, err := in.Files.Read(rel)
	if err != nil {
		// Already moved by an earlier event for the same file.
		logger.Debug("inbox: read skipped", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}

	outcome, target := "imported", ProcessedDir
	res, err := in.Importer.Import(ctx, data, in.Mode)
	if err != nil {
		outcome, target = "failed", FailedDir
		logger.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
	} else {
		logger.Info("inbox: imported",
			slog.String("path", rel),
			slog.Int("items", res.Items),
			slog.Int("new_items", res.NewItems),
		)
	}
	metrics.InboxImports.WithLabelValues(outcome).Inc()

	dest := path.Join(in.Dir, target, in.now().UTC().Format("20060102-150405")+"-"+path.Base(rel))
	if mvErr := in.Files.Move(rel, dest); mvErr != nil {
		logger.Error("inbox: move failed", slog.String("path", rel), slog.String("error", mvErr.Error()))
	}
	if in.OnEvent != nil {
		in.OnEvent(outcome, rel)
	}
}

// Watch runs an initial Scan and then imports files as they appear, until ctx
// is cancelled. Bursts of write events for one file are debounced.
func (in *Inbox) Watch(ctx context.Context) error {
	logger := in.logger()
	absDir := filepath.Join(in.Root, filepath.FromSlash(in.Dir))
	if err := in.ensureDir(); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(absDir); err != nil {
		return fmt.Errorf("inbox: watch %s: %w", absDir, err)
	}
	logger.Info("inbox: started", slog.String("dir", absDir), slog.String("mode", string(in.Mode)))

	if err := in.Scan(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("inbox: initial scan failed", slog.String("error", err.Error()))
	}

	debounce := in.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	ready := make(chan string)
	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox: stopped")
			return nil

		case rel := <-ready:
			delete(pending, rel)
			in.Process(ctx, rel)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") || !accepted(name) {
				continue
			}
			rel := path.Join(in.Dir, name)
			if t, ok := pending[rel]; ok {
				t.Reset(debounce)
				continue
			}
			pending[rel] = time.AfterFunc(debounce, func() {
				select {
				case ready <- rel:
				case <-ctx.Done():
				}
			})

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// ensureDir makes sure the inbox directory exists so it can be watched.
func (in *Inbox) ensureDir() error {
	keep := path.Join(in.Dir, ProcessedDir, ".keep")
	if _, err := in.Files.Read(keep); err == nil {
		return nil
	}
	if err := in.Files.Write(keep, nil); err != nil {
		return fmt.Errorf("inbox: create dir: %w", err)
	}
	return nil
}

func accepted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
