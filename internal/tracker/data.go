package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"time"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/models"
	"github.com/starford/lapse/internal/parser"
	"github.com/starford/lapse/internal/storage"
)

// ErrNoFileStore is returned by backup operations when no file store is
// configured.
var ErrNoFileStore = errors.New("tracker: no file store configured")

// Export returns the export document: items, categories and settings.
func (s *Service) Export(_ context.Context) models.ExportDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lifecycle.Export(s.state, s.settings, nil, s.now())
}

// ExportFull is Export plus the activity log.
func (s *Service) ExportFull(_ context.Context) models.ExportDocument {
	s.mu.Lock()
	defer s.mu.Unlock()
	acts := make([]models.Activity, len(s.activities))
	copy(acts, s.activities)
	return lifecycle.Export(s.state, s.settings, acts, s.now())
}

// ExportFileName is the suggested download name for an export made at now.
func ExportFileName(full bool, now time.Time) string {
	if full {
		return "knowledge-tracker-full-export-" + now.UTC().Format(lifecycle.DateLayout) + ".json"
	}
	return "knowledge-tracker-export-" + now.UTC().Format(lifecycle.DateLayout) + ".json"
}

// Import parses data as a JSON or YAML export document and applies it in the
// given mode. A malformed or invalid document changes nothing.
func (s *Service) Import(_ context.Context, data []byte, mode lifecycle.ImportMode) (lifecycle.ImportResult, error) {
	doc, err := parser.ParseDocument(data)
	if err != nil {
		return lifecycle.ImportResult{Mode: mode}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next, settings, res, err := lifecycle.ApplyImport(s.state, s.settings, doc, mode, s.retention)
	if err != nil {
		return res, err
	}
	desc := fmt.Sprintf("Imported data (%s): %d items, %d new", mode, res.Items, res.NewItems)
	if err := s.commit(next, settings, models.ActivityImport, desc); err != nil {
		return res, err
	}
	s.logger.Info("tracker: imported",
		slog.String("mode", string(mode)),
		slog.Int("items", res.Items),
		slog.Int("new_items", res.NewItems),
		slog.Bool("settings", res.SettingsUpdated),
	)
	s.notifier.PublishChange(EventImported, "")
	s.notifier.PublishNotice("Data imported successfully!")
	return res, nil
}

// ClearAll empties the item collection and restores the default categories
// and settings. The cleared snapshot overwrites every persisted key in one
// write, so a failed write leaves both memory and store untouched.
func (s *Service) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commitFrom([]models.Activity{}, lifecycle.NewState(), s.defaults, models.ActivityClear, "Cleared all data"); err != nil {
		return err
	}
	s.notifier.PublishChange(EventCleared, "")
	s.notifier.PublishNotice("All data cleared!")
	return nil
}

// BackupInfo describes a written backup file.
type BackupInfo struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"createdAt"`
}

// Backup writes the full export to the backup directory.
func (s *Service) Backup(ctx context.Context) (BackupInfo, error) {
	if s.files == nil {
		return BackupInfo{}, ErrNoFileStore
	}
	doc := s.ExportFull(ctx)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return BackupInfo{}, fmt.Errorf("tracker: encode backup: %w", err)
	}

	s.backupMu.Lock()
	defer s.backupMu.Unlock()
	name, err := s.freeBackupName(doc.ExportDate)
	if err != nil {
		return BackupInfo{}, err
	}
	if err := s.files.Write(name, data); err != nil {
		return BackupInfo{}, fmt.Errorf("tracker: write backup: %w", err)
	}
	s.logger.Info("tracker: backup written", slog.String("path", name))
	return BackupInfo{Path: name, Checksum: storage.Checksum(data), CreatedAt: doc.ExportDate}, nil
}

// freeBackupName returns the first backup path for at that is not taken.
// Backups within the same second get a -2, -3, ... suffix.
func (s *Service) freeBackupName(at time.Time) (string, error) {
	base := "knowledge-tracker-backup-" + at.UTC().Format("2006-01-02-150405")
	name := path.Join(s.backupDir, base+".json")
	for n := 2; ; n++ {
		_, err := s.files.Read(name)
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("tracker: check backup %s: %w", name, err)
		}
		name = path.Join(s.backupDir, fmt.Sprintf("%s-%d.json", base, n))
	}
}

// Backups lists the backup files, oldest first.
func (s *Service) Backups(_ context.Context) ([]storage.FileInfo, error) {
	if s.files == nil {
		return nil, ErrNoFileStore
	}
	return s.files.List(s.backupDir, ".json")
}

// AutoBackup writes a backup when the autoBackup setting is positive and the
// newest backup is at least that many days old. It reports whether a backup
// was written.
func (s *Service) AutoBackup(ctx context.Context) (bool, error) {
	if s.files == nil {
		return false, nil
	}
	settings := s.Settings(ctx)
	if settings.AutoBackup <= 0 {
		return false, nil
	}
	existing, err := s.files.List(s.backupDir, ".json")
	if err != nil {
		return false, err
	}
	now := s.now()
	for _, f := range existing {
		if lifecycle.DaysSince(f.UpdatedAt, now) < settings.AutoBackup {
			return false, nil
		}
	}
	if _, err := s.Backup(ctx); err != nil {
		return false, err
	}
	return true, nil
}
