// Package tracker owns the live tracker state. Every mutation runs under one
// lock: compute the next state, persist it, then swap it in and publish.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/metrics"
	"github.com/starford/lapse/internal/models"
	"github.com/starford/lapse/internal/storage"
)

// Persisted snapshot keys.
const (
	KeyItems      = "knowledge-items"
	KeyCategories = "knowledge-categories"
	KeySettings   = "knowledge-settings"
	KeyActivities = "knowledge-activities"
)

// Event kinds passed to Notifier.PublishChange.
const (
	EventItemCreated     = "item.created"
	EventItemUpdated     = "item.updated"
	EventItemRenewed     = "item.renewed"
	EventItemDeleted     = "item.deleted"
	EventCategoryCreated = "category.created"
	EventCategoryUpdated = "category.updated"
	EventCategoryDeleted = "category.deleted"
	EventSettings        = "settings.updated"
	EventImported        = "data.imported"
	EventCleared         = "data.cleared"
)

// Notifier receives change events and user-facing notices.
type Notifier interface {
	PublishChange(kind, id string)
	PublishNotice(message string)
}

type nopNotifier struct{}

func (nopNotifier) PublishChange(string, string) {}
func (nopNotifier) PublishNotice(string)         {}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotifier sets the change/notice sink.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRetention sets the merge-import retention cap (0 = unlimited).
func WithRetention(n int) Option {
	return func(s *Service) { s.retention = n }
}

// WithFiles enables backups, written under dir of files.
func WithFiles(files storage.Files, dir string) Option {
	return func(s *Service) {
		s.files = files
		s.backupDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaults overrides the page size and reminder window used for fresh
// settings.
func WithDefaults(itemsPerPage, reminderDays int) Option {
	return func(s *Service) {
		if itemsPerPage > 0 {
			s.defaults.ItemsPerPage = itemsPerPage
		}
		if reminderDays > 0 {
			s.defaults.ReminderDays = reminderDays
		}
	}
}

// Service is the single owner of tracker state.
type Service struct {
	kv        storage.KV
	files     storage.Files
	backupDir string
	notifier  Notifier
	now       func() time.Time
	retention int
	logger    *slog.Logger
	defaults  models.Settings
	backupMu  sync.Mutex

	mu         sync.Mutex
	state      lifecycle.State
	settings   models.Settings
	activities []models.Activity
}

// New creates a Service with an empty state. Call Load to restore the
// persisted snapshots.
func New(kv storage.KV, opts ...Option) *Service {
	s := &Service{
		kv:        kv,
		notifier:  nopNotifier{},
		now:       time.Now,
		retention: lifecycle.DefaultRetention,
		logger:    slog.Default(),
		defaults:  models.DefaultSettings(),
	}
	for _, o := range opts {
		o(s)
	}
	s.state = lifecycle.NewState()
	s.settings = s.defaults
	s.activities = []models.Activity{}
	return s
}

// Load restores state from the KV store. Missing or corrupt snapshots fall
// back to empty items, the default categories and default settings.
func (s *Service) Load(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := lifecycle.NewState()
	settings := s.defaults
	activities := []models.Activity{}

	if ok, err := s.loadKey(KeyItems, &st.Items); err != nil {
		return err
	} else if !ok || st.Items == nil {
		st.Items = []models.KnowledgeItem{}
	}
	var cats []models.Category
	if ok, err := s.loadKey(KeyCategories, &cats); err != nil {
		return err
	} else if ok && cats != nil {
		st.Categories = cats
	}
	var raw json.RawMessage
	if ok, err := s.loadKey(KeySettings, &raw); err != nil {
		return err
	} else if ok && len(raw) > 0 && string(raw) != "null" {
		patched, perr := lifecycle.PatchSettings(s.defaults, raw)
		if perr != nil {
			s.logger.Warn("tracker: corrupt settings, using defaults", slog.String("error", perr.Error()))
		} else {
			settings = patched
		}
	}
	if ok, err := s.loadKey(KeyActivities, &activities); err != nil {
		return err
	} else if !ok || activities == nil {
		activities = []models.Activity{}
	}

	for i := range st.Items {
		if st.Items[i].RenewalHistory == nil {
			st.Items[i].RenewalHistory = []models.RenewalEvent{}
		}
		if st.Items[i].Tags == nil {
			st.Items[i].Tags = []string{}
		}
	}

	s.state = st
	s.settings = settings
	s.activities = activities
	s.refreshGauges()
	s.logger.Info("tracker: loaded",
		slog.Int("items", len(st.Items)),
		slog.Int("categories", len(st.Categories)),
	)
	return nil
}

// loadKey decodes the snapshot at key into dst. It reports false when the key
// is missing or holds undecodable data; only storage failures are errors.
func (s *Service) loadKey(key string, dst any) (bool, error) {
	data, err := s.kv.Get(key)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("tracker: load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("tracker: corrupt snapshot, using defaults",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false, nil
	}
	return true, nil
}

// commit persists next, records an activity and swaps the in-memory state.
// Nothing changes when persisting fails. Callers hold s.mu.
func (s *Service) commit(next lifecycle.State, settings models.Settings, kind, description string) error {
	return s.commitFrom(s.activities, next, settings, kind, description)
}

// commitFrom is commit with an explicit activity log to append to.
func (s *Service) commitFrom(log []models.Activity, next lifecycle.State, settings models.Settings, kind, description string) error {
	activities := lifecycle.RecordActivity(log, kind, description, s.now())
	if err := s.persist(next, settings, activities); err != nil {
		return err
	}
	s.state = next
	s.settings = settings
	s.activities = activities
	metrics.Mutations.WithLabelValues(kind).Inc()
	s.refreshGauges()
	return nil
}

func (s *Service) persist(st lifecycle.State, settings models.Settings, activities []models.Activity) error {
	entries := make(map[string][]byte, 4)
	for key, v := range map[string]any{
		KeyItems:      st.Items,
		KeyCategories: st.Categories,
		KeySettings:   settings,
		KeyActivities: activities,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("tracker: encode %s: %w", key, err)
		}
		entries[key] = data
	}
	if err := s.kv.PutMany(entries); err != nil {
		return fmt.Errorf("tracker: persist: %w", err)
	}
	return nil
}

func (s *Service) refreshGauges() {
	h := lifecycle.CountStatuses(s.state.Items, s.now())
	for _, st := range models.Statuses {
		metrics.ItemsByStatus.WithLabelValues(string(st)).Set(float64(h.Count(st)))
	}
	metrics.TotalCost.Set(lifecycle.TotalCost(s.state.Items))
}

// Snapshot returns a deep copy of the current state and settings.
func (s *Service) Snapshot() (lifecycle.State, models.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone(), s.settings
}

// Activities returns the recent-activity log, newest first.
func (s *Service) Activities(_ context.Context, limit int) []models.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.activities)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Activity, n)
	copy(out, s.activities[:n])
	return out
}
