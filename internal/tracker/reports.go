package tracker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/metrics"
	"github.com/starford/lapse/internal/models"
)

const (
	overviewUpcoming = 5
	overviewRecent   = 5
)

// Overview is the dashboard payload.
type Overview struct {
	Summary   lifecycle.DashboardSummary `json:"summary"`
	TotalCost float64                    `json:"totalCost"`
	Upcoming  []lifecycle.Reminder       `json:"upcoming"`
	Recent    []models.Activity          `json:"recentActivity"`
}

// Analytics is the analytics payload.
type Analytics struct {
	Renewals   lifecycle.RenewalStats      `json:"renewals"`
	Statuses   lifecycle.StatusHistogram   `json:"statuses"`
	Priorities lifecycle.PriorityHistogram `json:"priorities"`
	Categories []lifecycle.CategoryCount   `json:"categories"`
}

// Dashboard returns the summary counts, the nearest upcoming expiries and the
// latest activities.
func (s *Service) Dashboard(_ context.Context) Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	upcoming := []lifecycle.Reminder{}
	for _, r := range lifecycle.Reminders(s.state.Items, now, s.settings.ReminderDays) {
		if r.Expired || len(upcoming) == overviewUpcoming {
			continue
		}
		upcoming = append(upcoming, r)
	}
	recent := make([]models.Activity, min(len(s.activities), overviewRecent))
	copy(recent, s.activities)

	return Overview{
		Summary:   lifecycle.Dashboard(s.state.Items, now),
		TotalCost: lifecycle.TotalCost(s.state.Items),
		Upcoming:  upcoming,
		Recent:    recent,
	}
}

// Charts returns every chart series.
func (s *Service) Charts(_ context.Context) lifecycle.Charts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lifecycle.BuildCharts(s.state.Items, s.state.Categories, s.now())
}

// Analytics returns renewal statistics and histograms.
func (s *Service) Analytics(_ context.Context) Analytics {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	return Analytics{
		Renewals:   lifecycle.RenewalAnalytics(s.state.Items, s.state.Categories),
		Statuses:   lifecycle.CountStatuses(s.state.Items, now),
		Priorities: lifecycle.CountPriorities(s.state.Items),
		Categories: lifecycle.CategoryHistogram(s.state.Items, s.state.Categories),
	}
}

// Reminders lists items inside the configured reminder window followed by
// expired items.
func (s *Service) Reminders(_ context.Context) []lifecycle.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lifecycle.Reminders(s.state.Items, s.now(), s.settings.ReminderDays)
}

// CheckReminders is the periodic reminder scan. It publishes a notice when
// notifications are enabled and something is due, and reports whether it did.
func (s *Service) CheckReminders(_ context.Context) (lifecycle.ReminderSummary, bool) {
	s.mu.Lock()
	enabled := s.settings.EnableNotifications
	sum := lifecycle.Summarize(lifecycle.Reminders(s.state.Items, s.now(), s.settings.ReminderDays))
	s.refreshGauges()
	s.mu.Unlock()

	switch {
	case !enabled:
		metrics.ReminderScans.WithLabelValues("disabled").Inc()
		return sum, false
	case !sum.Any():
		metrics.ReminderScans.WithLabelValues("quiet").Inc()
		return sum, false
	}
	metrics.ReminderScans.WithLabelValues("notified").Inc()
	s.logger.Info("reminder: due items",
		slog.Int("expiring_soon", sum.ExpiringSoon),
		slog.Int("expired", sum.Expired),
	)
	s.notifier.PublishNotice(sum.Message())
	return sum, true
}

// Settings returns the current settings.
func (s *Service) Settings(_ context.Context) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings overlays the keys present in patch onto the current
// settings.
func (s *Service) UpdateSettings(_ context.Context, patch json.RawMessage) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := lifecycle.PatchSettings(s.settings, patch)
	if err != nil {
		return s.settings, err
	}
	if err := s.commit(s.state, next, models.ActivityEdit, "Updated settings"); err != nil {
		return s.settings, err
	}
	s.notifier.PublishChange(EventSettings, "")
	return next, nil
}

// ResetSettings restores the default settings.
func (s *Service) ResetSettings(_ context.Context) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(s.state, s.defaults, models.ActivityEdit, "Reset settings to defaults"); err != nil {
		return s.settings, err
	}
	s.notifier.PublishChange(EventSettings, "")
	return s.defaults, nil
}
