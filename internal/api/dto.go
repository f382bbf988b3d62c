package api

import (
	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/models"
	"github.com/starford/lapse/internal/tracker"
)

// ItemRequest is the request body for creating or editing an item.
type ItemRequest = models.ItemInput

// CategoryRequest is the request body for creating or editing a category.
type CategoryRequest = models.CategoryInput

// ItemCard is a presented item (aliased from the domain layer).
type ItemCard = lifecycle.ItemCard

// ItemListResponse is one page of items (aliased from the service layer).
type ItemListResponse = tracker.ItemPage

// CategoryListResponse wraps category summaries.
type CategoryListResponse struct {
	Categories []lifecycle.CategorySummary `json:"categories" validate:"required"`
}

// ReminderListResponse wraps the reminder list and its summary.
type ReminderListResponse struct {
	Reminders []lifecycle.Reminder      `json:"reminders" validate:"required"`
	Summary   lifecycle.ReminderSummary `json:"summary" validate:"required"`
}

// ActivityListResponse wraps the activity log.
type ActivityListResponse struct {
	Activities []models.Activity `json:"activities" validate:"required"`
}

// BackupListItem describes a stored backup file.
type BackupListItem struct {
	Path      string `json:"path" example:"backups/knowledge-tracker-backup-2024-06-01-120000.json"`
	Checksum  string `json:"checksum" example:"abc123..."`
	Size      int64  `json:"size" example:"2048"`
	UpdatedAt string `json:"updated_at" example:"2024-06-01T12:00:00Z"`
}

// BackupListResponse wraps backup listings.
type BackupListResponse struct {
	Backups []BackupListItem `json:"backups" validate:"required"`
}
