// Package models defines the domain types for lapse.
package models

import (
	"encoding/json"
	"time"
)

// Priority ranks how important it is to keep an item current.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities lists every priority in chart order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

// Status is the derived lifecycle state of an item. It is never stored.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring-soon"
	StatusExpired      Status = "expired"
	StatusRenewed      Status = "renewed"
)

// Statuses lists every status in chart order.
var Statuses = []Status{StatusActive, StatusExpiringSoon, StatusExpired, StatusRenewed}

// RenewalEvent records when and at what cost an item was renewed.
type RenewalEvent struct {
	Date time.Time `json:"date"`
	Cost float64   `json:"cost"`
}

// KnowledgeItem is a tracked credential or skill with an expiry date.
type KnowledgeItem struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	Category       string         `json:"category"`
	Priority       Priority       `json:"priority"`
	ExpiryDate     string         `json:"expiryDate"`
	Cost           float64        `json:"cost"`
	Tags           []string       `json:"tags"`
	Notes          string         `json:"notes"`
	CreatedAt      time.Time      `json:"createdAt"`
	LastRenewed    *time.Time     `json:"lastRenewed"`
	RenewalHistory []RenewalEvent `json:"renewalHistory"`
}

// RecordID returns the item identifier.
func (k KnowledgeItem) RecordID() string { return k.ID }

// RecordTime returns the creation timestamp used for retention ordering.
func (k KnowledgeItem) RecordTime() time.Time { return k.CreatedAt }

// ItemInput carries the user-editable fields of a KnowledgeItem.
type ItemInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Priority    Priority `json:"priority"`
	ExpiryDate  string   `json:"expiryDate"`
	Cost        float64  `json:"cost"`
	Tags        []string `json:"tags"`
	Notes       string   `json:"notes"`
}

// Category is a user-defined grouping of items.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

func (c Category) RecordID() string { return c.ID }

// RecordTime is zero: categories carry no timestamp and keep their stored order.
func (c Category) RecordTime() time.Time { return time.Time{} }

// CategoryInput carries the user-editable fields of a Category.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Activity kinds.
const (
	ActivityAdd      = "add"
	ActivityEdit     = "edit"
	ActivityRenew    = "renew"
	ActivityDelete   = "delete"
	ActivityCategory = "category"
	ActivityImport   = "import"
	ActivityClear    = "clear"
)

// Activity is an entry of the recent-activity log.
type Activity struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// ExportDocument is the JSON shape written by export and accepted by import.
type ExportDocument struct {
	KnowledgeItems []KnowledgeItem `json:"knowledgeItems"`
	Categories     []Category      `json:"categories"`
	Settings       Settings        `json:"settings"`
	Activities     []Activity      `json:"activities,omitempty"`
	ExportDate     time.Time       `json:"exportDate"`
}

// ImportDocument is a parsed import file. Top-level sections that were absent
// (or null) in the source are nil and leave the current state untouched.
type ImportDocument struct {
	KnowledgeItems []KnowledgeItem
	Categories     []Category
	// Settings holds the raw settings object so it can be overlaid key by key.
	Settings   json.RawMessage
	ExportDate *time.Time
}

// HasItems reports whether the document carried a knowledgeItems section.
func (d *ImportDocument) HasItems() bool { return d.KnowledgeItems != nil }

// HasCategories reports whether the document carried a categories section.
func (d *ImportDocument) HasCategories() bool { return d.Categories != nil }
