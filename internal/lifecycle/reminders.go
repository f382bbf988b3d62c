package lifecycle

import (
	"fmt"
	"time"

	"github.com/starford/lapse/internal/models"
)

// Reminder is an item that needs attention, with its day count.
type Reminder struct {
	Item            models.KnowledgeItem `json:"item"`
	DaysUntilExpiry int                  `json:"daysUntilExpiry"`
	Expired         bool                 `json:"expired"`
}

// Reminders lists items expiring within reminderDays (inclusive, today
// counts) followed by already expired items, each group in input order.
// Items whose expiry date does not parse are skipped.
func Reminders(items []models.KnowledgeItem, now time.Time, reminderDays int) []Reminder {
	var soon, expired []Reminder
	for _, it := range items {
		days, ok := DaysUntilExpiry(it.ExpiryDate, now)
		if !ok {
			continue
		}
		switch {
		case days < 0:
			expired = append(expired, Reminder{Item: it, DaysUntilExpiry: days, Expired: true})
		case days <= reminderDays:
			soon = append(soon, Reminder{Item: it, DaysUntilExpiry: days})
		}
	}
	return append(append(make([]Reminder, 0, len(soon)+len(expired)), soon...), expired...)
}

// ReminderSummary is the result of a periodic reminder scan.
type ReminderSummary struct {
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
}

// Summarize counts the reminders by kind.
func Summarize(reminders []Reminder) ReminderSummary {
	var s ReminderSummary
	for _, r := range reminders {
		if r.Expired {
			s.Expired++
		} else {
			s.ExpiringSoon++
		}
	}
	return s
}

// Any reports whether anything needs attention.
func (s ReminderSummary) Any() bool { return s.ExpiringSoon > 0 || s.Expired > 0 }

// Message is the notification text for the summary.
func (s ReminderSummary) Message() string {
	return fmt.Sprintf("You have %d items expiring soon and %d expired items.", s.ExpiringSoon, s.Expired)
}
