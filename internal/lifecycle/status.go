// Package lifecycle is the knowledge lifecycle engine: status classification,
// filtering, aggregation, mutations on an explicit state container, and
// import merging. Every function here is pure; time is always passed in.
package lifecycle

import (
	"math"
	"strings"
	"time"

	"github.com/starford/lapse/internal/models"
)

// DateLayout is the calendar-date format of KnowledgeItem.ExpiryDate.
const DateLayout = "2006-01-02"

const (
	// ReminderThreshold is the fixed "expiring soon" boundary used for status
	// classification. It is independent of Settings.ReminderDays.
	ReminderThreshold = 30
	// RenewedWindow is how many days a renewal keeps an item "renewed".
	RenewedWindow = 30
)

const day = 24 * time.Hour

// ParseDate parses a calendar date. A full ISO-8601 timestamp is accepted and
// truncated to its date part.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) && s[len(DateLayout)] == 'T' {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

// NormalizeDate returns s rewritten as YYYY-MM-DD, or s unchanged if it does
// not parse.
func NormalizeDate(s string) string {
	t, err := ParseDate(s)
	if err != nil {
		return s
	}
	return t.Format(DateLayout)
}

// midnight maps t to 00:00 UTC of its own calendar date, so that subtracting
// two midnights always yields a whole number of days.
func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntilExpiry returns the number of calendar days from now's date to the
// expiry date. ok is false when the date does not parse.
func DaysUntilExpiry(expiryDate string, now time.Time) (days int, ok bool) {
	exp, err := ParseDate(expiryDate)
	if err != nil {
		return 0, false
	}
	return int(midnight(exp).Sub(midnight(now)) / day), true
}

// DaysSince returns the whole days elapsed from t to now, rounded down.
func DaysSince(t, now time.Time) int {
	return int(math.Floor(float64(now.Sub(t)) / float64(day)))
}

// Classify derives the lifecycle status of item at now. The first matching
// rule wins: expired, expiring-soon, renewed, active. An item expiring today
// is expiring-soon. An unparseable expiry date classifies as expired.
func Classify(item models.KnowledgeItem, now time.Time) models.Status {
	days, ok := DaysUntilExpiry(item.ExpiryDate, now)
	switch {
	case !ok || days < 0:
		return models.StatusExpired
	case days <= ReminderThreshold:
		return models.StatusExpiringSoon
	case item.LastRenewed != nil && DaysSince(*item.LastRenewed, now) <= RenewedWindow:
		return models.StatusRenewed
	default:
		return models.StatusActive
	}
}

// ValidStatus reports whether s names one of the four statuses.
func ValidStatus(s string) bool {
	for _, st := range models.Statuses {
		if string(st) == s {
			return true
		}
	}
	return false
}
