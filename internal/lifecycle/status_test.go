package lifecycle

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/starford/lapse/internal/models"
)

var today = time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

func dateIn(days int) string {
	return today.AddDate(0, 0, days).Format(DateLayout)
}

func TestDaysUntilExpiry_IgnoresTimeOfDay(t *testing.T) {
	late := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2026, 3, 10, 0, 1, 0, 0, time.UTC)
	for _, now := range []time.Time{late, early} {
		days, ok := DaysUntilExpiry("2026-03-11", now)
		if !ok || days != 1 {
			t.Errorf("DaysUntilExpiry at %s = %d, %v; want 1, true", now, days, ok)
		}
	}
}

func TestDaysUntilExpiry_AcceptsTimestamp(t *testing.T) {
	days, ok := DaysUntilExpiry("2026-03-20T00:00:00.000Z", today)
	if !ok || days != 10 {
		t.Errorf("got %d, %v; want 10, true", days, ok)
	}
}

func TestDaysUntilExpiry_Invalid(t *testing.T) {
	if _, ok := DaysUntilExpiry("next tuesday", today); ok {
		t.Error("expected ok=false for garbage date")
	}
}

func TestClassify_Boundaries(t *testing.T) {
	recent := today.AddDate(0, 0, -3)
	old := today.AddDate(0, 0, -31)

	tests := []struct {
		name    string
		expiry  string
		renewed *time.Time
		want    models.Status
	}{
		{"yesterday", dateIn(-1), nil, models.StatusExpired},
		{"today", dateIn(0), nil, models.StatusExpiringSoon},
		{"threshold", dateIn(ReminderThreshold), nil, models.StatusExpiringSoon},
		{"past threshold", dateIn(ReminderThreshold + 1), nil, models.StatusActive},
		{"recently renewed", dateIn(90), &recent, models.StatusRenewed},
		{"renewed long ago", dateIn(90), &old, models.StatusActive},
		{"renewed but expiring", dateIn(5), &recent, models.StatusExpiringSoon},
		{"renewed but expired", dateIn(-5), &recent, models.StatusExpired},
		{"unparseable", "soon", nil, models.StatusExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := models.KnowledgeItem{ExpiryDate: tt.expiry, LastRenewed: tt.renewed}
			if got := Classify(item, today); got != tt.want {
				t.Errorf("Classify = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_RenewalDoesNotOverrideExpiringSoon(t *testing.T) {
	s := State{Categories: DefaultCategories()}
	s, item, err := s.CreateItem(models.ItemInput{
		Name:       "AWS Cert",
		Category:   "certifications",
		ExpiryDate: dateIn(10),
		Cost:       100,
	}, today)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if got := Classify(item, today); got != models.StatusExpiringSoon {
		t.Fatalf("before renew: %q", got)
	}

	s, item, err = s.RenewItem(item.ID, today)
	if err != nil {
		t.Fatalf("RenewItem: %v", err)
	}
	if item.LastRenewed == nil || !item.LastRenewed.Equal(today) {
		t.Fatalf("lastRenewed = %v, want %v", item.LastRenewed, today)
	}

	later := today.AddDate(0, 0, 5)
	if got := Classify(item, later); got != models.StatusExpiringSoon {
		t.Errorf("5 days later: %q, want expiring-soon", got)
	}
	if len(s.Items) != 1 {
		t.Errorf("items = %d", len(s.Items))
	}
}

func TestProperty_ClassifyIsTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		offset := rapid.IntRange(-400, 400).Draw(rt, "offset")
		item := models.KnowledgeItem{ExpiryDate: dateIn(offset)}
		if rapid.Bool().Draw(rt, "renewed") {
			r := today.AddDate(0, 0, -rapid.IntRange(0, 100).Draw(rt, "renewedAgo"))
			item.LastRenewed = &r
		}
		hour := rapid.IntRange(0, 23).Draw(rt, "hour")
		now := time.Date(today.Year(), today.Month(), today.Day(), hour, 0, 0, 0, time.UTC)

		got := Classify(item, now)
		if !ValidStatus(string(got)) {
			rt.Fatalf("Classify returned %q", got)
		}
		if offset == 0 && got != models.StatusExpiringSoon {
			rt.Fatalf("expiry today classified as %q", got)
		}
	})
}
