package lifecycle

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/models"
)

// ActivityCap is how many activities the log keeps.
const ActivityCap = 50

var clockRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// ValidateSettings checks every settings field.
func ValidateSettings(s *models.Settings) error {
	return apperr.FromValidation(validation.ValidateStruct(s,
		validation.Field(&s.Theme, validation.In(models.ThemeLight, models.ThemeDark)),
		validation.Field(&s.ItemsPerPage, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&s.DefaultSort, validation.In(models.SortExpiryDate, models.SortName, models.SortPriority, models.SortCreated)),
		validation.Field(&s.NotificationTime, validation.Match(clockRe)),
		validation.Field(&s.ReminderDays, validation.Min(0), validation.Max(3650)),
		validation.Field(&s.AutoBackup, validation.Min(0)),
	))
}

// PatchSettings overlays the keys present in patch onto cur and validates the
// result. cur is returned unchanged on error.
func PatchSettings(cur models.Settings, patch json.RawMessage) (models.Settings, error) {
	next := cur
	patch, err := numericSettings(patch)
	if err != nil {
		return cur, apperr.Invalid("settings", "%v", err)
	}
	if err := json.Unmarshal(patch, &next); err != nil {
		return cur, apperr.Invalid("settings", "%v", err)
	}
	if err := ValidateSettings(&next); err != nil {
		return cur, err
	}
	return next, nil
}

// numericKeys are the integer settings that older exports store as the
// string value of a form field ("50").
var numericKeys = []string{"itemsPerPage", "reminderDays", "autoBackup"}

// numericSettings rewrites integer-valued strings under numericKeys as JSON
// numbers. Other strings are left for the decoder to reject.
func numericSettings(patch json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, err
	}
	changed := false
	for _, key := range numericKeys {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(str))
		if err != nil {
			continue
		}
		fields[key] = json.RawMessage(strconv.Itoa(n))
		changed = true
	}
	if !changed {
		return patch, nil
	}
	return json.Marshal(fields)
}

// RecordActivity prepends a new activity and trims the log to ActivityCap.
func RecordActivity(log []models.Activity, kind, description string, now time.Time) []models.Activity {
	out := make([]models.Activity, 0, min(len(log)+1, ActivityCap))
	out = append(out, models.Activity{ID: NewID(), Type: kind, Description: description, Timestamp: now})
	for _, a := range log {
		if len(out) == ActivityCap {
			break
		}
		out = append(out, a)
	}
	return out
}
