package lifecycle

import (
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/models"
)

// ImportMode selects how an incoming collection combines with the current one.
type ImportMode string

const (
	// ImportReplace wholly replaces each collection present in the import.
	ImportReplace ImportMode = "replace"
	// ImportMerge keeps existing records and adds incoming records with new ids.
	ImportMerge ImportMode = "merge"
)

// DefaultRetention is the merge-mode cap on the number of items kept.
const DefaultRetention = 100

// ParseImportMode maps a mode name to an ImportMode. Empty means replace.
func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ImportReplace:
		return ImportReplace, nil
	case ImportMerge:
		return ImportMerge, nil
	}
	return "", apperr.Invalid("mode", "must be %q or %q", ImportReplace, ImportMerge)
}

// Record is anything that can be merged by identifier.
type Record interface {
	RecordID() string
	RecordTime() time.Time
}

// MergeByID returns existing ∪ (incoming − duplicates), where an incoming
// record is a duplicate iff its id is already present in existing; existing
// always wins. The result is ordered by RecordTime descending (stable, so
// records with equal times keep existing-then-incoming order) and truncated
// to retention records when retention > 0.
func MergeByID[T Record](existing, incoming []T, retention int) []T {
	seen := make(map[string]struct{}, len(existing))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.RecordID()] = struct{}{}
		out = append(out, r)
	}
	for _, r := range incoming {
		if _, dup := seen[r.RecordID()]; dup {
			continue
		}
		seen[r.RecordID()] = struct{}{}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordTime().After(out[j].RecordTime())
	})
	if retention > 0 && len(out) > retention {
		out = out[:retention]
	}
	return out
}

// CountNew reports how many incoming records have an id absent from existing.
func CountNew[T Record](existing, incoming []T) int {
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.RecordID()] = struct{}{}
	}
	n := 0
	for _, r := range incoming {
		if _, dup := seen[r.RecordID()]; !dup {
			seen[r.RecordID()] = struct{}{}
			n++
		}
	}
	return n
}

// ValidateBatch checks that every incoming record carries its required
// fields. A single bad record rejects the whole batch.
func ValidateBatch(items []models.KnowledgeItem, cats []models.Category) error {
	var verr *apperr.ValidationError
	for i := range items {
		it := &items[i]
		err := validation.ValidateStruct(it,
			validation.Field(&it.ID, validation.Required),
			validation.Field(&it.Name, validation.Required),
			validation.Field(&it.Category, validation.Required),
			validation.Field(&it.ExpiryDate, validation.Required, validation.By(isDate)),
			validation.Field(&it.CreatedAt, validation.Required),
			validation.Field(&it.Cost, validation.Min(0.0)),
		)
		if err := apperr.FromValidation(err); err != nil {
			e, ok := err.(*apperr.ValidationError)
			if !ok {
				return err
			}
			verr = verr.Merge(fmt.Sprintf("knowledgeItems[%d].", i), e)
		}
	}
	for i := range cats {
		c := &cats[i]
		err := validation.ValidateStruct(c,
			validation.Field(&c.ID, validation.Required),
			validation.Field(&c.Name, validation.Required),
		)
		if err := apperr.FromValidation(err); err != nil {
			e, ok := err.(*apperr.ValidationError)
			if !ok {
				return err
			}
			verr = verr.Merge(fmt.Sprintf("categories[%d].", i), e)
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

func isDate(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	if _, err := ParseDate(s); err != nil {
		return fmt.Errorf("must be a YYYY-MM-DD date")
	}
	return nil
}

// ImportResult describes what an import changed.
type ImportResult struct {
	Mode            ImportMode `json:"mode"`
	Items           int        `json:"items"`
	Categories      int        `json:"categories"`
	NewItems        int        `json:"newItems"`
	SettingsUpdated bool       `json:"settingsUpdated"`
}

// ApplyImport combines doc with the current state and settings. Sections
// absent from doc keep their current value; settings are overlaid key by key.
// Validation happens before anything is combined, so a failed import returns
// the inputs unchanged.
func ApplyImport(cur State, settings models.Settings, doc *models.ImportDocument, mode ImportMode, retention int) (State, models.Settings, ImportResult, error) {
	res := ImportResult{Mode: mode}
	if err := ValidateBatch(doc.KnowledgeItems, doc.Categories); err != nil {
		return cur, settings, res, err
	}

	nextSettings := settings
	if len(doc.Settings) > 0 && string(doc.Settings) != "null" {
		patched, err := PatchSettings(settings, doc.Settings)
		if err != nil {
			return cur, settings, res, err
		}
		nextSettings = patched
		res.SettingsUpdated = true
	}

	next := cur.Clone()
	incoming := State{Items: doc.KnowledgeItems, Categories: doc.Categories}.Clone()
	for i := range incoming.Items {
		incoming.Items[i].ExpiryDate = NormalizeDate(incoming.Items[i].ExpiryDate)
		if incoming.Items[i].RenewalHistory == nil {
			incoming.Items[i].RenewalHistory = []models.RenewalEvent{}
		}
	}

	if doc.HasItems() {
		switch mode {
		case ImportMerge:
			res.NewItems = CountNew(next.Items, incoming.Items)
			next.Items = MergeByID(next.Items, incoming.Items, retention)
		default:
			res.NewItems = len(incoming.Items)
			next.Items = incoming.Items
		}
	}
	if doc.HasCategories() {
		switch mode {
		case ImportMerge:
			next.Categories = MergeByID(next.Categories, incoming.Categories, 0)
		default:
			next.Categories = incoming.Categories
		}
	}

	res.Items = len(next.Items)
	res.Categories = len(next.Categories)
	return next, nextSettings, res, nil
}

// Export builds the export document for the given state.
func Export(s State, settings models.Settings, activities []models.Activity, now time.Time) models.ExportDocument {
	c := s.Clone()
	return models.ExportDocument{
		KnowledgeItems: c.Items,
		Categories:     c.Categories,
		Settings:       settings,
		Activities:     activities,
		ExportDate:     now,
	}
}
