package lifecycle

import (
	"sort"
	"strings"
	"time"

	"github.com/starford/lapse/internal/models"
)

// All disables the category or status predicate of a Filter.
const All = "all"

// Filter selects items by free text, category and status. Empty Category or
// Status behave like All.
type Filter struct {
	Search   string `json:"search"`
	Category string `json:"category"`
	Status   string `json:"status"`
}

// Matches reports whether item satisfies all three predicates.
func (f Filter) Matches(item models.KnowledgeItem, now time.Time) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(item.Name), q) &&
			!strings.Contains(strings.ToLower(item.Description), q) {
			return false
		}
	}
	if f.Category != "" && f.Category != All && item.Category != f.Category {
		return false
	}
	if f.Status != "" && f.Status != All && string(Classify(item, now)) != f.Status {
		return false
	}
	return true
}

// FilterItems returns the items matching f in their original order.
func FilterItems(items []models.KnowledgeItem, f Filter, now time.Time) []models.KnowledgeItem {
	out := make([]models.KnowledgeItem, 0, len(items))
	for _, it := range items {
		if f.Matches(it, now) {
			out = append(out, it)
		}
	}
	return out
}

// Paginate returns the 1-indexed page of items. Pages past the end are empty;
// a page below 1 is treated as the first page and a non-positive pageSize
// returns everything.
func Paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := min(start+pageSize, len(items))
	return items[start:end]
}

// TotalPages returns how many pages of pageSize are needed for n items.
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 || n == 0 {
		return 1
	}
	return (n + pageSize - 1) / pageSize
}

var priorityRank = map[models.Priority]int{
	models.PriorityCritical: 0,
	models.PriorityHigh:     1,
	models.PriorityMedium:   2,
	models.PriorityLow:      3,
}

// SortItems returns a stably sorted copy of items. Unknown keys keep the input
// order. Expiry sorts soonest first (unparseable dates last), priority sorts
// critical first and created sorts newest first.
func SortItems(items []models.KnowledgeItem, key string) []models.KnowledgeItem {
	out := append([]models.KnowledgeItem(nil), items...)
	var less func(a, b models.KnowledgeItem) bool
	switch key {
	case models.SortExpiryDate:
		less = func(a, b models.KnowledgeItem) bool {
			ta, errA := ParseDate(a.ExpiryDate)
			tb, errB := ParseDate(b.ExpiryDate)
			if errA != nil || errB != nil {
				return errA == nil && errB != nil
			}
			return ta.Before(tb)
		}
	case models.SortName:
		less = func(a, b models.KnowledgeItem) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case models.SortPriority:
		less = func(a, b models.KnowledgeItem) bool {
			ra, okA := priorityRank[a.Priority]
			rb, okB := priorityRank[b.Priority]
			if !okA {
				ra = len(priorityRank)
			}
			if !okB {
				rb = len(priorityRank)
			}
			return ra < rb
		}
	case models.SortCreated:
		less = func(a, b models.KnowledgeItem) bool { return a.CreatedAt.After(b.CreatedAt) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
