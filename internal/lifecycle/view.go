package lifecycle

import (
	"fmt"
	"time"

	"github.com/starford/lapse/internal/models"
)

const (
	// UnknownCategory is shown for items whose category no longer exists.
	UnknownCategory = "Unknown"
	defaultColor    = "#2563eb"
)

// ItemCard is the display projection of an item.
type ItemCard struct {
	models.KnowledgeItem
	Status          models.Status `json:"status"`
	DaysUntilExpiry int           `json:"daysUntilExpiry"`
	ExpiryLabel     string        `json:"expiryLabel"`
	CategoryName    string        `json:"categoryName"`
	CategoryColor   string        `json:"categoryColor"`
}

// Present builds the card for item, resolving its category against cats.
func Present(item models.KnowledgeItem, cats []models.Category, now time.Time) ItemCard {
	card := ItemCard{
		KnowledgeItem: item,
		Status:        Classify(item, now),
		CategoryName:  UnknownCategory,
		CategoryColor: defaultColor,
	}
	if c, ok := findCategory(cats, item.Category); ok {
		card.CategoryName = c.Name
		if c.Color != "" {
			card.CategoryColor = c.Color
		}
	}
	days, ok := DaysUntilExpiry(item.ExpiryDate, now)
	card.DaysUntilExpiry = days
	switch {
	case !ok || days < 0:
		card.ExpiryLabel = "Expired"
	case days == 0:
		card.ExpiryLabel = "Expires today"
	case days == 1:
		card.ExpiryLabel = "1 day"
	default:
		card.ExpiryLabel = fmt.Sprintf("%d days", days)
	}
	return card
}

// PresentAll maps Present over items.
func PresentAll(items []models.KnowledgeItem, cats []models.Category, now time.Time) []ItemCard {
	out := make([]ItemCard, len(items))
	for i, it := range items {
		out[i] = Present(it, cats, now)
	}
	return out
}

// CategorySummary is a category together with how many items reference it.
type CategorySummary struct {
	models.Category
	ItemCount int `json:"itemCount"`
}

// SummarizeCategories pairs every category with its item count.
func SummarizeCategories(items []models.KnowledgeItem, cats []models.Category) []CategorySummary {
	hist := CategoryHistogram(items, cats)
	out := make([]CategorySummary, len(cats))
	for i, c := range cats {
		out[i] = CategorySummary{Category: c, ItemCount: hist[i].Count}
	}
	return out
}
