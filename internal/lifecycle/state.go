package lifecycle

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/models"
)

// NewID returns a fresh identifier. Tests may replace it.
var NewID = uuid.NewString

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// State is the engine's explicit state container. Mutations never modify the
// receiver; they return a new State that shares no mutable memory with it.
type State struct {
	Items      []models.KnowledgeItem `json:"knowledgeItems"`
	Categories []models.Category      `json:"categories"`
}

// DefaultCategories returns the categories seeded on first start.
func DefaultCategories() []models.Category {
	return []models.Category{
		{ID: "certifications", Name: "Certifications", Description: "Professional certifications and licenses", Color: "#2563eb"},
		{ID: "training", Name: "Training", Description: "Training courses and workshops", Color: "#10b981"},
		{ID: "licenses", Name: "Licenses", Description: "Professional licenses and permits", Color: "#f59e0b"},
		{ID: "skills", Name: "Skills", Description: "Technical and soft skills", Color: "#ef4444"},
	}
}

// NewState returns an empty item collection with the default categories.
func NewState() State {
	return State{Items: []models.KnowledgeItem{}, Categories: DefaultCategories()}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	items := make([]models.KnowledgeItem, len(s.Items))
	for i, it := range s.Items {
		items[i] = cloneItem(it)
	}
	return State{
		Items:      items,
		Categories: append(make([]models.Category, 0, len(s.Categories)), s.Categories...),
	}
}

func cloneItem(it models.KnowledgeItem) models.KnowledgeItem {
	if it.Tags != nil {
		it.Tags = append(make([]string, 0, len(it.Tags)), it.Tags...)
	}
	if it.RenewalHistory != nil {
		it.RenewalHistory = append(make([]models.RenewalEvent, 0, len(it.RenewalHistory)), it.RenewalHistory...)
	}
	if it.LastRenewed != nil {
		t := *it.LastRenewed
		it.LastRenewed = &t
	}
	return it
}

// Item returns the item with the given id.
func (s State) Item(id string) (models.KnowledgeItem, error) {
	i := s.itemIndex(id)
	if i < 0 {
		return models.KnowledgeItem{}, apperr.NotFound("item", id)
	}
	return cloneItem(s.Items[i]), nil
}

// Category returns the category with the given id.
func (s State) Category(id string) (models.Category, error) {
	c, ok := findCategory(s.Categories, id)
	if !ok {
		return models.Category{}, apperr.NotFound("category", id)
	}
	return c, nil
}

// CategoryName resolves id to a category name, or UnknownCategory.
func (s State) CategoryName(id string) string {
	if c, ok := findCategory(s.Categories, id); ok {
		return c.Name
	}
	return UnknownCategory
}

func (s State) itemIndex(id string) int {
	for i, it := range s.Items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

func findCategory(cats []models.Category, id string) (models.Category, bool) {
	for _, c := range cats {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

// CreateItem validates in and appends a new item created at now.
func (s State) CreateItem(in models.ItemInput, now time.Time) (State, models.KnowledgeItem, error) {
	in = normalizeItemInput(in)
	if err := s.validateItemInput(&in); err != nil {
		return s, models.KnowledgeItem{}, err
	}
	item := models.KnowledgeItem{
		ID:             NewID(),
		CreatedAt:      now,
		RenewalHistory: []models.RenewalEvent{},
	}
	applyInput(&item, in)

	next := s.Clone()
	next.Items = append(next.Items, item)
	return next, cloneItem(item), nil
}

// EditItem replaces the editable fields of item id. The identifier, creation
// time and renewal record are preserved.
func (s State) EditItem(id string, in models.ItemInput) (State, models.KnowledgeItem, error) {
	i := s.itemIndex(id)
	if i < 0 {
		return s, models.KnowledgeItem{}, apperr.NotFound("item", id)
	}
	in = normalizeItemInput(in)
	if err := s.validateItemInput(&in); err != nil {
		return s, models.KnowledgeItem{}, err
	}
	next := s.Clone()
	item := next.Items[i]
	applyInput(&item, in)
	next.Items[i] = item
	return next, cloneItem(item), nil
}

// RenewItem appends a renewal at now, charged at the item's current cost.
func (s State) RenewItem(id string, now time.Time) (State, models.KnowledgeItem, error) {
	i := s.itemIndex(id)
	if i < 0 {
		return s, models.KnowledgeItem{}, apperr.NotFound("item", id)
	}
	next := s.Clone()
	item := next.Items[i]
	item.RenewalHistory = append(item.RenewalHistory, models.RenewalEvent{Date: now, Cost: item.Cost})
	renewed := now
	item.LastRenewed = &renewed
	next.Items[i] = item
	return next, cloneItem(item), nil
}

// DeleteItem removes item id. Deleting an unknown id fails.
func (s State) DeleteItem(id string) (State, models.KnowledgeItem, error) {
	i := s.itemIndex(id)
	if i < 0 {
		return s, models.KnowledgeItem{}, apperr.NotFound("item", id)
	}
	next := s.Clone()
	removed := next.Items[i]
	next.Items = append(next.Items[:i], next.Items[i+1:]...)
	return next, removed, nil
}

// CreateCategory validates in and appends a new category.
func (s State) CreateCategory(in models.CategoryInput) (State, models.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateCategoryInput(&in); err != nil {
		return s, models.Category{}, err
	}
	c := models.Category{ID: NewID(), Name: in.Name, Description: in.Description, Color: in.Color}
	next := s.Clone()
	next.Categories = append(next.Categories, c)
	return next, c, nil
}

// EditCategory replaces the editable fields of category id.
func (s State) EditCategory(id string, in models.CategoryInput) (State, models.Category, error) {
	if _, ok := findCategory(s.Categories, id); !ok {
		return s, models.Category{}, apperr.NotFound("category", id)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validateCategoryInput(&in); err != nil {
		return s, models.Category{}, err
	}
	next := s.Clone()
	var out models.Category
	for i, c := range next.Categories {
		if c.ID == id {
			c.Name, c.Description, c.Color = in.Name, in.Description, in.Color
			next.Categories[i] = c
			out = c
		}
	}
	return next, out, nil
}

// DeleteCategory removes category id. Items that reference it are kept and
// render with the unknown-category fallback.
func (s State) DeleteCategory(id string) (State, models.Category, error) {
	next := s.Clone()
	for i, c := range next.Categories {
		if c.ID == id {
			next.Categories = append(next.Categories[:i], next.Categories[i+1:]...)
			return next, c, nil
		}
	}
	return s, models.Category{}, apperr.NotFound("category", id)
}

func normalizeItemInput(in models.ItemInput) models.ItemInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.ExpiryDate = NormalizeDate(in.ExpiryDate)
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return in
}

func applyInput(item *models.KnowledgeItem, in models.ItemInput) {
	item.Name = in.Name
	item.Description = in.Description
	item.Category = in.Category
	item.Priority = in.Priority
	item.ExpiryDate = in.ExpiryDate
	item.Cost = in.Cost
	item.Tags = in.Tags
	item.Notes = in.Notes
}

func (s State) validateItemInput(in *models.ItemInput) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required.Error("name is required")),
		validation.Field(&in.Category, validation.Required.Error("category is required")),
		validation.Field(&in.Priority, validation.In(
			models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical,
		).Error("must be one of low, medium, high, critical")),
		validation.Field(&in.ExpiryDate, validation.Required, validation.Date(DateLayout).Error("must be a YYYY-MM-DD date")),
		validation.Field(&in.Cost, validation.Min(0.0).Error("must not be negative")),
	)
	verr, _ := apperr.FromValidation(err).(*apperr.ValidationError)
	if err != nil && verr == nil {
		return err
	}
	if in.Category != "" {
		if _, ok := findCategory(s.Categories, in.Category); !ok {
			verr = verr.Merge("", apperr.Invalid("category", "unknown category %q", in.Category))
		}
	}
	if verr != nil {
		return verr
	}
	return nil
}

func validateCategoryInput(in *models.CategoryInput) error {
	return apperr.FromValidation(validation.ValidateStruct(in,
		validation.Field(&in.Name, validation.Required.Error("name is required")),
		validation.Field(&in.Color, validation.Match(hexColorRe).Error("must be a hex color like #2563eb")),
	))
}
