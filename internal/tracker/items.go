package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/lifecycle"
	"github.com/starford/lapse/internal/models"
)

// ListQuery selects a page of items. Zero Sort and PageSize fall back to the
// current settings.
type ListQuery struct {
	Filter   lifecycle.Filter
	Sort     string
	Page     int
	PageSize int
}

// ItemPage is one page of presented items.
type ItemPage struct {
	Items      []lifecycle.ItemCard `json:"items"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	Total      int                  `json:"total"`
	TotalPages int                  `json:"totalPages"`
}

// ListItems filters, sorts and paginates the item collection.
func (s *Service) ListItems(_ context.Context, q ListQuery) (ItemPage, error) {
	if st := strings.TrimSpace(q.Filter.Status); st != "" && st != lifecycle.All && !lifecycle.ValidStatus(st) {
		return ItemPage{}, apperr.Invalid("status", "unknown status %q", st)
	}
	if q.Page < 0 || q.PageSize < 0 {
		return ItemPage{}, apperr.Invalid("page", "must not be negative")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	sortKey := q.Sort
	if sortKey == "" {
		sortKey = s.settings.DefaultSort
	}
	size := q.PageSize
	if size == 0 {
		size = s.settings.ItemsPerPage
	}
	page := max(q.Page, 1)

	matched := lifecycle.SortItems(lifecycle.FilterItems(s.state.Items, q.Filter, now), sortKey)
	return ItemPage{
		Items:      lifecycle.PresentAll(lifecycle.Paginate(matched, page, size), s.state.Categories, now),
		Page:       page,
		PageSize:   size,
		Total:      len(matched),
		TotalPages: lifecycle.TotalPages(len(matched), size),
	}, nil
}

// GetItem returns one presented item.
func (s *Service) GetItem(_ context.Context, id string) (lifecycle.ItemCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, err := s.state.Item(id)
	if err != nil {
		return lifecycle.ItemCard{}, err
	}
	return lifecycle.Present(item, s.state.Categories, s.now()), nil
}

// CreateItem adds a new item.
func (s *Service) CreateItem(_ context.Context, in models.ItemInput) (lifecycle.ItemCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	next, item, err := s.state.CreateItem(in, now)
	if err != nil {
		return lifecycle.ItemCard{}, err
	}
	if err := s.commit(next, s.settings, models.ActivityAdd, "Added knowledge item: "+item.Name); err != nil {
		return lifecycle.ItemCard{}, err
	}
	s.notifier.PublishChange(EventItemCreated, item.ID)
	return lifecycle.Present(item, next.Categories, now), nil
}

// EditItem replaces the editable fields of an item.
func (s *Service) EditItem(_ context.Context, id string, in models.ItemInput) (lifecycle.ItemCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, item, err := s.state.EditItem(id, in)
	if err != nil {
		return lifecycle.ItemCard{}, err
	}
	if err := s.commit(next, s.settings, models.ActivityEdit, "Updated knowledge item: "+item.Name); err != nil {
		return lifecycle.ItemCard{}, err
	}
	s.notifier.PublishChange(EventItemUpdated, item.ID)
	return lifecycle.Present(item, next.Categories, s.now()), nil
}

// RenewItem records a renewal at the current time.
func (s *Service) RenewItem(_ context.Context, id string) (lifecycle.ItemCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	next, item, err := s.state.RenewItem(id, now)
	if err != nil {
		return lifecycle.ItemCard{}, err
	}
	if err := s.commit(next, s.settings, models.ActivityRenew, "Renewed knowledge item: "+item.Name); err != nil {
		return lifecycle.ItemCard{}, err
	}
	s.notifier.PublishChange(EventItemRenewed, item.ID)
	s.notifier.PublishNotice("Successfully renewed: " + item.Name)
	return lifecycle.Present(item, next.Categories, now), nil
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, item, err := s.state.DeleteItem(id)
	if err != nil {
		return err
	}
	if err := s.commit(next, s.settings, models.ActivityDelete, "Deleted knowledge item: "+item.Name); err != nil {
		return err
	}
	s.notifier.PublishChange(EventItemDeleted, item.ID)
	return nil
}

// ListCategories returns every category with its item count, in stored order.
func (s *Service) ListCategories(_ context.Context) []lifecycle.CategorySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lifecycle.SummarizeCategories(s.state.Items, s.state.Categories)
}

// GetCategory returns one category.
func (s *Service) GetCategory(_ context.Context, id string) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Category(id)
}

// CreateCategory adds a category.
func (s *Service) CreateCategory(_ context.Context, in models.CategoryInput) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := s.state.CreateCategory(in)
	if err != nil {
		return models.Category{}, err
	}
	if err := s.commit(next, s.settings, models.ActivityCategory, "Added category: "+c.Name); err != nil {
		return models.Category{}, err
	}
	s.notifier.PublishChange(EventCategoryCreated, c.ID)
	return c, nil
}

// EditCategory replaces a category's editable fields.
func (s *Service) EditCategory(_ context.Context, id string, in models.CategoryInput) (models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := s.state.EditCategory(id, in)
	if err != nil {
		return models.Category{}, err
	}
	if err := s.commit(next, s.settings, models.ActivityCategory, "Updated category: "+c.Name); err != nil {
		return models.Category{}, err
	}
	s.notifier.PublishChange(EventCategoryUpdated, c.ID)
	return c, nil
}

// DeleteCategory removes a category. Items that referenced it keep the
// dangling id and present as "Unknown".
func (s *Service) DeleteCategory(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, c, err := s.state.DeleteCategory(id)
	if err != nil {
		return err
	}
	orphaned := 0
	for _, it := range next.Items {
		if it.Category == c.ID {
			orphaned++
		}
	}
	desc := "Deleted category: " + c.Name
	if orphaned > 0 {
		desc += fmt.Sprintf(" (%d items now uncategorized)", orphaned)
	}
	if err := s.commit(next, s.settings, models.ActivityCategory, desc); err != nil {
		return err
	}
	s.notifier.PublishChange(EventCategoryDeleted, c.ID)
	return nil
}
