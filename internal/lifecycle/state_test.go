package lifecycle

import (
	"errors"
	"fmt"
	"testing"

	"github.com/starford/lapse/internal/apperr"
	"github.com/starford/lapse/internal/models"
)

func fixedIDs(t *testing.T) {
	t.Helper()
	n := 0
	orig := NewID
	NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	t.Cleanup(func() { NewID = orig })
}

func validInput() models.ItemInput {
	return models.ItemInput{
		Name:       "  CISSP ",
		Category:   "certifications",
		ExpiryDate: dateIn(60),
		Cost:       599,
		Tags:       []string{" security", "", "isc2 "},
	}
}

func TestCreateItem(t *testing.T) {
	fixedIDs(t)
	s := NewState()
	next, item, err := s.CreateItem(validInput(), today)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.ID != "id-1" || item.Name != "CISSP" || item.Priority != models.PriorityMedium {
		t.Errorf("item = %+v", item)
	}
	if !item.CreatedAt.Equal(today) || item.LastRenewed != nil || len(item.RenewalHistory) != 0 {
		t.Errorf("lifecycle fields wrong: %+v", item)
	}
	if len(item.Tags) != 2 || item.Tags[0] != "security" || item.Tags[1] != "isc2" {
		t.Errorf("tags = %q", item.Tags)
	}
	if len(s.Items) != 0 {
		t.Error("receiver state was mutated")
	}
	if len(next.Items) != 1 {
		t.Errorf("next items = %d", len(next.Items))
	}
}

func TestCreateItem_Validation(t *testing.T) {
	s := NewState()
	cases := map[string]func(*models.ItemInput){
		"name":       func(in *models.ItemInput) { in.Name = "   " },
		"category":   func(in *models.ItemInput) { in.Category = "nope" },
		"priority":   func(in *models.ItemInput) { in.Priority = "urgent" },
		"expiryDate": func(in *models.ItemInput) { in.ExpiryDate = "31/12/2026" },
		"cost":       func(in *models.ItemInput) { in.Cost = -1 },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			next, _, err := s.CreateItem(in, today)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			var verr *apperr.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("err is %T", err)
			}
			if _, ok := verr.Fields[field]; !ok {
				t.Errorf("fields = %v, want key %q", verr.Fields, field)
			}
			if len(next.Items) != 0 {
				t.Error("failed create changed state")
			}
		})
	}
}

func TestEditItem_PreservesIdentityAndHistory(t *testing.T) {
	fixedIDs(t)
	s, item, _ := NewState().CreateItem(validInput(), today)
	s, _, _ = s.RenewItem(item.ID, today.AddDate(0, 0, 1))

	in := validInput()
	in.Name = "CISSP (renamed)"
	in.Category = "training"
	in.Priority = models.PriorityCritical
	s, edited, err := s.EditItem(item.ID, in)
	if err != nil {
		t.Fatalf("EditItem: %v", err)
	}
	if edited.ID != item.ID || !edited.CreatedAt.Equal(item.CreatedAt) {
		t.Errorf("identity changed: %+v", edited)
	}
	if len(edited.RenewalHistory) != 1 || edited.LastRenewed == nil {
		t.Errorf("renewal record lost: %+v", edited)
	}
	if edited.Name != "CISSP (renamed)" || edited.Category != "training" || edited.Priority != models.PriorityCritical {
		t.Errorf("fields not replaced: %+v", edited)
	}
	if _, _, err := s.EditItem("missing", in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("edit missing: %v", err)
	}
}

func TestRenewItem_AppendsHistory(t *testing.T) {
	fixedIDs(t)
	s, item, _ := NewState().CreateItem(validInput(), today)
	for i := 1; i <= 3; i++ {
		var err error
		s, item, err = s.RenewItem(item.ID, today.AddDate(0, 0, i))
		if err != nil {
			t.Fatalf("RenewItem: %v", err)
		}
		if len(item.RenewalHistory) != i {
			t.Fatalf("history len = %d, want %d", len(item.RenewalHistory), i)
		}
		last := item.RenewalHistory[len(item.RenewalHistory)-1]
		if !item.LastRenewed.Equal(last.Date) || last.Cost != 599 {
			t.Errorf("renewal %d = %+v, lastRenewed %v", i, last, item.LastRenewed)
		}
	}
	if _, _, err := s.RenewItem("missing", today); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("renew missing: %v", err)
	}
}

func TestRenewItem_DoesNotAliasPreviousState(t *testing.T) {
	fixedIDs(t)
	s0, item, _ := NewState().CreateItem(validInput(), today)
	s1, _, _ := s0.RenewItem(item.ID, today)
	if len(s0.Items[0].RenewalHistory) != 0 || s0.Items[0].LastRenewed != nil {
		t.Error("renew leaked into the previous state")
	}
	if len(s1.Items[0].RenewalHistory) != 1 {
		t.Error("renew missing from the next state")
	}
}

func TestDeleteItem_SecondDeleteFails(t *testing.T) {
	fixedIDs(t)
	s, item, _ := NewState().CreateItem(validInput(), today)
	s, removed, err := s.DeleteItem(item.ID)
	if err != nil || removed.ID != item.ID {
		t.Fatalf("DeleteItem: %v", err)
	}
	if len(s.Items) != 0 {
		t.Fatal("item still present")
	}
	if _, _, err := s.DeleteItem(item.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v, want not found", err)
	}
}

func TestCategories_DeleteLeavesDanglingItems(t *testing.T) {
	fixedIDs(t)
	s, cat, err := NewState().CreateCategory(models.CategoryInput{Name: "Cloud", Color: "#abcdef"})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	in := validInput()
	in.Category = cat.ID
	s, item, err := s.CreateItem(in, today)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	s, _, err = s.DeleteCategory(cat.ID)
	if err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if len(s.Items) != 1 {
		t.Fatal("category delete cascaded")
	}
	if got := s.CategoryName(item.Category); got != UnknownCategory {
		t.Errorf("CategoryName = %q", got)
	}
	if card := Present(s.Items[0], s.Categories, today); card.CategoryName != UnknownCategory {
		t.Errorf("card category = %q", card.CategoryName)
	}
	if _, _, err := s.DeleteCategory(cat.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second category delete: %v", err)
	}
}

func TestCategories_Validation(t *testing.T) {
	s := NewState()
	if _, _, err := s.CreateCategory(models.CategoryInput{Name: ""}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty name: %v", err)
	}
	if _, _, err := s.CreateCategory(models.CategoryInput{Name: "x", Color: "blue"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad color: %v", err)
	}
	next, c, err := s.EditCategory("skills", models.CategoryInput{Name: "Abilities", Color: "#fff"})
	if err != nil || c.Name != "Abilities" {
		t.Fatalf("EditCategory: %+v, %v", c, err)
	}
	if next.CategoryName("skills") != "Abilities" || s.CategoryName("skills") != "Skills" {
		t.Error("EditCategory should only affect the next state")
	}
}

func TestRecordActivity_Caps(t *testing.T) {
	var log []models.Activity
	for i := 0; i < ActivityCap+5; i++ {
		log = RecordActivity(log, models.ActivityAdd, fmt.Sprintf("a%d", i), today)
	}
	if len(log) != ActivityCap {
		t.Fatalf("len = %d", len(log))
	}
	if log[0].Description != fmt.Sprintf("a%d", ActivityCap+4) {
		t.Errorf("newest first violated: %q", log[0].Description)
	}
}
