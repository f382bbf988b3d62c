package parser

import (
	"errors"
	"testing"

	"github.com/starford/lapse/internal/apperr"
)

func TestParseDocument_JSON(t *testing.T) {
	input := []byte(`{
  "knowledgeItems": [{"id": "1", "name": "CKA", "category": "certifications", "expiryDate": "2026-05-01", "createdAt": "2026-01-01T10:00:00Z"}],
  "categories": [],
  "settings": {"theme": "dark"},
  "exportDate": "2026-03-01T12:00:00Z"
}`)
	doc, err := ParseDocument(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.KnowledgeItems) != 1 || doc.KnowledgeItems[0].Name != "CKA" {
		t.Errorf("items = %+v", doc.KnowledgeItems)
	}
	if doc.Categories == nil || len(doc.Categories) != 0 {
		t.Errorf("present empty categories should be an empty non-nil slice, got %#v", doc.Categories)
	}
	if string(doc.Settings) != `{"theme": "dark"}` {
		t.Errorf("settings = %s", doc.Settings)
	}
	if doc.ExportDate == nil || doc.ExportDate.Year() != 2026 {
		t.Errorf("exportDate = %v", doc.ExportDate)
	}
}

func TestParseDocument_AbsentAndNullSections(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"knowledgeItems": null, "settings": {"reminderDays": 3}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HasItems() || doc.HasCategories() {
		t.Errorf("null/absent sections should stay absent: %+v", doc)
	}
	if doc.Settings == nil {
		t.Error("settings missing")
	}
}

func TestParseDocument_NumericIDs(t *testing.T) {
	input := []byte(`{
  "knowledgeItems": [
    {"id": 1741600000000, "name": "CKA", "category": "certifications", "expiryDate": "2026-05-01",
     "cost": 395, "tags": ["k8s"], "lastRenewed": null, "renewalHistory": [], "createdAt": "2025-03-10T09:46:40.000Z"},
    {"id": "abc", "name": "Named", "category": 1741600000001, "expiryDate": "2026-06-01", "createdAt": "2025-03-10T09:46:40.000Z"}
  ],
  "categories": [{"id": 1741600000001, "name": "Custom", "color": "#123456"}]
}`)
	doc, err := ParseDocument(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.KnowledgeItems[0].ID; got != "1741600000000" {
		t.Errorf("numeric item id = %q", got)
	}
	if got := doc.KnowledgeItems[1]; got.ID != "abc" || got.Category != "1741600000001" {
		t.Errorf("second item = %+v", got)
	}
	if got := doc.Categories[0].ID; got != "1741600000001" {
		t.Errorf("numeric category id = %q", got)
	}
	if doc.KnowledgeItems[0].LastRenewed != nil {
		t.Errorf("lastRenewed = %v", doc.KnowledgeItems[0].LastRenewed)
	}
}

func TestParseDocument_NullIDStaysEmpty(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"knowledgeItems": [{"id": null, "name": "CKA", "category": "certifications"}]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := doc.KnowledgeItems[0].ID; got != "" {
		t.Errorf("null id = %q", got)
	}
}

func TestParseDocument_YAML(t *testing.T) {
	input := []byte(`knowledgeItems:
  - id: "1"
    name: First Aid
    category: training
    expiryDate: 2026-07-15
    createdAt: 2026-01-02T08:00:00Z
    tags: [health]
categories:
  - id: training
    name: Training
    color: "#059669"
`)
	doc, err := ParseDocument(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.KnowledgeItems) != 1 {
		t.Fatalf("items = %+v", doc.KnowledgeItems)
	}
	it := doc.KnowledgeItems[0]
	if it.ExpiryDate != "2026-07-15" {
		t.Errorf("expiryDate = %q, want bare date", it.ExpiryDate)
	}
	if it.CreatedAt.Hour() != 8 || len(it.Tags) != 1 {
		t.Errorf("item = %+v", it)
	}
	if len(doc.Categories) != 1 || doc.Categories[0].Color != "#059669" {
		t.Errorf("categories = %+v", doc.Categories)
	}
	if doc.Settings != nil {
		t.Errorf("settings should be absent, got %s", doc.Settings)
	}
}

func TestParseDocument_Invalid(t *testing.T) {
	cases := map[string]string{
		"empty":          "   ",
		"broken json":    `{"knowledgeItems": [`,
		"wrong type":     `{"knowledgeItems": {"id": "1"}}`,
		"settings array": `{"settings": [1, 2]}`,
		"yaml scalar":    "just a string",
		"broken yaml":    "a: [b\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument([]byte(in))
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	if Detect([]byte("  \n{}")) != FormatJSON {
		t.Error("leading brace should be JSON")
	}
	if Detect([]byte("knowledgeItems: []")) != FormatYAML {
		t.Error("mapping should be YAML")
	}
}
