package lifecycle

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"pgregory.net/rapid"

	"github.com/starford/lapse/internal/models"
)

func sampleItems() []models.KnowledgeItem {
	return []models.KnowledgeItem{
		{ID: "1", Name: "AWS Solutions Architect", Description: "cloud cert", Category: "certifications", Priority: models.PriorityHigh, ExpiryDate: dateIn(10)},
		{ID: "2", Name: "First Aid", Description: "Red Cross course", Category: "training", Priority: models.PriorityLow, ExpiryDate: dateIn(-2)},
		{ID: "3", Name: "Go", Description: "language skills", Category: "skills", Priority: models.PriorityMedium, ExpiryDate: dateIn(200)},
		{ID: "4", Name: "CKA", Description: "Kubernetes CLOUD admin", Category: "certifications", Priority: models.PriorityCritical, ExpiryDate: dateIn(45)},
	}
}

func ids(items []models.KnowledgeItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilterItems(t *testing.T) {
	items := sampleItems()
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"zero filter", Filter{}, []string{"1", "2", "3", "4"}},
		{"all", Filter{Category: All, Status: All}, []string{"1", "2", "3", "4"}},
		{"search name case-insensitive", Filter{Search: "aws"}, []string{"1"}},
		{"search description", Filter{Search: "cloud"}, []string{"1", "4"}},
		{"category", Filter{Category: "certifications"}, []string{"1", "4"}},
		{"status", Filter{Status: string(models.StatusExpired)}, []string{"2"}},
		{"combined", Filter{Search: "cloud", Category: "certifications", Status: string(models.StatusActive)}, []string{"4"}},
		{"no match", Filter{Search: "zzz"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterItems(items, tt.filter, today))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FilterItems mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if diff := cmp.Diff([]int{3, 4}, Paginate(items, 2, 2)); diff != "" {
		t.Errorf("page 2: %s", diff)
	}
	if diff := cmp.Diff([]int{5}, Paginate(items, 3, 2)); diff != "" {
		t.Errorf("page 3: %s", diff)
	}
	if got := Paginate(items, 4, 2); len(got) != 0 || got == nil {
		t.Errorf("page past end = %v, want empty non-nil", got)
	}
	if diff := cmp.Diff([]int{1, 2}, Paginate(items, 0, 2)); diff != "" {
		t.Errorf("page 0 should clamp to 1: %s", diff)
	}
	if TotalPages(5, 2) != 3 || TotalPages(0, 2) != 1 || TotalPages(4, 2) != 2 {
		t.Error("TotalPages mismatch")
	}
}

func TestSortItems(t *testing.T) {
	items := sampleItems()
	cases := map[string][]string{
		models.SortExpiryDate: {"2", "1", "4", "3"},
		models.SortName:       {"1", "4", "2", "3"},
		models.SortPriority:   {"4", "1", "3", "2"},
		"bogus":               {"1", "2", "3", "4"},
	}
	for key, want := range cases {
		if diff := cmp.Diff(want, ids(SortItems(items, key))); diff != "" {
			t.Errorf("SortItems(%q) mismatch (-want +got):\n%s", key, diff)
		}
	}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, ids(items)); diff != "" {
		t.Errorf("SortItems mutated its input: %s", diff)
	}
}

func TestProperty_FilterIdempotentAndOrderPreserving(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 30).Draw(rt, "n")
		items := make([]models.KnowledgeItem, n)
		for i := range items {
			items[i] = models.KnowledgeItem{
				ID:          rapid.StringMatching(`[a-z0-9]{6}`).Draw(rt, "id") + string(rune('A'+i%26)),
				Name:        rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "name"),
				Description: rapid.StringMatching(`[A-Za-z ]{0,12}`).Draw(rt, "desc"),
				Category:    rapid.SampledFrom([]string{"certifications", "training", "skills"}).Draw(rt, "cat"),
				ExpiryDate:  dateIn(rapid.IntRange(-60, 120).Draw(rt, "offset")),
			}
		}
		f := Filter{
			Search:   rapid.StringMatching(`[a-z]{0,2}`).Draw(rt, "search"),
			Category: rapid.SampledFrom([]string{All, "certifications", "training", "skills"}).Draw(rt, "fcat"),
			Status:   rapid.SampledFrom([]string{All, "active", "expiring-soon", "expired", "renewed"}).Draw(rt, "fstatus"),
		}

		once := FilterItems(items, f, today)
		twice := FilterItems(once, f, today)
		if diff := cmp.Diff(once, twice); diff != "" {
			rt.Fatalf("not idempotent (-once +twice):\n%s", diff)
		}

		// once must be a subsequence of items.
		j := 0
		for _, it := range items {
			if j < len(once) && cmp.Equal(it, once[j]) {
				j++
			}
		}
		if j != len(once) {
			rt.Fatalf("output is not an order-preserving subset")
		}
	})
}
