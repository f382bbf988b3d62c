package lifecycle

import (
	"math"
	"time"

	"github.com/starford/lapse/internal/models"
)

const (
	// TimelineDays is how far ahead the expiry timeline is computed.
	TimelineDays = 90
	// TimelineDisplayDays is the leading window of the timeline shown in charts.
	TimelineDisplayDays = 30
	// NoCategory marks an empty mostActiveCategory.
	NoCategory = "-"
)

// DashboardSummary holds the headline counters. UpToDate is everything that
// is neither expiring soon nor expired, so it covers both active and renewed.
type DashboardSummary struct {
	Total        int `json:"total"`
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
	UpToDate     int `json:"upToDate"`
}

// Dashboard computes the headline counters.
func Dashboard(items []models.KnowledgeItem, now time.Time) DashboardSummary {
	h := CountStatuses(items, now)
	return DashboardSummary{
		Total:        len(items),
		ExpiringSoon: h.ExpiringSoon,
		Expired:      h.Expired,
		UpToDate:     len(items) - h.ExpiringSoon - h.Expired,
	}
}

// StatusHistogram counts items per status.
type StatusHistogram struct {
	Active       int `json:"active"`
	ExpiringSoon int `json:"expiringSoon"`
	Expired      int `json:"expired"`
	Renewed      int `json:"renewed"`
}

// Count returns the counter for st.
func (h StatusHistogram) Count(st models.Status) int {
	switch st {
	case models.StatusActive:
		return h.Active
	case models.StatusExpiringSoon:
		return h.ExpiringSoon
	case models.StatusExpired:
		return h.Expired
	case models.StatusRenewed:
		return h.Renewed
	}
	return 0
}

// CountStatuses classifies every item once and tallies the result.
func CountStatuses(items []models.KnowledgeItem, now time.Time) StatusHistogram {
	var h StatusHistogram
	for _, it := range items {
		switch Classify(it, now) {
		case models.StatusActive:
			h.Active++
		case models.StatusExpiringSoon:
			h.ExpiringSoon++
		case models.StatusExpired:
			h.Expired++
		case models.StatusRenewed:
			h.Renewed++
		}
	}
	return h
}

// TimelinePoint is the number of items expiring on one calendar date.
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Timeline counts, for each of the next days calendar days starting today,
// the items whose expiry date equals that date exactly.
func Timeline(items []models.KnowledgeItem, now time.Time, days int) []TimelinePoint {
	byDate := make(map[string]int, len(items))
	for _, it := range items {
		if t, err := ParseDate(it.ExpiryDate); err == nil {
			byDate[t.Format(DateLayout)]++
		}
	}
	start := midnight(now)
	out := make([]TimelinePoint, days)
	for i := range out {
		d := start.AddDate(0, 0, i).Format(DateLayout)
		out[i] = TimelinePoint{Date: d, Count: byDate[d]}
	}
	return out
}

// CategoryCount is the item count of a single category.
type CategoryCount struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CategoryHistogram counts items per category, in stored category order.
// Items referencing unknown categories are not counted.
func CategoryHistogram(items []models.KnowledgeItem, categories []models.Category) []CategoryCount {
	counts := make(map[string]int, len(categories))
	for _, it := range items {
		counts[it.Category]++
	}
	out := make([]CategoryCount, len(categories))
	for i, c := range categories {
		out[i] = CategoryCount{ID: c.ID, Name: c.Name, Count: counts[c.ID]}
	}
	return out
}

// PriorityHistogram counts items per priority.
type PriorityHistogram struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	Critical int `json:"critical"`
}

// CountPriorities tallies items per priority. Unknown priorities are ignored.
func CountPriorities(items []models.KnowledgeItem) PriorityHistogram {
	var h PriorityHistogram
	for _, it := range items {
		switch it.Priority {
		case models.PriorityLow:
			h.Low++
		case models.PriorityMedium:
			h.Medium++
		case models.PriorityHigh:
			h.High++
		case models.PriorityCritical:
			h.Critical++
		}
	}
	return h
}

// RenewalStats summarises renewal activity and spend.
type RenewalStats struct {
	TotalRenewals      int     `json:"totalRenewals"`
	TotalCost          float64 `json:"totalCost"`
	AvgLifespanDays    int     `json:"avgLifespanDays"`
	RenewalRate        int     `json:"renewalRate"`
	MostActiveCategory string  `json:"mostActiveCategory"`
}

// TotalCost sums every item's base cost and every renewal cost.
func TotalCost(items []models.KnowledgeItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Cost
		for _, r := range it.RenewalHistory {
			total += r.Cost
		}
	}
	return total
}

// RenewalAnalytics computes renewal counts, spend, average lifespan, renewal
// rate and the category with the most renewals.
func RenewalAnalytics(items []models.KnowledgeItem, categories []models.Category) RenewalStats {
	stats := RenewalStats{
		TotalCost:          TotalCost(items),
		MostActiveCategory: NoCategory,
	}

	var lifespanSum, lifespanN int
	perCategory := make(map[string]int)
	for _, it := range items {
		n := len(it.RenewalHistory)
		stats.TotalRenewals += n
		perCategory[it.Category] += n
		if n == 0 {
			continue
		}
		last := it.CreatedAt
		if it.LastRenewed != nil {
			last = *it.LastRenewed
		}
		lifespanSum += DaysSince(it.CreatedAt, last)
		lifespanN++
	}

	if lifespanN > 0 {
		stats.AvgLifespanDays = int(math.Round(float64(lifespanSum) / float64(lifespanN)))
	}
	if len(items) > 0 {
		stats.RenewalRate = int(math.Round(100 * float64(stats.TotalRenewals) / float64(len(items))))

		best := -1
		for _, c := range categories {
			if perCategory[c.ID] > best {
				best = perCategory[c.ID]
				stats.MostActiveCategory = c.Name
			}
		}
	}
	return stats
}

// ChartSeries is a renderer-neutral dataset: parallel labels and values.
type ChartSeries struct {
	Kind   string    `json:"kind"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Charts bundles every dataset the dashboard draws.
type Charts struct {
	Status   ChartSeries `json:"status"`
	Timeline ChartSeries `json:"timeline"`
	Category ChartSeries `json:"category"`
	Priority ChartSeries `json:"priority"`
}

// BuildCharts derives every chart dataset from the current collections. The
// timeline series carries only the display window.
func BuildCharts(items []models.KnowledgeItem, categories []models.Category, now time.Time) Charts {
	sh := CountStatuses(items, now)
	status := ChartSeries{Kind: "status"}
	for _, st := range models.Statuses {
		status.Labels = append(status.Labels, string(st))
		status.Values = append(status.Values, float64(sh.Count(st)))
	}

	timeline := ChartSeries{Kind: "timeline"}
	for _, p := range Timeline(items, now, TimelineDays)[:TimelineDisplayDays] {
		timeline.Labels = append(timeline.Labels, p.Date)
		timeline.Values = append(timeline.Values, float64(p.Count))
	}

	category := ChartSeries{Kind: "category", Labels: []string{}, Values: []float64{}}
	for _, c := range CategoryHistogram(items, categories) {
		category.Labels = append(category.Labels, c.Name)
		category.Values = append(category.Values, float64(c.Count))
	}

	ph := CountPriorities(items)
	priority := ChartSeries{
		Kind:   "priority",
		Labels: []string{string(models.PriorityLow), string(models.PriorityMedium), string(models.PriorityHigh), string(models.PriorityCritical)},
		Values: []float64{float64(ph.Low), float64(ph.Medium), float64(ph.High), float64(ph.Critical)},
	}

	return Charts{Status: status, Timeline: timeline, Category: category, Priority: priority}
}
