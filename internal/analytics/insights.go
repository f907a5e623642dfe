package analytics

import (
	"fmt"
	"sort"

	"crmpulse/internal/domain"
)

// InsightConfig carries the thresholds for the rule-based insights. Values
// are injected so boundary behavior can be tested exactly at the threshold;
// both share comparisons are strictly greater-than.
type InsightConfig struct {
	NegativeShareThreshold float64 // share of worst-label complaints (default 0.3)
	PriorityShareThreshold float64 // share of priority issues (default 0.2)
}

const (
	DefaultNegativeShareThreshold = 0.3
	DefaultPriorityShareThreshold = 0.2
)

func (c InsightConfig) withDefaults() InsightConfig {
	if c.NegativeShareThreshold == 0 {
		c.NegativeShareThreshold = DefaultNegativeShareThreshold
	}
	if c.PriorityShareThreshold == 0 {
		c.PriorityShareThreshold = DefaultPriorityShareThreshold
	}
	return c
}

// ExtractInsights derives short headline bullets from the aggregate numbers
// alone, independent of narrative generation. The two share-based insights
// fire only above their thresholds; the top-category and worst-rated-category
// insights always fire, tie-broken by lexicographic category name.
func ExtractInsights(snap *Snapshot, cfg InsightConfig) ([]string, error) {
	if snap == nil || snap.TotalComplaints == 0 {
		return nil, ErrEmptyDataset
	}
	cfg = cfg.withDefaults()
	total := float64(snap.TotalComplaints)

	var insights []string

	if bad := snap.SentimentDistribution[string(domain.SentimentBad)]; float64(bad)/total > cfg.NegativeShareThreshold {
		insights = append(insights, fmt.Sprintf(
			"High volume of negative feedback: %d complaints (%.1f%%)", bad, float64(bad)/total*100))
	}

	if priority := len(snap.PriorityIssues); float64(priority)/total > cfg.PriorityShareThreshold {
		insights = append(insights, fmt.Sprintf(
			"%d high-priority issues need immediate attention", priority))
	}

	topCategory, topCount := maxCountCategory(snap.CategoryDistribution)
	insights = append(insights, fmt.Sprintf(
		"Most complaints in: %s (%d complaints)", topCategory, topCount))

	worstCategory, worstRating := minRatingCategory(snap.RatingByCategory)
	insights = append(insights, fmt.Sprintf(
		"Lowest rated category: %s (Avg: %.2f/5)", worstCategory, worstRating))

	return insights, nil
}

func maxCountCategory(counts map[string]int) (string, int) {
	best, bestCount := "", -1
	for _, category := range sortedKeysInt(counts) {
		if counts[category] > bestCount {
			best, bestCount = category, counts[category]
		}
	}
	return best, bestCount
}

func minRatingCategory(ratings map[string]float64) (string, float64) {
	keys := make([]string, 0, len(ratings))
	for k := range ratings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	worst, worstRating := "", 0.0
	for _, category := range keys {
		if worst == "" || ratings[category] < worstRating {
			worst, worstRating = category, ratings[category]
		}
	}
	return worst, worstRating
}
