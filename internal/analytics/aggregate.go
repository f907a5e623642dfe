package analytics

import (
	"errors"
	"math"
	"sort"
	"time"

	"crmpulse/internal/domain"
)

// ErrEmptyDataset is returned when a statistic requiring a non-empty record
// set is requested against zero records.
var ErrEmptyDataset = errors.New("no complaint records to aggregate")

// ConfidenceStats summarizes the classifier confidence across all records,
// rounded to 3 decimals.
type ConfidenceStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// DateCount is one time-series bucket: complaints per calendar date.
type DateCount struct {
	Date  string `json:"date"` // ISO-8601, YYYY-MM-DD
	Count int    `json:"count"`
}

// CategorySentimentCount is one cross-tab cell with a non-zero count.
type CategorySentimentCount struct {
	Category  string           `json:"category"`
	Sentiment domain.Sentiment `json:"sentiment"`
	Count     int              `json:"count"`
}

// Snapshot is the full set of aggregate views over one point-in-time fetch of
// the complaint table. All sub-views derive from the same record slice; a
// snapshot is never partially populated.
type Snapshot struct {
	TotalComplaints       int                      `json:"total_complaints"`
	SentimentDistribution map[string]int           `json:"sentiment_distribution"`
	CategoryDistribution  map[string]int           `json:"category_distribution"`
	RatingByCategory      map[string]float64       `json:"rating_by_category"`
	ConfidenceStats       ConfidenceStats          `json:"confidence_stats"`
	PriorityIssues        []domain.ComplaintRecord `json:"priority_issues"`
	PriorityThreshold     int                      `json:"priority_threshold"`
	TimeSeries            []DateCount              `json:"time_series"`
	CrossTab              []CategorySentimentCount `json:"category_sentiment_correlation"`
}

// DefaultPriorityThreshold flags complaints rated at or below this value.
const DefaultPriorityThreshold = 2

// ComputeSnapshot aggregates one in-memory fetch of the complaint table into
// a Snapshot. Every record is validated first: a malformed record aborts the
// whole computation rather than polluting the aggregates. An empty record set
// returns ErrEmptyDataset, since the confidence statistics have no defined
// value over zero records.
//
// Means are rounded half away from zero (rating to 2 decimals, confidence to
// 3). Deterministic: identical input yields an identical snapshot.
func ComputeSnapshot(records []domain.ComplaintRecord, priorityThreshold int) (*Snapshot, error) {
	if len(records) == 0 {
		return nil, ErrEmptyDataset
	}
	if priorityThreshold <= 0 {
		priorityThreshold = DefaultPriorityThreshold
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}

	snap := &Snapshot{
		TotalComplaints:       len(records),
		SentimentDistribution: make(map[string]int),
		CategoryDistribution:  make(map[string]int),
		RatingByCategory:      make(map[string]float64),
		PriorityThreshold:     priorityThreshold,
	}

	ratingSums := make(map[string]int)
	byDate := make(map[string]int)
	crossTab := make(map[string]map[domain.Sentiment]int)
	confidences := make([]float64, 0, len(records))

	for _, r := range records {
		snap.SentimentDistribution[string(r.Sentiment)]++
		snap.CategoryDistribution[r.Category]++
		ratingSums[r.Category] += r.Rating
		confidences = append(confidences, r.Confidence)
		byDate[r.CreatedAt.Format(time.DateOnly)]++

		if crossTab[r.Category] == nil {
			crossTab[r.Category] = make(map[domain.Sentiment]int)
		}
		crossTab[r.Category][r.Sentiment]++

		if r.Rating <= priorityThreshold {
			snap.PriorityIssues = append(snap.PriorityIssues, r)
		}
	}

	for category, sum := range ratingSums {
		count := snap.CategoryDistribution[category]
		snap.RatingByCategory[category] = round2(float64(sum) / float64(count))
	}

	snap.ConfidenceStats = confidenceStats(confidences)

	sort.Slice(snap.PriorityIssues, func(i, j int) bool {
		return snap.PriorityIssues[i].ID < snap.PriorityIssues[j].ID
	})

	for date, count := range byDate {
		snap.TimeSeries = append(snap.TimeSeries, DateCount{Date: date, Count: count})
	}
	sort.Slice(snap.TimeSeries, func(i, j int) bool {
		return snap.TimeSeries[i].Date < snap.TimeSeries[j].Date
	})

	// Cross-tab cells sorted by category, then sentiment in rating order.
	categories := make([]string, 0, len(crossTab))
	for category := range crossTab {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		for _, sentiment := range domain.Sentiments {
			if count := crossTab[category][sentiment]; count > 0 {
				snap.CrossTab = append(snap.CrossTab, CategorySentimentCount{
					Category:  category,
					Sentiment: sentiment,
					Count:     count,
				})
			}
		}
	}

	return snap, nil
}

func confidenceStats(values []float64) ConfidenceStats {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	n := len(sorted)
	var median float64
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return ConfidenceStats{
		Mean:   round3(sum / float64(n)),
		Median: round3(median),
		Min:    round3(sorted[0]),
		Max:    round3(sorted[n-1]),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
