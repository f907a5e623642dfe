package analytics

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"crmpulse/internal/domain"
)

// ContextOptions bounds the rendered report context. Zero values fall back to
// the defaults below.
type ContextOptions struct {
	SampleLimit     int // max sample complaints included
	SampleTextLimit int // max characters of each sample's text
	PriorityLimit   int // max priority issues listed
}

const (
	DefaultSampleLimit     = 5
	DefaultSampleTextLimit = 160
	DefaultPriorityLimit   = 5
)

func (o ContextOptions) withDefaults() ContextOptions {
	if o.SampleLimit <= 0 {
		o.SampleLimit = DefaultSampleLimit
	}
	if o.SampleTextLimit <= 0 {
		o.SampleTextLimit = DefaultSampleTextLimit
	}
	if o.PriorityLimit <= 0 {
		o.PriorityLimit = DefaultPriorityLimit
	}
	return o
}

// BuildContext renders a snapshot plus a small record sample into the
// bounded natural-language summary fed to the narrative generator. Pure
// formatting: no storage or network access, deterministic for identical
// inputs, and never fails on a well-formed snapshot. Complaint text is
// flattened to a single line and truncated with an explicit marker so it
// cannot break the downstream prompt structure.
func BuildContext(snap *Snapshot, samples []domain.ComplaintRecord, opts ContextOptions) string {
	opts = opts.withDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "Customer Feedback Data Summary:\n- Total Complaints: %d\n", snap.TotalComplaints)

	b.WriteString("\nSentiment Distribution:\n")
	writeCountMap(&b, snap.SentimentDistribution, snap.TotalComplaints)

	b.WriteString("\nCategory Distribution:\n")
	writeCountMap(&b, snap.CategoryDistribution, snap.TotalComplaints)

	b.WriteString("\nAverage Rating by Category:\n")
	for _, category := range sortedKeysFloat(snap.RatingByCategory) {
		fmt.Fprintf(&b, "  - %s: %.2f\n", category, snap.RatingByCategory[category])
	}

	cs := snap.ConfidenceStats
	b.WriteString("\nConfidence Score Statistics:\n")
	fmt.Fprintf(&b, "  - mean: %.3f\n  - median: %.3f\n  - min: %.3f\n  - max: %.3f\n", cs.Mean, cs.Median, cs.Min, cs.Max)

	if len(snap.TimeSeries) > 0 {
		first := snap.TimeSeries[0]
		last := snap.TimeSeries[len(snap.TimeSeries)-1]
		fmt.Fprintf(&b, "\nComplaint activity spans %s to %s across %d day(s).\n", first.Date, last.Date, len(snap.TimeSeries))
	}

	fmt.Fprintf(&b, "\nPriority Issues (rating <= %d): %d total", snap.PriorityThreshold, len(snap.PriorityIssues))
	shown := len(snap.PriorityIssues)
	if shown > opts.PriorityLimit {
		shown = opts.PriorityLimit
		fmt.Fprintf(&b, ", top %d shown", shown)
	}
	b.WriteString("\n")
	for _, issue := range snap.PriorityIssues[:shown] {
		fmt.Fprintf(&b, "  * [%s] Rating: %d - %s\n", issue.Category, issue.Rating, clampText(issue.Text, opts.SampleTextLimit))
	}

	if len(samples) > 0 {
		limit := len(samples)
		if limit > opts.SampleLimit {
			limit = opts.SampleLimit
		}
		fmt.Fprintf(&b, "\nRecent Complaint Samples (%d of %d):\n", limit, len(samples))
		for _, s := range samples[:limit] {
			fmt.Fprintf(&b, "  - [%s - %s] %s (Rating: %d)\n", s.Category, s.Sentiment, clampText(s.Text, opts.SampleTextLimit), s.Rating)
		}
	}

	return b.String()
}

func writeCountMap(b *strings.Builder, counts map[string]int, total int) {
	for _, key := range sortedKeysInt(counts) {
		count := counts[key]
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		fmt.Fprintf(b, "  - %s: %d (%.1f%%)\n", key, count, pct)
	}
}

// clampText collapses a complaint onto one line and caps its length, marking
// the cut so truncation is never silent. The cut lands on a rune boundary so
// multi-byte text never leaves a broken sequence in the prompt.
func clampText(text string, limit int) string {
	flat := strings.Join(strings.Fields(text), " ")
	if limit <= 0 || len(flat) <= limit {
		return flat
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(flat[cut]) {
		cut--
	}
	return flat[:cut] + "..."
}

func sortedKeysInt(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysFloat(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
