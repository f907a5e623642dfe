package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"crmpulse/internal/analytics"
	"crmpulse/internal/narrative"
	"crmpulse/internal/store"
)

// ReportResult is one full report run: the numeric snapshot, the headline
// insights, and the narrative if the model delivered one. Analytics are
// always present when the error is nil; only the narrative is optional.
type ReportResult struct {
	Snapshot           *analytics.Snapshot `json:"analytics"`
	Insights           []string            `json:"insights"`
	Narrative          string              `json:"report,omitempty"`
	NarrativeAvailable bool                `json:"narrative_available"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// BuildReport runs the full pipeline against the current table contents:
// one fetch, snapshot, insights, report context, narrative. A narrative
// failure is logged and degrades the result instead of failing the run;
// everything before it fails the run outright.
func BuildReport(ctx context.Context, db *sql.DB, gen narrative.Generator, cfg Config) (*ReportResult, error) {
	records, err := store.GetAllComplaints(db)
	if err != nil {
		return nil, err
	}

	snap, err := analytics.ComputeSnapshot(records, cfg.PriorityRatingThreshold)
	if err != nil {
		return nil, err
	}

	insights, err := analytics.ExtractInsights(snap, analytics.InsightConfig{
		NegativeShareThreshold: cfg.NegativeShareThreshold,
		PriorityShareThreshold: cfg.PriorityShareThreshold,
	})
	if err != nil {
		return nil, err
	}

	samples, err := store.GetRecentComplaints(db, cfg.SampleSize)
	if err != nil {
		return nil, err
	}

	reportContext := analytics.BuildContext(snap, samples, analytics.ContextOptions{
		SampleLimit:     cfg.SampleSize,
		SampleTextLimit: cfg.SampleTextMaxChars,
	})

	result := &ReportResult{
		Snapshot:    snap,
		Insights:    insights,
		GeneratedAt: time.Now().UTC(),
	}

	report, err := gen.Generate(ctx, reportContext)
	if err != nil {
		logrus.WithError(err).Warn("narrative unavailable, returning analytics only")
		return result, nil
	}
	result.Narrative = report
	result.NarrativeAvailable = true

	logrus.WithFields(logrus.Fields{
		"complaints": snap.TotalComplaints,
		"insights":   len(insights),
	}).Info("report built")
	return result, nil
}
