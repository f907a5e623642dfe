package main

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"crmpulse/internal/analytics"
	"crmpulse/internal/domain"
	"crmpulse/internal/narrative"
	"crmpulse/internal/store"
)

type stubGenerator struct {
	report string
	err    error
	gotCtx string
}

func (g *stubGenerator) Generate(ctx context.Context, reportContext string) (string, error) {
	g.gotCtx = reportContext
	if g.err != nil {
		return "", g.err
	}
	return g.report, nil
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		ReportOutputDir:              t.TempDir(),
		CategoryConfidenceThreshold:  0.4,
		SentimentConfidenceThreshold: 0.5,
		PriorityRatingThreshold:      analytics.DefaultPriorityThreshold,
		NegativeShareThreshold:       analytics.DefaultNegativeShareThreshold,
		PriorityShareThreshold:       analytics.DefaultPriorityShareThreshold,
		SampleSize:                   analytics.DefaultSampleLimit,
		SampleTextMaxChars:           analytics.DefaultSampleTextLimit,
	}
}

func seededDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	records := []domain.ComplaintRecord{
		{
			Text: "package never arrived and support ignored me", Category: domain.CategoryDelivery,
			Sentiment: domain.SentimentBad, Rating: 1, Confidence: 0.92, CreatedAt: base,
		},
		{
			Text: "charged twice for the same order", Category: domain.CategoryBilling,
			Sentiment: domain.SentimentFair, Rating: 2, Confidence: 0.85, CreatedAt: base.Add(24 * time.Hour),
		},
		{
			Text: "product works well overall", Category: domain.CategoryProductQuality,
			Sentiment: domain.SentimentGood, Rating: 4, Confidence: 0.78, CreatedAt: base.Add(48 * time.Hour),
		},
	}
	if _, err := store.InsertComplaints(db, records); err != nil {
		t.Fatalf("seeding complaints failed: %v", err)
	}
	return db
}

func TestBuildReport(t *testing.T) {
	db := seededDB(t)
	gen := &stubGenerator{report: "## Executive Summary\nThings are mixed."}

	result, err := BuildReport(context.Background(), db, gen, testConfig(t))
	if err != nil {
		t.Fatalf("BuildReport failed: %v", err)
	}

	if !result.NarrativeAvailable {
		t.Fatal("expected narrative to be available")
	}
	if result.Narrative != gen.report {
		t.Fatalf("unexpected narrative: %q", result.Narrative)
	}
	if result.Snapshot.TotalComplaints != 3 {
		t.Fatalf("expected 3 complaints in snapshot, got %d", result.Snapshot.TotalComplaints)
	}
	if len(result.Insights) == 0 {
		t.Fatal("expected at least one insight")
	}
	if !strings.Contains(gen.gotCtx, "Total Complaints: 3") {
		t.Fatalf("report context missing totals: %q", gen.gotCtx)
	}
	if !strings.Contains(gen.gotCtx, "package never arrived") {
		t.Fatalf("report context missing samples: %q", gen.gotCtx)
	}
}

func TestBuildReportNarrativeFailureKeepsAnalytics(t *testing.T) {
	db := seededDB(t)
	gen := &stubGenerator{err: &narrative.GenerationError{Err: errors.New("model unavailable")}}

	result, err := BuildReport(context.Background(), db, gen, testConfig(t))
	if err != nil {
		t.Fatalf("BuildReport should not fail on narrative error, got: %v", err)
	}

	if result.NarrativeAvailable {
		t.Fatal("expected narrative_available to be false")
	}
	if result.Narrative != "" {
		t.Fatalf("expected empty narrative, got %q", result.Narrative)
	}
	if result.Snapshot == nil || result.Snapshot.TotalComplaints != 3 {
		t.Fatal("analytics must survive a narrative failure")
	}
	if len(result.Insights) == 0 {
		t.Fatal("insights must survive a narrative failure")
	}
}

func TestBuildReportEmptyTable(t *testing.T) {
	db, err := store.InitDB(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer db.Close()

	_, err = BuildReport(context.Background(), db, &stubGenerator{report: "unused"}, testConfig(t))
	if !errors.Is(err, analytics.ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}
