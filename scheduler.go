package main

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"crmpulse/internal/export"
	"crmpulse/internal/narrative"
	"crmpulse/internal/notify"
)

// StartReportScheduler runs the full report pipeline on the configured cron
// schedule: build, write the markdown report and xlsx workbook, post the
// summary to Slack if configured. The schedule is a standard 5-field cron
// expression (minute hour day-of-month month day-of-week); the default
// "0 8 * * 1" is Mondays at 08:00.
func StartReportScheduler(cfg Config, db *sql.DB, gen narrative.Generator, notifier *notify.SlackNotifier) {
	schedule := strings.TrimSpace(cfg.ReportSchedule)
	if schedule == "" {
		logrus.Info("scheduled reports disabled (report_schedule not set)")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		logrus.WithError(err).Warnf("invalid report_schedule %q, scheduled reports disabled", schedule)
		return
	}
	logrus.WithField("cron", schedule).Info("report scheduler started")

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			logrus.WithField("next_run", next.Format("Mon Jan 2 15:04")).Info("next scheduled report")
			time.Sleep(next.Sub(now))

			runScheduledReport(cfg, db, gen, notifier)
		}
	}()
}

func runScheduledReport(cfg Config, db *sql.DB, gen narrative.Generator, notifier *notify.SlackNotifier) {
	result, err := BuildReport(context.Background(), db, gen, cfg)
	if err != nil {
		logrus.WithError(err).Error("scheduled report failed")
		return
	}

	reportPath := ""
	if result.NarrativeAvailable {
		reportPath, err = export.WriteReportFile(result.Narrative, cfg.ReportOutputDir, result.GeneratedAt)
		if err != nil {
			logrus.WithError(err).Error("writing scheduled report file failed")
		}
	}

	if _, err := export.WriteWorkbook(result.Snapshot, result.Insights, cfg.ReportOutputDir); err != nil {
		logrus.WithError(err).Error("writing scheduled workbook failed")
	}

	if err := notifier.PostReportSummary(result.Insights, reportPath, result.Snapshot.TotalComplaints); err != nil {
		logrus.WithError(err).Error("posting scheduled report to Slack failed")
	}
}
