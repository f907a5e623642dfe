package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"crmpulse/internal/classify"
	"crmpulse/internal/narrative"
	"crmpulse/internal/notify"
	"crmpulse/internal/store"
)

func main() {
	godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}
	setupLogging(cfg)

	db, err := store.InitDB(cfg.DBPath)
	if err != nil {
		logrus.Fatalf("opening database %s: %v", cfg.DBPath, err)
	}
	defer db.Close()

	if err := os.MkdirAll(cfg.ReportOutputDir, 0755); err != nil {
		logrus.Fatalf("creating report output dir %s: %v", cfg.ReportOutputDir, err)
	}

	classifier := classify.NewAnthropicClassifier(
		cfg.AnthropicAPIKey, cfg.LLMModel, time.Duration(cfg.ClassifyTimeoutSeconds)*time.Second)
	generator := narrative.NewAnthropicGenerator(
		cfg.AnthropicAPIKey, cfg.LLMModel, time.Duration(cfg.NarrativeTimeoutSeconds)*time.Second)
	notifier := notify.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID)
	if notifier == nil {
		logrus.Info("Slack delivery disabled (token or channel not set)")
	}

	StartReportScheduler(cfg, db, generator, notifier)

	server := NewServer(db, cfg, classifier, generator)
	logrus.WithField("addr", cfg.HTTPAddr).Info("starting HTTP server")
	if err := server.Router().Run(cfg.HTTPAddr); err != nil {
		logrus.Fatalf("server error: %v", err)
	}
}

// setupLogging configures logrus from the config: text locally, JSON
// elsewhere, level from log_level (info when unset or unparsable).
func setupLogging(cfg Config) {
	if cfg.Environment != "" && cfg.Environment != "local" && cfg.Environment != "development" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
