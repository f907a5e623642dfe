package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"crmpulse/internal/analytics"
	"crmpulse/internal/classify"
)

type Config struct {
	HTTPAddr        string `yaml:"http_addr"`
	Environment     string `yaml:"environment"`
	LogLevel        string `yaml:"log_level"`
	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	ReportSchedule  string `yaml:"report_schedule"`

	LLMModel                string `yaml:"llm_model"`
	AnthropicAPIKey         string `yaml:"anthropic_api_key"`
	ClassifyTimeoutSeconds  int    `yaml:"classify_timeout_seconds"`
	NarrativeTimeoutSeconds int    `yaml:"narrative_timeout_seconds"`

	CategoryConfidenceThreshold  float64 `yaml:"category_confidence_threshold"`
	SentimentConfidenceThreshold float64 `yaml:"sentiment_confidence_threshold"`
	PriorityRatingThreshold      int     `yaml:"priority_rating_threshold"`
	NegativeShareThreshold       float64 `yaml:"negative_share_threshold"`
	PriorityShareThreshold       float64 `yaml:"priority_share_threshold"`
	SampleSize                   int     `yaml:"sample_size"`
	SampleTextMaxChars           int     `yaml:"sample_text_max_chars"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies env var overrides,
// fills defaults, and validates. Slack settings are optional; the Anthropic
// key is required because both classification and narrative generation use it.
func LoadConfig() (Config, error) {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", configPath, err)
		}
		logrus.WithField("path", configPath).Info("loaded config file")
	}

	envOverride(&cfg.HTTPAddr, "HTTP_ADDR")
	envOverride(&cfg.Environment, "ENVIRONMENT")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverrideInt(&cfg.ClassifyTimeoutSeconds, "CLASSIFY_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.NarrativeTimeoutSeconds, "NARRATIVE_TIMEOUT_SECONDS")
	envOverrideFloat(&cfg.CategoryConfidenceThreshold, "CATEGORY_CONFIDENCE_THRESHOLD")
	envOverrideFloat(&cfg.SentimentConfidenceThreshold, "SENTIMENT_CONFIDENCE_THRESHOLD")
	envOverrideInt(&cfg.PriorityRatingThreshold, "PRIORITY_RATING_THRESHOLD")
	envOverrideFloat(&cfg.NegativeShareThreshold, "NEGATIVE_SHARE_THRESHOLD")
	envOverrideFloat(&cfg.PriorityShareThreshold, "PRIORITY_SHARE_THRESHOLD")
	envOverrideInt(&cfg.SampleSize, "SAMPLE_SIZE")
	envOverrideInt(&cfg.SampleTextMaxChars, "SAMPLE_TEXT_MAX_CHARS")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")

	// Defaults
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8000"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./crmpulse.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ReportSchedule == "" {
		cfg.ReportSchedule = "0 8 * * 1"
	}
	if cfg.ClassifyTimeoutSeconds == 0 {
		cfg.ClassifyTimeoutSeconds = 30
	}
	if cfg.NarrativeTimeoutSeconds == 0 {
		cfg.NarrativeTimeoutSeconds = 60
	}
	if cfg.CategoryConfidenceThreshold == 0 {
		cfg.CategoryConfidenceThreshold = classify.DefaultCategoryThreshold
	}
	if cfg.SentimentConfidenceThreshold == 0 {
		cfg.SentimentConfidenceThreshold = classify.DefaultSentimentThreshold
	}
	if cfg.PriorityRatingThreshold == 0 {
		cfg.PriorityRatingThreshold = analytics.DefaultPriorityThreshold
	}
	if cfg.NegativeShareThreshold == 0 {
		cfg.NegativeShareThreshold = analytics.DefaultNegativeShareThreshold
	}
	if cfg.PriorityShareThreshold == 0 {
		cfg.PriorityShareThreshold = analytics.DefaultPriorityShareThreshold
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = analytics.DefaultSampleLimit
	}
	if cfg.SampleTextMaxChars == 0 {
		cfg.SampleTextMaxChars = analytics.DefaultSampleTextLimit
	}

	// Validation
	if cfg.AnthropicAPIKey == "" {
		return cfg, fmt.Errorf("anthropic_api_key is required (via config.yaml or ANTHROPIC_API_KEY)")
	}
	if cfg.CategoryConfidenceThreshold < 0 || cfg.CategoryConfidenceThreshold > 1 {
		return cfg, fmt.Errorf("invalid category_confidence_threshold %f: must be between 0 and 1", cfg.CategoryConfidenceThreshold)
	}
	if cfg.SentimentConfidenceThreshold < 0 || cfg.SentimentConfidenceThreshold > 1 {
		return cfg, fmt.Errorf("invalid sentiment_confidence_threshold %f: must be between 0 and 1", cfg.SentimentConfidenceThreshold)
	}
	if cfg.NegativeShareThreshold <= 0 || cfg.NegativeShareThreshold >= 1 {
		return cfg, fmt.Errorf("invalid negative_share_threshold %f: must be in (0,1)", cfg.NegativeShareThreshold)
	}
	if cfg.PriorityShareThreshold <= 0 || cfg.PriorityShareThreshold >= 1 {
		return cfg, fmt.Errorf("invalid priority_share_threshold %f: must be in (0,1)", cfg.PriorityShareThreshold)
	}
	if cfg.PriorityRatingThreshold < 1 || cfg.PriorityRatingThreshold > 5 {
		return cfg, fmt.Errorf("invalid priority_rating_threshold %d: must be between 1 and 5", cfg.PriorityRatingThreshold)
	}
	if cfg.SampleSize < 1 {
		return cfg, fmt.Errorf("invalid sample_size %d: must be >= 1", cfg.SampleSize)
	}
	if cfg.SampleTextMaxChars < 20 {
		return cfg, fmt.Errorf("invalid sample_text_max_chars %d: must be >= 20", cfg.SampleTextMaxChars)
	}

	return cfg, nil
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			logrus.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			logrus.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
