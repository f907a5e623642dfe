// Package narrative wraps the hosted model that turns a report context into
// report prose. The call is the only slow, fallible step of a report request,
// so it is bounded by a timeout and its failure is recoverable: callers keep
// the numeric analytics and mark the narrative unavailable.
package narrative

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

// Generator produces report prose from a report context string.
type Generator interface {
	Generate(ctx context.Context, reportContext string) (string, error)
}

// GenerationError marks an upstream narrative failure (network error, empty
// or malformed model output). It is recoverable: aggregate analytics remain
// valid when it occurs.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("narrative generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicGenerator drafts the report with the Anthropic messages API.
type AnthropicGenerator struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

func NewAnthropicGenerator(apiKey, model string, timeout time.Duration) *AnthropicGenerator {
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &AnthropicGenerator{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.Model(model),
		timeout: timeout,
	}
}

const systemPrompt = "You are an expert data analyst specializing in customer feedback analysis " +
	"and CRM insights. Generate comprehensive, actionable reports with clear insights and recommendations."

// reportSections is the heading convention downstream renderers rely on.
var reportSections = []string{
	"Executive Summary",
	"Sentiment Analysis",
	"Category Breakdown",
	"Priority Issues",
	"Trends and Patterns",
	"Key Recommendations",
	"Conclusion",
}

func (g *AnthropicGenerator) Generate(ctx context.Context, reportContext string) (string, error) {
	userPrompt := buildReportPrompt(reportContext)

	var report string
	op := func() error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		message, err := g.client.Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     g.model,
			MaxTokens: 4096,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			logrus.WithError(err).Warn("narrative anthropic call failed")
			return err
		}
		for _, block := range message.Content {
			if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
				report = block.Text
				return nil
			}
		}
		return backoff.Permanent(fmt.Errorf("empty narrative in Anthropic response"))
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 3 * time.Minute
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return "", &GenerationError{Err: err}
	}

	logrus.WithField("report_chars", len(report)).Info("narrative generated")
	return report, nil
}

func buildReportPrompt(reportContext string) string {
	var sections strings.Builder
	for _, s := range reportSections {
		sections.WriteString("## " + s + "\n")
	}

	return fmt.Sprintf(`Based on the following customer feedback data and analytics, generate a comprehensive CRM Analysis Report.

DATA AND ANALYTICS:
%s

Use proper markdown formatting: ## headers for the sections below, bullet lists,
**bold** for key metrics, and numbered lists for recommendations. Include specific
numbers and percentages.

Structure the report with exactly these sections:
%s`, reportContext, sections.String())
}
