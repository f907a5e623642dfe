package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"crmpulse/internal/domain"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// AnthropicClassifier labels complaints with one chat-completion call
// returning both the category and the sentiment with confidences.
type AnthropicClassifier struct {
	client  anthropic.Client
	model   anthropic.Model
	timeout time.Duration
}

func NewAnthropicClassifier(apiKey, model string, timeout time.Duration) *AnthropicClassifier {
	if model == "" {
		model = defaultAnthropicModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicClassifier{
		client:  anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:   anthropic.Model(model),
		timeout: timeout,
	}
}

type classifiedResponse struct {
	Category            string  `json:"category"`
	CategoryConfidence  float64 `json:"category_confidence"`
	Sentiment           string  `json:"sentiment"`
	SentimentConfidence float64 `json:"sentiment_confidence"`
}

func (a *AnthropicClassifier) Classify(text string) (Result, error) {
	systemPrompt := buildClassifyPrompt()

	var responseText string
	op := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: 512,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock("Classify this complaint:\n\n" + text)),
			},
		})
		if err != nil {
			logrus.WithError(err).Warn("classify anthropic call failed")
			return err
		}
		for _, block := range message.Content {
			if block.Type == "text" {
				responseText = block.Text
				return nil
			}
		}
		return backoff.Permanent(fmt.Errorf("no text content in Anthropic response"))
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(op, b); err != nil {
		return Result{}, fmt.Errorf("classifying complaint: %w", err)
	}

	parsed, err := parseClassifiedResponse(responseText)
	if err != nil {
		return Result{}, err
	}
	logrus.WithFields(logrus.Fields{
		"category":  parsed.Category,
		"sentiment": parsed.Sentiment,
	}).Debug("complaint classified")
	return parsed, nil
}

func buildClassifyPrompt() string {
	var categories strings.Builder
	for _, c := range domain.Categories {
		if c == domain.CategoryUncertain {
			continue
		}
		categories.WriteString("- " + c + "\n")
	}
	var sentiments strings.Builder
	for _, s := range domain.Sentiments {
		sentiments.WriteString("- " + string(s) + "\n")
	}

	return fmt.Sprintf(`You classify customer complaints.
Choose exactly one category from:
%s
Choose exactly one sentiment from:
%s
Set each confidence between 0 and 1.

Respond with JSON only (no markdown):
{"category": "Delivery Issues", "category_confidence": 0.91, "sentiment": "Bad", "sentiment_confidence": 0.87}`,
		categories.String(), sentiments.String())
}

func parseClassifiedResponse(responseText string) (Result, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var parsed classifiedResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		return Result{}, fmt.Errorf("parsing classification response: %w (response: %s)", err, responseText)
	}
	return Result{
		Category:            strings.TrimSpace(parsed.Category),
		CategoryConfidence:  parsed.CategoryConfidence,
		Sentiment:           strings.TrimSpace(parsed.Sentiment),
		SentimentConfidence: parsed.SentimentConfidence,
	}, nil
}
