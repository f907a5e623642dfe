// Package classify turns raw complaint text into a category, a sentiment,
// and the classifier's confidence in each. The low-confidence and short-text
// fallback policy lives here, at the classification boundary, not in the
// aggregation core.
package classify

import (
	"regexp"
	"strings"

	"crmpulse/internal/domain"
)

// Result is one classification outcome before policy is applied.
type Result struct {
	Category            string
	CategoryConfidence  float64
	Sentiment           string
	SentimentConfidence float64
}

// Classifier labels one complaint. Implementations may call hosted models;
// tests substitute a deterministic stub.
type Classifier interface {
	Classify(text string) (Result, error)
}

// Policy holds the classification-boundary thresholds.
type Policy struct {
	MinWords           int     // below this the input is too short to classify
	CategoryThreshold  float64 // category confidence below this falls back to uncertain
	SentimentThreshold float64 // sentiment confidence below this falls back to neutral
}

const (
	DefaultMinWords           = 5
	DefaultCategoryThreshold  = 0.4
	DefaultSentimentThreshold = 0.5
)

func (p Policy) withDefaults() Policy {
	if p.MinWords <= 0 {
		p.MinWords = DefaultMinWords
	}
	if p.CategoryThreshold == 0 {
		p.CategoryThreshold = DefaultCategoryThreshold
	}
	if p.SentimentThreshold == 0 {
		p.SentimentThreshold = DefaultSentimentThreshold
	}
	return p
}

var (
	urlRe        = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonLetterRe  = regexp.MustCompile(`[^a-zA-Z\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// CleanText lowercases the input and strips URLs, punctuation, and extra
// whitespace. Only the classifier sees this form; the stored record keeps
// the raw text.
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = urlRe.ReplaceAllString(text, "")
	text = nonLetterRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// ClassifyComplaint runs the classifier on the cleaned text and applies the
// boundary policy, returning an unsaved record carrying the raw (trimmed)
// text. Too-short input skips the model call entirely and lands in the
// uncertain category with a neutral sentiment.
func ClassifyComplaint(c Classifier, rawText string, policy Policy) (domain.ComplaintRecord, error) {
	policy = policy.withDefaults()
	cleaned := CleanText(rawText)

	record := domain.ComplaintRecord{Text: strings.TrimSpace(rawText)}

	if len(strings.Fields(cleaned)) < policy.MinWords {
		record.Category = domain.CategoryUncertain
		record.Sentiment = domain.SentimentAverage
		record.Rating = domain.SentimentAverage.Rating()
		record.Confidence = 0
		return record, nil
	}

	result, err := c.Classify(cleaned)
	if err != nil {
		return domain.ComplaintRecord{}, err
	}

	category := result.Category
	if result.CategoryConfidence < policy.CategoryThreshold || !domain.ValidCategory(category) {
		category = domain.CategoryUncertain
	}

	sentiment, ok := domain.SentimentFromLabel(result.Sentiment)
	if !ok || result.SentimentConfidence < policy.SentimentThreshold {
		sentiment = domain.SentimentAverage
	}

	record.Category = category
	record.Sentiment = sentiment
	record.Rating = sentiment.Rating()
	record.Confidence = clamp01(result.CategoryConfidence)
	return record, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
