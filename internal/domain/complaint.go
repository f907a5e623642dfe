package domain

import (
	"fmt"
	"time"
)

// Sentiment is the closed, ordered set of sentiment labels produced by the
// classifier. Order matters: each label maps to a fixed 1-5 rating.
type Sentiment string

const (
	SentimentBad     Sentiment = "Bad"
	SentimentFair    Sentiment = "Fair"
	SentimentAverage Sentiment = "Average"
	SentimentGood    Sentiment = "Good"
	SentimentBest    Sentiment = "Best"
)

// Sentiments lists all labels in rating order (Bad=1 ... Best=5).
var Sentiments = []Sentiment{
	SentimentBad,
	SentimentFair,
	SentimentAverage,
	SentimentGood,
	SentimentBest,
}

var sentimentRatings = map[Sentiment]int{
	SentimentBad:     1,
	SentimentFair:    2,
	SentimentAverage: 3,
	SentimentGood:    4,
	SentimentBest:    5,
}

// Rating returns the fixed rating for the sentiment, or 0 if the label is
// not part of the closed set.
func (s Sentiment) Rating() int {
	return sentimentRatings[s]
}

func (s Sentiment) Valid() bool {
	_, ok := sentimentRatings[s]
	return ok
}

// SentimentFromLabel resolves a classifier label to a Sentiment.
func SentimentFromLabel(label string) (Sentiment, bool) {
	s := Sentiment(label)
	return s, s.Valid()
}

// Complaint category taxonomy. CategoryUncertain is the designated fallback
// for short or low-confidence input; it is a real category, not an error.
const (
	CategoryDelivery        = "Delivery Issues"
	CategoryBilling         = "Billing Issues"
	CategoryCustomerService = "Customer Service Issues"
	CategoryProductQuality  = "Product Quality Issues"
	CategoryRefundReturn    = "Refund & Return Issues"
	CategoryTechnical       = "Technical Issues"
	CategoryUncertain       = "Other / Uncertain"
)

// Categories lists the full taxonomy, uncertain last.
var Categories = []string{
	CategoryDelivery,
	CategoryBilling,
	CategoryCustomerService,
	CategoryProductQuality,
	CategoryRefundReturn,
	CategoryTechnical,
	CategoryUncertain,
}

var validCategories = func() map[string]bool {
	m := make(map[string]bool, len(Categories))
	for _, c := range Categories {
		m[c] = true
	}
	return m
}()

func ValidCategory(category string) bool {
	return validCategories[category]
}

// ComplaintRecord is one classified customer complaint. Records are created
// once by the ingestion path and never mutated; Text holds the raw complaint
// as submitted (trimmed), not the cleaned form used for classification.
type ComplaintRecord struct {
	ID         int64     `json:"id"`
	Text       string    `json:"complaint_text"`
	Category   string    `json:"category"`
	Sentiment  Sentiment `json:"sentiment"`
	Rating     int       `json:"rating"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// MalformedRecordError reports a record that is missing a required field or
// carries an out-of-range value. Such records are rejected at the aggregation
// boundary rather than silently coerced.
type MalformedRecordError struct {
	RecordID int64
	Field    string
	Reason   string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed complaint record %d: %s %s", e.RecordID, e.Field, e.Reason)
}

// Validate checks the record invariants: category and sentiment from their
// closed sets, rating agreeing with the sentiment mapping, confidence in
// [0,1], and non-empty text.
func (r ComplaintRecord) Validate() error {
	if r.Text == "" {
		return &MalformedRecordError{RecordID: r.ID, Field: "complaint_text", Reason: "is empty"}
	}
	if r.Category == "" {
		return &MalformedRecordError{RecordID: r.ID, Field: "category", Reason: "is empty"}
	}
	if !ValidCategory(r.Category) {
		return &MalformedRecordError{RecordID: r.ID, Field: "category", Reason: fmt.Sprintf("has unknown label %q", r.Category)}
	}
	if !r.Sentiment.Valid() {
		return &MalformedRecordError{RecordID: r.ID, Field: "sentiment", Reason: fmt.Sprintf("has unknown label %q", r.Sentiment)}
	}
	if r.Rating < 1 || r.Rating > 5 {
		return &MalformedRecordError{RecordID: r.ID, Field: "rating", Reason: fmt.Sprintf("%d is outside 1-5", r.Rating)}
	}
	if r.Rating != r.Sentiment.Rating() {
		return &MalformedRecordError{
			RecordID: r.ID,
			Field:    "rating",
			Reason:   fmt.Sprintf("%d does not match sentiment %q (expected %d)", r.Rating, r.Sentiment, r.Sentiment.Rating()),
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &MalformedRecordError{RecordID: r.ID, Field: "confidence", Reason: fmt.Sprintf("%g is outside [0,1]", r.Confidence)}
	}
	return nil
}
