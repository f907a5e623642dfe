package classify

import (
	"errors"
	"testing"

	"crmpulse/internal/domain"
)

type stubClassifier struct {
	result Result
	err    error
	called bool
}

func (s *stubClassifier) Classify(text string) (Result, error) {
	s.called = true
	return s.result, s.err
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "My ORDER Never Arrived Today", "my order never arrived today"},
		{"strips urls", "see https://example.com/order/123 and www.example.com now please help", "see and now please help"},
		{"strips punctuation and digits", "charged $42.50 twice!!! order #9981", "charged twice order"},
		{"collapses whitespace", "slow\n\nresponse\t from    support team", "slow response from support team"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CleanText(tc.in); got != tc.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestClassifyComplaintShortTextSkipsModel(t *testing.T) {
	stub := &stubClassifier{}
	record, err := ClassifyComplaint(stub, "bad service!!", Policy{})
	if err != nil {
		t.Fatalf("ClassifyComplaint failed: %v", err)
	}
	if stub.called {
		t.Fatal("classifier must not be called for too-short input")
	}
	if record.Category != domain.CategoryUncertain {
		t.Fatalf("expected uncertain category, got %q", record.Category)
	}
	if record.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %f", record.Confidence)
	}
	if err := record.Validate(); err != nil {
		t.Fatalf("fallback record failed validation: %v", err)
	}
}

func TestClassifyComplaintAppliesThresholds(t *testing.T) {
	text := "the delivery was three weeks late and nobody answered my calls"

	cases := []struct {
		name          string
		result        Result
		wantCategory  string
		wantSentiment domain.Sentiment
	}{
		{
			name: "confident both",
			result: Result{
				Category: domain.CategoryDelivery, CategoryConfidence: 0.9,
				Sentiment: "Bad", SentimentConfidence: 0.8,
			},
			wantCategory:  domain.CategoryDelivery,
			wantSentiment: domain.SentimentBad,
		},
		{
			name: "category below threshold",
			result: Result{
				Category: domain.CategoryDelivery, CategoryConfidence: 0.39,
				Sentiment: "Bad", SentimentConfidence: 0.8,
			},
			wantCategory:  domain.CategoryUncertain,
			wantSentiment: domain.SentimentBad,
		},
		{
			name: "sentiment below threshold",
			result: Result{
				Category: domain.CategoryDelivery, CategoryConfidence: 0.9,
				Sentiment: "Bad", SentimentConfidence: 0.49,
			},
			wantCategory:  domain.CategoryDelivery,
			wantSentiment: domain.SentimentAverage,
		},
		{
			name: "unknown labels",
			result: Result{
				Category: "Shipping Problems", CategoryConfidence: 0.9,
				Sentiment: "Angry", SentimentConfidence: 0.9,
			},
			wantCategory:  domain.CategoryUncertain,
			wantSentiment: domain.SentimentAverage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubClassifier{result: tc.result}
			record, err := ClassifyComplaint(stub, text, Policy{})
			if err != nil {
				t.Fatalf("ClassifyComplaint failed: %v", err)
			}
			if record.Category != tc.wantCategory {
				t.Fatalf("expected category %q, got %q", tc.wantCategory, record.Category)
			}
			if record.Sentiment != tc.wantSentiment {
				t.Fatalf("expected sentiment %q, got %q", tc.wantSentiment, record.Sentiment)
			}
			if record.Rating != record.Sentiment.Rating() {
				t.Fatalf("rating %d disagrees with sentiment %q", record.Rating, record.Sentiment)
			}
			if record.Text != text {
				t.Fatalf("record must keep the raw text, got %q", record.Text)
			}
		})
	}
}

func TestClassifyComplaintPropagatesError(t *testing.T) {
	wantErr := errors.New("model unavailable")
	stub := &stubClassifier{err: wantErr}
	_, err := ClassifyComplaint(stub, "the delivery was three weeks late and nobody answered", Policy{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected classifier error to propagate, got %v", err)
	}
}

func TestParseClassifiedResponse(t *testing.T) {
	raw := "```json\n{\"category\": \"Billing Issues\", \"category_confidence\": 0.82, \"sentiment\": \"Fair\", \"sentiment_confidence\": 0.66}\n```"
	result, err := parseClassifiedResponse(raw)
	if err != nil {
		t.Fatalf("parseClassifiedResponse failed: %v", err)
	}
	if result.Category != domain.CategoryBilling || result.Sentiment != "Fair" {
		t.Fatalf("unexpected parse result: %+v", result)
	}
	if result.CategoryConfidence != 0.82 || result.SentimentConfidence != 0.66 {
		t.Fatalf("unexpected confidences: %+v", result)
	}

	if _, err := parseClassifiedResponse("not json at all"); err == nil {
		t.Fatal("expected parse error for malformed response")
	}
}
