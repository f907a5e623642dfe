package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/assert/v2"

	"crmpulse/internal/classify"
	"crmpulse/internal/domain"
	"crmpulse/internal/store"
)

type stubClassifier struct {
	result classify.Result
	err    error
}

func (s *stubClassifier) Classify(text string) (classify.Result, error) {
	return s.result, s.err
}

func newTestServer(t *testing.T, db *sql.DB, classifier classify.Classifier, gen *stubGenerator) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(db, testConfig(t), classifier, gen)
	return s, s.Router()
}

func TestHandleHealth(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "healthy", res["status"])
	assert.Equal(t, float64(3), res["complaints"])
}

func TestHandleIngest(t *testing.T) {
	db, err := store.InitDB(filepath.Join(t.TempDir(), "ingest.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer db.Close()

	classifier := &stubClassifier{result: classify.Result{
		Category:            domain.CategoryDelivery,
		CategoryConfidence:  0.9,
		Sentiment:           string(domain.SentimentBad),
		SentimentConfidence: 0.8,
	}}
	_, r := newTestServer(t, db, classifier, &stubGenerator{})

	body := `{"complaints": ["my package never arrived after two weeks", "driver left the box in the rain outside"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/complaints", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var res map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, float64(2), res["inserted"])

	count, err := store.CountComplaints(db)
	if err != nil {
		t.Fatalf("CountComplaints failed: %v", err)
	}
	assert.Equal(t, 2, count)
}

func TestHandleIngestBadBody(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	for _, body := range []string{`{}`, `{"complaints": []}`, `not json`} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/complaints", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestHandleIngestClassifierError(t *testing.T) {
	db := seededDB(t)
	classifier := &stubClassifier{err: errors.New("model down")}
	_, r := newTestServer(t, db, classifier, &stubGenerator{})

	body := `{"complaints": ["this complaint is long enough to reach the classifier"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/complaints", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	count, err := store.CountComplaints(db)
	if err != nil {
		t.Fatalf("CountComplaints failed: %v", err)
	}
	assert.Equal(t, 3, count)
}

func TestHandleAnalyzeData(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/analyze-data", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Status string `json:"status"`
		Data   struct {
			TotalComplaints int `json:"total_complaints"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 3, res.Data.TotalComplaints)
}

func TestHandleAnalyzeDataEmpty(t *testing.T) {
	db, err := store.InitDB(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	defer db.Close()
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/analyze-data", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleChartsData(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/charts-data", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data struct {
			SentimentDistribution []nameValue      `json:"sentiment_distribution"`
			CategoryDistribution  []nameValue      `json:"category_distribution"`
			RatingByCategory      []categoryRating `json:"rating_by_category"`
			TotalComplaints       int              `json:"total_complaints"`
			PriorityCount         int              `json:"priority_count"`
		} `json:"data"`
	}
	json.Unmarshal(w.Body.Bytes(), &res)

	assert.Equal(t, 3, res.Data.TotalComplaints)
	assert.Equal(t, 2, res.Data.PriorityCount)
	assert.Equal(t, 3, len(res.Data.SentimentDistribution))
	assert.Equal(t, 3, len(res.Data.CategoryDistribution))

	// Pairs come back sorted by name.
	for i := 1; i < len(res.Data.CategoryDistribution); i++ {
		if res.Data.CategoryDistribution[i-1].Name >= res.Data.CategoryDistribution[i].Name {
			t.Fatalf("category pairs not sorted: %v", res.Data.CategoryDistribution)
		}
	}
}

func TestHandleGenerateReport(t *testing.T) {
	db := seededDB(t)
	gen := &stubGenerator{report: "## Executive Summary\nAll findings here."}
	_, r := newTestServer(t, db, &stubClassifier{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/generate-report", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, "success", res["status"])
	assert.Equal(t, true, res["narrative_available"])
	assert.Equal(t, gen.report, res["report"])
	if _, ok := res["insights"].([]interface{}); !ok {
		t.Fatalf("expected insights array, got %T", res["insights"])
	}
}

func TestHandleGenerateReportNarrativeFailure(t *testing.T) {
	db := seededDB(t)
	gen := &stubGenerator{err: errors.New("model unavailable")}
	_, r := newTestServer(t, db, &stubClassifier{}, gen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/generate-report", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &res)
	assert.Equal(t, false, res["narrative_available"])
	if res["analytics"] == nil {
		t.Fatal("analytics must be present when the narrative fails")
	}
}

func TestHandleExportExcelAndDownload(t *testing.T) {
	db := seededDB(t)
	s, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/export-excel", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var res map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &res)
	filename, _ := res["filename"].(string)
	if !strings.HasPrefix(filename, "crm_analytics_") || !strings.HasSuffix(filename, ".xlsx") {
		t.Fatalf("unexpected export filename: %q", filename)
	}
	if _, err := os.Stat(filepath.Join(s.cfg.ReportOutputDir, filename)); err != nil {
		t.Fatalf("exported workbook missing: %v", err)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/download/"+filename, nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleDownloadRejectsTraversal(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	for _, name := range []string{"..", ".hidden", "..%2Fsecret"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/download/"+name, nil)
		r.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
			t.Fatalf("download of %q should be rejected, got %d", name, w.Code)
		}
	}
}

func TestHandleDownloadMissingFile(t *testing.T) {
	db := seededDB(t)
	_, r := newTestServer(t, db, &stubClassifier{}, &stubGenerator{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/download/nope.xlsx", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
