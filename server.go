package main

import (
	"database/sql"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"crmpulse/internal/analytics"
	"crmpulse/internal/classify"
	"crmpulse/internal/domain"
	"crmpulse/internal/export"
	"crmpulse/internal/narrative"
	"crmpulse/internal/store"
)

// Server holds the HTTP API's collaborators. Handlers are thin: they fetch,
// call the analytics pipeline, and translate errors to status codes.
type Server struct {
	db         *sql.DB
	cfg        Config
	classifier classify.Classifier
	generator  narrative.Generator
}

func NewServer(db *sql.DB, cfg Config, classifier classify.Classifier, generator narrative.Generator) *Server {
	return &Server{db: db, cfg: cfg, classifier: classifier, generator: generator}
}

// Router wires middleware and routes. The route set mirrors the analytics
// endpoints the dashboard frontend consumes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/", s.handleRoot)
	r.GET("/api/health", s.handleHealth)
	r.POST("/api/complaints", s.handleIngest)
	r.POST("/api/analyze-data", s.handleAnalyzeData)
	r.GET("/api/charts-data", s.handleChartsData)
	r.POST("/api/generate-report", s.handleGenerateReport)
	r.POST("/api/export-excel", s.handleExportExcel)
	r.GET("/api/download/:file", s.handleDownload)
	return r
}

// requestLogger tags every request with an id and logs method, path, status,
// and latency on completion.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Writer.Header().Set("X-Request-ID", requestID)
		start := time.Now()

		c.Next()

		logrus.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).Round(time.Millisecond).String(),
		}).Info("request handled")
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "CRM Pulse Analytics API",
		"version": "1.0.0",
		"endpoints": gin.H{
			"ingest":    "/api/complaints",
			"analytics": "/api/analyze-data",
			"charts":    "/api/charts-data",
			"report":    "/api/generate-report",
			"export":    "/api/export-excel",
		},
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	count, err := store.CountComplaints(s.db)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "healthy",
		"database":   "connected",
		"complaints": count,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

type ingestRequest struct {
	Complaints []string `json:"complaints" binding:"required"`
}

// handleIngest classifies each submitted complaint text and stores the batch.
// Classification failure on any text aborts the request before anything is
// written; the insert itself is one transaction.
func (s *Server) handleIngest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"complaints\": [\"text\", ...]}"})
		return
	}
	if len(req.Complaints) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "complaints list is empty"})
		return
	}

	policy := classify.Policy{
		CategoryThreshold:  s.cfg.CategoryConfidenceThreshold,
		SentimentThreshold: s.cfg.SentimentConfidenceThreshold,
	}

	records := make([]domain.ComplaintRecord, 0, len(req.Complaints))
	for _, text := range req.Complaints {
		record, err := classify.ClassifyComplaint(s.classifier, text, policy)
		if err != nil {
			logrus.WithError(err).Error("classification failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "classification failed"})
			return
		}
		if err := record.Validate(); err != nil {
			logrus.WithError(err).Error("classified record invalid")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "classified record invalid"})
			return
		}
		records = append(records, record)
	}

	inserted, err := store.InsertComplaints(s.db, records)
	if err != nil {
		logrus.WithError(err).Error("inserting complaints failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   "success",
		"inserted": inserted,
	})
}

func (s *Server) snapshot() (*analytics.Snapshot, error) {
	records, err := store.GetAllComplaints(s.db)
	if err != nil {
		return nil, err
	}
	return analytics.ComputeSnapshot(records, s.cfg.PriorityRatingThreshold)
}

func (s *Server) writeSnapshotError(c *gin.Context, err error) {
	var malformed *domain.MalformedRecordError
	switch {
	case errors.Is(err, analytics.ErrEmptyDataset):
		c.JSON(http.StatusNotFound, gin.H{"error": "no complaint records to analyze"})
	case errors.As(err, &malformed):
		logrus.WithError(err).Error("malformed record in complaint table")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		logrus.WithError(err).Error("analytics failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	}
}

func (s *Server) handleAnalyzeData(c *gin.Context) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   snap,
	})
}

type nameValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type categoryRating struct {
	Category string  `json:"category"`
	Rating   float64 `json:"rating"`
}

// handleChartsData reshapes the snapshot maps into the arrays the frontend
// chart components expect, keys sorted for a stable payload.
func (s *Server) handleChartsData(c *gin.Context) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data": gin.H{
			"sentiment_distribution": countPairs(snap.SentimentDistribution),
			"category_distribution":  countPairs(snap.CategoryDistribution),
			"rating_by_category":     ratingPairs(snap.RatingByCategory),
			"time_series":            snap.TimeSeries,
			"total_complaints":       snap.TotalComplaints,
			"priority_count":         len(snap.PriorityIssues),
			"confidence_stats":       snap.ConfidenceStats,
		},
	})
}

func countPairs(m map[string]int) []nameValue {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]nameValue, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, nameValue{Name: k, Value: m[k]})
	}
	return pairs
}

func ratingPairs(m map[string]float64) []categoryRating {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]categoryRating, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, categoryRating{Category: k, Rating: m[k]})
	}
	return pairs
}

// handleGenerateReport runs the full pipeline. A narrative failure still
// returns 200: the client gets the analytics and insights with
// narrative_available=false.
func (s *Server) handleGenerateReport(c *gin.Context) {
	result, err := BuildReport(c.Request.Context(), s.db, s.generator, s.cfg)
	if err != nil {
		s.writeSnapshotError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":              "success",
		"report":              result.Narrative,
		"narrative_available": result.NarrativeAvailable,
		"insights":            result.Insights,
		"analytics":           result.Snapshot,
		"generated_at":        result.GeneratedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleExportExcel(c *gin.Context) {
	snap, err := s.snapshot()
	if err != nil {
		s.writeSnapshotError(c, err)
		return
	}

	insights, err := analytics.ExtractInsights(snap, analytics.InsightConfig{
		NegativeShareThreshold: s.cfg.NegativeShareThreshold,
		PriorityShareThreshold: s.cfg.PriorityShareThreshold,
	})
	if err != nil {
		s.writeSnapshotError(c, err)
		return
	}

	name, err := export.WriteWorkbook(snap, insights, s.cfg.ReportOutputDir)
	if err != nil {
		logrus.WithError(err).Error("writing workbook failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"filename":     name,
		"download_url": "/api/download/" + name,
	})
}

// handleDownload serves a previously exported artifact. The file parameter
// must be a bare name inside the report output directory.
func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("file")
	if name == "" || name != filepath.Base(name) || name[0] == '.' {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}

	path := filepath.Join(s.cfg.ReportOutputDir, name)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}
