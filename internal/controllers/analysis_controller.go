package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"trustlens/internal/analysis"
	"trustlens/internal/logger"
	"trustlens/internal/models"
	"trustlens/internal/pkg/csvingest"
	"trustlens/internal/pkg/predictor"
	"trustlens/internal/tasks"
)

const analysisListLimit = 1000

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type AnalysisController struct {
	DB      *gorm.DB
	Service *analysis.Service
	// Queue is nil when no Redis is configured; async batch jobs are then unavailable.
	Queue Enqueuer
}

type analyzeRequest struct {
	FullName   string   `json:"full_name" binding:"required"`
	Email      string   `json:"email" binding:"required"`
	Review     string   `json:"review" binding:"required"`
	Rating     *float64 `json:"rating"`
	ProductID  string   `json:"productId"`
	ReviewerID string   `json:"reviewerId"`
}

type predictRequest struct {
	Text       string   `json:"text" binding:"required"`
	Rating     *float64 `json:"rating" binding:"required"`
	ProductID  string   `json:"productId"`
	ReviewerID string   `json:"reviewerId"`
}

type batchRequest struct {
	CSV      string `json:"csv" binding:"required"`
	Email    string `json:"email" binding:"required"`
	FullName string `json:"full_name" binding:"required"`
}

type scopeRequest struct {
	Email  string `json:"email" binding:"required"`
	Active *bool  `json:"active" binding:"required"`
}

// GetAnalytics relays the predictor's aggregate document.
func (ac *AnalysisController) GetAnalytics(c *gin.Context) {
	doc, err := ac.Service.Analytics(c.Request.Context())
	if err != nil {
		logger.Log.Errorw("failed to fetch analytics", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute analytics from model dataset"})
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
}

// AnalyzeReview scores one review and stores it for the submitter.
func (ac *AnalysisController) AnalyzeReview(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "error", "Fields full_name, email, and review are required.", err)
		return
	}

	in := analysis.ReviewInput{
		FullName:   req.FullName,
		Email:      req.Email,
		Review:     req.Review,
		ProductID:  req.ProductID,
		ReviewerID: req.ReviewerID,
	}
	if req.Rating != nil {
		in.Rating = *req.Rating
	}

	saved, err := ac.Service.AnalyzeReview(c.Request.Context(), in)
	if err != nil {
		logPredictorFailure("review analysis failed", err, "email", req.Email)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to analyze and save review."})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Review analyzed and saved.",
		"analysis": json.RawMessage(saved.Analysis),
		"id":       saved.ID,
	})
}

// Predict scores a review, stores it in the predict table and returns the
// predictor document with the new id.
func (ac *AnalysisController) Predict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "error", "Fields text and rating are required.", err)
		return
	}

	row, doc, err := ac.Service.Predict(c.Request.Context(), predictor.Input{
		Text:       req.Text,
		Rating:     *req.Rating,
		ProductID:  req.ProductID,
		ReviewerID: req.ReviewerID,
	})
	if err != nil {
		logPredictorFailure("prediction failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to score and save review using the deep learning model"})
		return
	}

	body := gin.H{
		"message": "Prediction complete and saved.",
		"id":      row.ID,
	}
	// Document keys win over ours, as the dashboard expects.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err == nil {
		for k, v := range fields {
			body[k] = v
		}
	} else {
		body["result"] = doc
	}

	c.JSON(http.StatusCreated, body)
}

// GetPredictions lists stored predictions, newest first.
func (ac *AnalysisController) GetPredictions(c *gin.Context) {
	rows, err := gorm.G[models.Prediction](ac.DB).Order("created_at DESC, id DESC").Limit(analysisListLimit).Find(c.Request.Context())
	if err != nil {
		logger.Log.Errorw("failed to fetch predictions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch predictions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// GetReviewAnalyses lists stored analyses, optionally for a single email.
func (ac *AnalysisController) GetReviewAnalyses(c *gin.Context) {
	query := gorm.G[models.ReviewAnalysis](ac.DB).Order("created_at DESC, id DESC").Limit(analysisListLimit)
	if email := c.Query("email"); email != "" {
		query = query.Where("email = ?", email)
	}

	rows, err := query.Find(c.Request.Context())
	if err != nil {
		logger.Log.Errorw("failed to fetch review_analysis", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch review_analysis"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": rows, "count": len(rows)})
}

// BatchAnalyze ingests a CSV document synchronously.
func (ac *AnalysisController) BatchAnalyze(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "error", "Fields csv, email, full_name are required.", err)
		return
	}

	result, err := ac.Service.IngestCSV(c.Request.Context(), req.CSV, req.FullName, req.Email)
	if err != nil {
		var structural *csvingest.StructuralError
		if errors.As(err, &structural) {
			c.JSON(http.StatusBadRequest, gin.H{"error": structural.Message})
			return
		}
		logger.Log.Errorw("batch analytics failed", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process batch analytics"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Batch analysis complete",
		"saved":      result.Saved,
		"errors":     result.Errors,
		"total_rows": result.TotalRows,
	})
}

// EnqueueBatchAnalyze hands a CSV document to the worker.
func (ac *AnalysisController) EnqueueBatchAnalyze(c *gin.Context) {
	if ac.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Background jobs are not configured"})
		return
	}

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "error", "Fields csv, email, full_name are required.", err)
		return
	}

	task, err := tasks.NewBatchAnalyzeTask(tasks.BatchAnalyzePayload{
		CSV:      req.CSV,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		logger.Log.Errorw("failed to build batch task", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue batch analytics"})
		return
	}

	info, err := ac.Queue.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		logger.Log.Errorw("failed to enqueue batch task", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue batch analytics"})
		return
	}

	logger.Log.Infow("batch task enqueued", "task_id", info.ID, "queue", info.Queue, "email", req.Email)
	c.JSON(http.StatusAccepted, gin.H{"task_id": info.ID, "queue": info.Queue})
}

// GetAnalysisScope reports whether batch analysis is active for an email.
func (ac *AnalysisController) GetAnalysisScope(c *gin.Context) {
	email := strings.TrimSpace(c.Query("email"))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter email is required.", "fields": []string{"email"}})
		return
	}

	pref, err := ac.Service.Preference(c.Request.Context(), email)
	if err != nil {
		logger.Log.Errorw("failed to load analysis scope", "email", email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load analysis scope"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": pref.Email, "active": pref.Active})
}

func (ac *AnalysisController) PutAnalysisScope(c *gin.Context) {
	var req scopeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "error", "Fields email and active are required.", err)
		return
	}

	pref, err := ac.Service.SetPreference(c.Request.Context(), strings.TrimSpace(req.Email), *req.Active)
	if err != nil {
		logger.Log.Errorw("failed to save analysis scope", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save analysis scope"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": pref.Email, "active": pref.Active})
}

// logPredictorFailure adds the predictor's stderr or exit code when err
// carries them.
func logPredictorFailure(msg string, err error, kv ...any) {
	fields := append(kv, "error", err)

	var exitErr *predictor.ExitError
	var parseErr *predictor.OutputParseError
	switch {
	case errors.As(err, &exitErr):
		fields = append(fields, "exit_code", exitErr.ExitCode, "stderr", exitErr.Stderr)
	case errors.As(err, &parseErr):
		fields = append(fields, "stderr", parseErr.Stderr)
	}

	logger.Log.Errorw(msg, fields...)
}
