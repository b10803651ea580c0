// Package analysis ties the predictor to the store: single-review analysis,
// scored predictions, and batch CSV ingestion.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"trustlens/internal/metrics"
	"trustlens/internal/models"
	"trustlens/internal/pkg/csvingest"
	"trustlens/internal/pkg/predictor"
)

// unknownID fills product and reviewer columns of the predict table when the
// caller leaves them out.
const unknownID = "unknown"

// Predictor is the subset of *predictor.Client the service needs.
type Predictor interface {
	Predict(ctx context.Context, in predictor.Input) (json.RawMessage, error)
	Analytics(ctx context.Context) (json.RawMessage, error)
}

type Service struct {
	db          *gorm.DB
	predictor   Predictor
	metrics     *metrics.Metrics
	concurrency int
}

type Option func(*Service)

// WithConcurrency sets how many batch rows are scored at once. One keeps rows strictly serial.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(db *gorm.DB, p Predictor, opts ...Option) *Service {
	s := &Service{
		db:          db,
		predictor:   p,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReviewInput is one review submitted for analysis on behalf of a user.
type ReviewInput struct {
	FullName   string
	Email      string
	Review     string
	Rating     float64
	ProductID  string
	ReviewerID string
}

// AnalyzeReview scores a review and stores the result as a review_analysis row.
func (s *Service) AnalyzeReview(ctx context.Context, in ReviewInput) (*models.ReviewAnalysis, error) {
	ctx = detach(ctx)

	doc, err := s.predictor.Predict(ctx, predictor.Input{
		Text:       in.Review,
		Rating:     in.Rating,
		ProductID:  orDefault(in.ProductID, csvingest.DefaultProductID),
		ReviewerID: orDefault(in.ReviewerID, csvingest.DefaultReviewerID),
	})
	if err != nil {
		return nil, err
	}

	return s.saveAnalysis(ctx, in.FullName, in.Email, in.Review, doc)
}

func (s *Service) saveAnalysis(ctx context.Context, fullName, email, review string, doc json.RawMessage) (*models.ReviewAnalysis, error) {
	analysis := models.ReviewAnalysis{
		FullName: fullName,
		Email:    email,
		Review:   review,
		Analysis: datatypes.JSON(doc),
	}
	if err := gorm.G[models.ReviewAnalysis](s.db).Create(ctx, &analysis); err != nil {
		return nil, fmt.Errorf("failed to save review analysis: %w", err)
	}
	return &analysis, nil
}

// Predict scores a review and stores the extracted fields in the predict
// table. The predictor's document is returned unchanged alongside the row.
func (s *Service) Predict(ctx context.Context, in predictor.Input) (*models.Prediction, json.RawMessage, error) {
	ctx = detach(ctx)

	doc, err := s.predictor.Predict(ctx, in)
	if err != nil {
		return nil, nil, err
	}

	prediction := models.Prediction{
		ReviewText: in.Text,
		Rating:     in.Rating,
		ProductID:  orDefault(in.ProductID, unknownID),
		ReviewerID: orDefault(in.ReviewerID, unknownID),
	}
	extractPrediction(doc, &prediction)

	if err := gorm.G[models.Prediction](s.db).Create(ctx, &prediction); err != nil {
		return nil, nil, fmt.Errorf("failed to save prediction: %w", err)
	}
	return &prediction, doc, nil
}

// Analytics returns the predictor's aggregate document unmodified.
func (s *Service) Analytics(ctx context.Context) (json.RawMessage, error) {
	return s.predictor.Analytics(ctx)
}

// extractPrediction copies the documented fields out of a predict document.
// Fields that are absent or of an unexpected type are left empty.
func extractPrediction(doc json.RawMessage, p *models.Prediction) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return
	}

	if raw, ok := fields["prediction"]; ok {
		var label string
		if err := json.Unmarshal(raw, &label); err == nil {
			p.Prediction = label
		} else {
			p.Prediction = strings.TrimSpace(string(raw))
		}
	}
	if raw, ok := fields["prob_fake"]; ok {
		var prob float64
		if err := json.Unmarshal(raw, &prob); err == nil {
			p.ProbFake = &prob
		}
	}
	if raw, ok := fields["features"]; ok && string(raw) != "null" {
		p.Features = datatypes.JSON(raw)
	}
	if raw, ok := fields["components"]; ok && string(raw) != "null" {
		p.Components = datatypes.JSON(raw)
	}
}

// detach keeps ctx's values but drops its cancellation: a caller that goes
// away does not abort a predictor run or store write already under way.
// PREDICTOR_TIMEOUT is the only bound on a call.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
