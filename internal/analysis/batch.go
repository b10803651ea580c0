package analysis

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"trustlens/internal/logger"
	"trustlens/internal/pkg/csvingest"
	"trustlens/internal/pkg/predictor"
)

// BatchResult summarizes one ingestion run. Skipped rows (blank text) count
// towards TotalRows but neither Saved nor Errors.
type BatchResult struct {
	Saved     int `json:"saved"`
	Errors    int `json:"errors"`
	TotalRows int `json:"total_rows"`
	Skipped   int `json:"-"`
}

// IngestCSV parses raw and scores every non-blank row on behalf of
// fullName/email. Structural CSV problems are returned as
// *csvingest.StructuralError before any row is processed; per-row failures
// are only counted. Once started, every row is processed even if ctx is
// cancelled.
func (s *Service) IngestCSV(ctx context.Context, raw, fullName, email string) (*BatchResult, error) {
	ctx = detach(ctx)

	doc, err := csvingest.Parse(raw)
	if err != nil {
		s.metrics.ObserveBatchRejected()
		return nil, err
	}

	var (
		saved, failed atomic.Int64
		skipped       int
		g             errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, row := range doc.Rows {
		if row.Blank() {
			skipped++
			continue
		}

		g.Go(func() error {
			if err := s.ingestRow(ctx, row, fullName, email); err != nil {
				failed.Add(1)
				logger.Log.Warnw("batch row failed", "email", email, "line", row.Line, "error", err)
				return nil
			}
			saved.Add(1)
			return nil
		})
	}
	// Row goroutines never return errors; failures are counted instead.
	_ = g.Wait()

	result := &BatchResult{
		Saved:     int(saved.Load()),
		Errors:    int(failed.Load()),
		TotalRows: doc.TotalRows(),
		Skipped:   skipped,
	}
	s.metrics.ObserveBatch(result.Saved, result.Errors, result.Skipped)

	if result.Saved > 0 {
		if _, err := s.SetPreference(ctx, email, true); err != nil {
			logger.Log.Warnw("failed to activate analysis scope", "email", email, "error", err)
		}
	}

	logger.Log.Infow("batch analysis complete",
		"email", email,
		"saved", result.Saved,
		"errors", result.Errors,
		"skipped", result.Skipped,
		"total_rows", result.TotalRows,
	)
	return result, nil
}

func (s *Service) ingestRow(ctx context.Context, row csvingest.Row, fullName, email string) error {
	doc, err := s.predictor.Predict(ctx, predictor.Input{
		Text:       row.Text,
		Rating:     row.Rating,
		ProductID:  row.ProductID,
		ReviewerID: row.ReviewerID,
	})
	if err != nil {
		return err
	}

	_, err = s.saveAnalysis(ctx, fullName, email, row.Text, doc)
	return err
}
