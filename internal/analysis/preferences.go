package analysis

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"trustlens/internal/models"
)

// Preference returns the analysis scope stored for email. Unknown emails are
// reported as inactive.
func (s *Service) Preference(ctx context.Context, email string) (*models.AnalysisPreference, error) {
	pref, err := gorm.G[models.AnalysisPreference](s.db).Where("email = ?", email).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.AnalysisPreference{Email: email}, nil
		}
		return nil, fmt.Errorf("failed to load analysis preference: %w", err)
	}
	return &pref, nil
}

// SetPreference upserts the analysis scope for email.
func (s *Service) SetPreference(ctx context.Context, email string, active bool) (*models.AnalysisPreference, error) {
	pref := models.AnalysisPreference{Email: email, Active: active}

	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"active", "updated_at"}),
	}
	if err := gorm.G[models.AnalysisPreference](s.db, upsert).Create(ctx, &pref); err != nil {
		return nil, fmt.Errorf("failed to save analysis preference: %w", err)
	}
	return &pref, nil
}
