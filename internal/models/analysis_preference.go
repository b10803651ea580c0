package models

import "time"

// AnalysisPreference records whether dashboards should scope analytics to
// the batch results uploaded by Email.
type AnalysisPreference struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Email     string    `gorm:"size:255;not null;uniqueIndex" json:"email"`
	Active    bool      `gorm:"not null" json:"active"`
	UpdatedAt time.Time `json:"updated_at"`
}
