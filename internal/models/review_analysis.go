package models

import (
	"time"

	"gorm.io/datatypes"
)

// ReviewAnalysis is a denormalized snapshot of one predictor run. Email is
// matched informally against users and is not a foreign key.
type ReviewAnalysis struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	FullName  string         `gorm:"size:200;not null" json:"full_name"`
	Email     string         `gorm:"size:255;not null;index:idx_review_analysis_email" json:"email"`
	Review    string         `gorm:"not null" json:"review"`
	Analysis  datatypes.JSON `gorm:"not null" json:"analysis"`
	CreatedAt time.Time      `gorm:"not null;index:idx_review_analysis_created_at" json:"created_at"`
}

func (ReviewAnalysis) TableName() string {
	return "review_analysis"
}
