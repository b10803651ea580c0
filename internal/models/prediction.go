package models

import (
	"time"

	"gorm.io/datatypes"
)

type Prediction struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ReviewText string         `gorm:"not null" json:"review_text"`
	Rating     float64        `gorm:"type:numeric" json:"rating"`
	ProductID  string         `json:"product_id"`
	ReviewerID string         `json:"reviewer_id"`
	Prediction string         `json:"prediction"`
	ProbFake   *float64       `json:"prob_fake"`
	Features   datatypes.JSON `json:"features"`
	Components datatypes.JSON `json:"components"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Prediction) TableName() string {
	return "predict"
}
