package models

import "time"

type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     *uint     `gorm:"index:idx_reviews_user_id" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	ClientName string    `gorm:"size:200;not null" json:"client_name"`
	Rating     float64   `gorm:"type:numeric" json:"rating"`
	ReviewText string    `gorm:"not null" json:"review_text"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}
