package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trustlens/internal/logger"
	"trustlens/internal/models"
)

const reviewListLimit = 500

type ReviewController struct {
	DB *gorm.DB
}

type submitReviewRequest struct {
	UserID     *uint    `json:"userId" binding:"required"`
	ClientName string   `json:"client_name" binding:"required"`
	Rating     *float64 `json:"rating" binding:"required"`
	ReviewText string   `json:"reviewText" binding:"required"`
}

// GetReviews returns the latest reviews, newest first.
func (rc *ReviewController) GetReviews(c *gin.Context) {
	reviews, err := gorm.G[models.Review](rc.DB).Order("created_at DESC, id DESC").Limit(reviewListLimit).Find(c.Request.Context())
	if err != nil {
		logger.Log.Errorw("failed to fetch reviews", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reviews"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rows": reviews, "count": len(reviews)})
}

// SubmitReview stores a review written by a signed-up user. A rating of 0 is
// accepted; only absent fields are rejected.
func (rc *ReviewController) SubmitReview(c *gin.Context) {
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "detail", "All fields are required.", err)
		return
	}

	review := models.Review{
		UserID:     req.UserID,
		ClientName: req.ClientName,
		Rating:     *req.Rating,
		ReviewText: req.ReviewText,
	}
	if err := gorm.G[models.Review](rc.DB).Create(c.Request.Context(), &review); err != nil {
		logger.Log.Errorw("failed to save review", "user_id", *req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to save review due to a server error."})
		return
	}

	logger.Log.Infow("review saved", "id", review.ID, "user_id", *req.UserID)
	c.JSON(http.StatusCreated, gin.H{"message": "Review submitted successfully!"})
}
