package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"trustlens/internal/analysis"
	"trustlens/internal/config"
	"trustlens/internal/controllers"
	"trustlens/internal/metrics"
	"trustlens/internal/middleware"
)

// Dependencies are the services the router wires into controllers. Queue
// and Metrics may be nil.
type Dependencies struct {
	DB      *gorm.DB
	Config  *config.Config
	Service *analysis.Service
	Queue   controllers.Enqueuer
	Metrics *metrics.Metrics
}

// SetupRouter initializes all controllers and API routes
func SetupRouter(deps Dependencies) *gin.Engine {
	authController := controllers.AuthController{DB: deps.DB}
	reviewController := controllers.ReviewController{DB: deps.DB}
	analysisController := controllers.AnalysisController{
		DB:      deps.DB,
		Service: deps.Service,
		Queue:   deps.Queue,
	}
	diagnosticsController := controllers.DiagnosticsController{
		DB:           deps.DB,
		Analytics:    deps.Service,
		PythonPath:   deps.Config.PythonPath,
		Script:       deps.Config.PredictorScript,
		ArtifactsDir: deps.Config.ArtifactsDir,
	}

	router := gin.New()
	middleware.Setup(router)

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	// Kept outside /api for the existing dashboard form.
	router.POST("/submit_review", reviewController.SubmitReview)

	api := router.Group("/api")
	{
		api.POST("/signup", authController.Signup)
		api.POST("/login", authController.Login)

		api.GET("/reviews", reviewController.GetReviews)

		api.GET("/analytics", analysisController.GetAnalytics)
		api.POST("/analytics", analysisController.AnalyzeReview)
		api.POST("/predict", analysisController.Predict)
		api.GET("/predictions", analysisController.GetPredictions)
		api.GET("/review-analysis", analysisController.GetReviewAnalyses)

		batch := api.Group("/batch-analytics")
		{
			batch.POST("", analysisController.BatchAnalyze)
			batch.POST("/jobs", analysisController.EnqueueBatchAnalyze)
		}

		api.GET("/analysis-scope", analysisController.GetAnalysisScope)
		api.PUT("/analysis-scope", analysisController.PutAnalysisScope)

		api.GET("/health-ml", diagnosticsController.HealthML)
		api.GET("/diagnostics", diagnosticsController.Diagnostics)
	}

	return router
}
