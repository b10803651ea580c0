package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"trustlens/internal/db"
	"trustlens/internal/logger"
)

// ExpectedArtifacts are the model files the predictor loads from its
// artifacts directory.
var ExpectedArtifacts = []string{
	"deep_learning_model.keras",
	"scaler.joblib",
	"gbc_model.joblib",
	"tfidf_vectorizer.joblib",
	"reviews_large.csv",
}

// AnalyticsSource produces the predictor's aggregate document.
type AnalyticsSource interface {
	Analytics(ctx context.Context) (json.RawMessage, error)
}

type DiagnosticsController struct {
	DB           *gorm.DB
	Analytics    AnalyticsSource
	PythonPath   string
	Script       string
	ArtifactsDir string
}

// HealthML probes the predictor with an analytics call.
func (dc *DiagnosticsController) HealthML(c *gin.Context) {
	doc, err := dc.Analytics.Analytics(c.Request.Context())
	if err != nil {
		logger.Log.Warnw("predictor health probe failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "analytics_sample": doc})
}

// Diagnostics reports store, interpreter, artifact and predictor status.
// Every check runs even when others fail; the response is always 200.
func (dc *DiagnosticsController) Diagnostics(c *gin.Context) {
	ctx := c.Request.Context()

	c.JSON(http.StatusOK, gin.H{
		"db":               dc.checkDB(ctx),
		"python":           dc.checkPython(),
		"artifacts":        dc.checkArtifacts(),
		"sample_analytics": dc.checkAnalytics(ctx),
	})
}

func (dc *DiagnosticsController) checkDB(ctx context.Context) (report gin.H) {
	defer func() {
		if r := recover(); r != nil {
			report = gin.H{"ok": false, "error": fmt.Sprint(r)}
		}
	}()

	conn := dc.DB.WithContext(ctx)
	version, err := db.Version(conn)
	if err != nil {
		return gin.H{"ok": false, "error": err.Error()}
	}
	return gin.H{"ok": true, "version": version, "tables": db.PresentTables(conn)}
}

func (dc *DiagnosticsController) checkPython() gin.H {
	return gin.H{
		"path":          dc.PythonPath,
		"script":        dc.Script,
		"script_exists": fileExists(dc.Script),
	}
}

func (dc *DiagnosticsController) checkArtifacts() map[string]bool {
	artifacts := make(map[string]bool, len(ExpectedArtifacts))
	for _, name := range ExpectedArtifacts {
		artifacts[name] = fileExists(filepath.Join(dc.ArtifactsDir, name))
	}
	return artifacts
}

func (dc *DiagnosticsController) checkAnalytics(ctx context.Context) (status string) {
	defer func() {
		if r := recover(); r != nil {
			status = fmt.Sprintf("error: %v", r)
		}
	}()

	doc, err := dc.Analytics.Analytics(ctx)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err == nil {
		if _, ok := fields["total_rows"]; ok {
			return "ok"
		}
	}
	return "unknown"
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
