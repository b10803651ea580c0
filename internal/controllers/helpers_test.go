package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"

	"trustlens/internal/analysis"
	"trustlens/internal/config"
	"trustlens/internal/controllers"
	"trustlens/internal/metrics"
	"trustlens/internal/pkg/predictor"
	"trustlens/internal/routes"
	"trustlens/internal/testhelpers"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// testConfig points the predictor at the shell stand-in shipped with the
// fixtures.
func testConfig() *config.Config {
	script := testhelpers.FixturePath("inference_service.sh")
	return &config.Config{
		PythonPath:       "sh",
		PredictorScript:  script,
		ArtifactsDir:     testhelpers.FixturePath(""),
		BatchConcurrency: 2,
	}
}

func newRouter(dbConn *gorm.DB, cfg *config.Config, queue controllers.Enqueuer) *gin.Engine {
	m, err := metrics.New(prometheus.NewRegistry())
	Expect(err).NotTo(HaveOccurred())

	client := predictor.New(cfg.PythonPath, cfg.PredictorScript, predictor.WithObserver(m))
	service := analysis.NewService(dbConn, client,
		analysis.WithConcurrency(cfg.BatchConcurrency),
		analysis.WithMetrics(m),
	)

	return routes.SetupRouter(routes.Dependencies{
		DB:      dbConn,
		Config:  cfg,
		Service: service,
		Queue:   queue,
		Metrics: m,
	})
}

func performRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		payload, err := json.Marshal(b)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]any {
	var body map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed(), w.Body.String())
	return body
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	err   error
}

func (q *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return nil, q.err
	}
	q.tasks = append(q.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: "default", Type: task.Type(), Payload: task.Payload()}, nil
}
