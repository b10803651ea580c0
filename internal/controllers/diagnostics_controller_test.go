package controllers_test

import (
	"net/http"

	"trustlens/internal/testhelpers"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("DiagnosticsController", func() {
	var dbConn *gorm.DB

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		var err error
		dbConn, err = testhelpers.OpenTestDB()
		if err != nil {
			Skip("database not available: " + err.Error())
		}
	})

	Describe("GET /api/health-ml", func() {
		It("reports the analytics sample", func() {
			router := newRouter(dbConn, testConfig(), nil)

			w := performRequest(router, http.MethodGet, "/api/health-ml", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decodeBody(w)
			Expect(body).To(HaveKeyWithValue("ok", true))
			Expect(body["analytics_sample"]).To(HaveKeyWithValue("total_rows", 42.0))
		})

		It("reports failures with 500", func() {
			cfg := testConfig()
			cfg.PythonPath = "definitely-not-an-interpreter"
			router := newRouter(dbConn, cfg, nil)

			w := performRequest(router, http.MethodGet, "/api/health-ml", nil)
			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(decodeBody(w)).To(And(HaveKeyWithValue("ok", false), HaveKey("error")))
		})
	})

	Describe("GET /api/diagnostics", func() {
		It("reports every sub-check", func() {
			router := newRouter(dbConn, testConfig(), nil)

			w := performRequest(router, http.MethodGet, "/api/diagnostics", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decodeBody(w)
			Expect(body["db"]).To(HaveKeyWithValue("ok", true))
			Expect(body["db"]).To(HaveKey("version"))
			Expect(body["db"].(map[string]any)["tables"]).To(ConsistOf("users", "reviews", "review_analysis", "predict"))
			Expect(body["python"]).To(HaveKeyWithValue("script_exists", true))
			Expect(body["artifacts"]).To(HaveKeyWithValue("scaler.joblib", false))
			Expect(body["artifacts"]).To(HaveLen(5))
			Expect(body).To(HaveKeyWithValue("sample_analytics", "ok"))
		})

		It("still answers when the predictor script is missing", func() {
			cfg := testConfig()
			cfg.PredictorScript = "/nonexistent/inference_service.py"
			router := newRouter(dbConn, cfg, nil)

			w := performRequest(router, http.MethodGet, "/api/diagnostics", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decodeBody(w)
			Expect(body["python"]).To(HaveKeyWithValue("script_exists", false))
			Expect(body["db"]).To(HaveKeyWithValue("ok", true))
			Expect(body["sample_analytics"]).To(HavePrefix("error: "))
		})

		It("isolates a broken database", func() {
			broken, err := testhelpers.OpenTestDB()
			Expect(err).NotTo(HaveOccurred())
			sqlDB, err := broken.DB()
			Expect(err).NotTo(HaveOccurred())
			Expect(sqlDB.Close()).To(Succeed())

			router := newRouter(broken, testConfig(), nil)

			w := performRequest(router, http.MethodGet, "/api/diagnostics", nil)
			Expect(w.Code).To(Equal(http.StatusOK))

			body := decodeBody(w)
			Expect(body["db"]).To(And(HaveKeyWithValue("ok", false), HaveKey("error")))
			Expect(body).To(HaveKeyWithValue("sample_analytics", "ok"))
		})
	})

	Describe("GET /health and /metrics", func() {
		It("reports liveness", func() {
			router := newRouter(dbConn, testConfig(), nil)

			w := performRequest(router, http.MethodGet, "/health", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decodeBody(w)).To(HaveKeyWithValue("status", "UP"))
		})

		It("exposes predictor call counters", func() {
			router := newRouter(dbConn, testConfig(), nil)

			Expect(performRequest(router, http.MethodGet, "/api/analytics", nil).Code).To(Equal(http.StatusOK))

			w := performRequest(router, http.MethodGet, "/metrics", nil)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`trustlens_predictor_calls_total{command="analytics",status="success"} 1`))
		})
	})
})
