package tasks_test

import (
	"context"
	"errors"

	"trustlens/internal/analysis"
	"trustlens/internal/models"
	"trustlens/internal/tasks"
	"trustlens/internal/testhelpers"

	"github.com/hibiken/asynq"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("HandleBatchAnalyzeTask", func() {
	var (
		dbConn *gorm.DB
		fake   *testhelpers.FakePredictor
		p      *tasks.TaskProcessor
		ctx    context.Context
	)

	newTask := func(payload tasks.BatchAnalyzePayload) *asynq.Task {
		task, err := tasks.NewBatchAnalyzeTask(payload)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.Type()).To(Equal(tasks.TypeTaskBatchAnalyze))
		return task
	}

	BeforeEach(func() {
		var err error
		dbConn, err = testhelpers.OpenTestDB()
		if err != nil {
			Skip("database not available: " + err.Error())
		}
		testhelpers.CleanupDB(dbConn)

		fake = testhelpers.NewFakePredictor()
		p = tasks.NewTaskProcessor(analysis.NewService(dbConn, fake, analysis.WithConcurrency(2)))
		ctx = context.Background()
	})

	It("stores one analysis per non-blank row", func() {
		task := newTask(tasks.BatchAnalyzePayload{
			CSV:      "review_text,rating\nGreat product,5\nFAIL,1\n,3\n",
			Email:    "ana@example.com",
			FullName: "Ana Lyst",
		})

		Expect(p.HandleBatchAnalyzeTask(ctx, task)).To(Succeed())

		rows, err := gorm.G[models.ReviewAnalysis](dbConn).Where("email = ?", "ana@example.com").Find(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].Review).To(Equal("Great product"))
	})

	It("does not retry undecodable payloads", func() {
		err := p.HandleBatchAnalyzeTask(ctx, asynq.NewTask(tasks.TypeTaskBatchAnalyze, []byte("{not json")))
		Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())
	})

	It("does not retry payloads missing fields", func() {
		err := p.HandleBatchAnalyzeTask(ctx, newTask(tasks.BatchAnalyzePayload{CSV: "text\nhi\n"}))
		Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())
	})

	It("does not retry structurally invalid documents", func() {
		err := p.HandleBatchAnalyzeTask(ctx, newTask(tasks.BatchAnalyzePayload{
			CSV:      "title\nhello\n",
			Email:    "ana@example.com",
			FullName: "Ana",
		}))
		Expect(errors.Is(err, asynq.SkipRetry)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("review_text/text/review"))
		Expect(fake.Inputs()).To(BeEmpty())
	})
})

var _ = Describe("HandleProbePredictorTask", func() {
	It("never fails the task", func() {
		dbConn, err := testhelpers.OpenTestDB()
		if err != nil {
			Skip("database not available: " + err.Error())
		}

		fake := testhelpers.NewFakePredictor()
		fake.AnalyticsErr = errors.New("predictor down")
		p := tasks.NewTaskProcessor(analysis.NewService(dbConn, fake))

		Expect(p.HandleProbePredictorTask(context.Background(), tasks.NewProbePredictorTask())).To(Succeed())
	})
})
