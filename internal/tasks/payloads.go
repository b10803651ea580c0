package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeTaskBatchAnalyze   = "task:batch_analyze"
	TypeTaskProbePredictor = "task:probe_predictor"
)

// --- BatchAnalyze Task ---

// BatchAnalyzePayload carries a CSV document and the submitter it is
// ingested for.
type BatchAnalyzePayload struct {
	CSV      string `json:"csv"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// NewBatchAnalyzeTask creates a new task for asynq
func NewBatchAnalyzeTask(payload BatchAnalyzePayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTaskBatchAnalyze, payloadBytes, asynq.MaxRetry(3)), nil
}

// --- ProbePredictor Task ---

// NewProbePredictorTask creates the periodic predictor health probe. It has
// no payload.
func NewProbePredictorTask() *asynq.Task {
	return asynq.NewTask(TypeTaskProbePredictor, nil, asynq.MaxRetry(0))
}
