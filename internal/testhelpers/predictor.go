package testhelpers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"trustlens/internal/pkg/predictor"
)

// FakePredictor scores reviews in-process. Review text containing "FAIL"
// makes Predict return an error.
type FakePredictor struct {
	// Delay is added to every Predict call.
	Delay time.Duration
	// AnalyticsDoc is returned by Analytics; AnalyticsErr takes precedence.
	AnalyticsDoc json.RawMessage
	AnalyticsErr error

	mu          sync.Mutex
	inputs      []predictor.Input
	inFlight    int
	maxInFlight int
}

func NewFakePredictor() *FakePredictor {
	return &FakePredictor{
		AnalyticsDoc: json.RawMessage(`{"total_rows":42,"fake_ratio":0.25}`),
	}
}

func (f *FakePredictor) Predict(ctx context.Context, in predictor.Input) (json.RawMessage, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if strings.Contains(in.Text, "FAIL") {
		return nil, &predictor.ExitError{Command: predictor.CommandPredict, ExitCode: 1, Stderr: "simulated crash"}
	}

	return json.Marshal(map[string]any{
		"prediction": "genuine",
		"prob_fake":  0.12,
		"features":   map[string]any{"length": len(in.Text)},
		"components": map[string]any{"dl": 0.1, "gbc": 0.14},
		"input":      in,
	})
}

func (f *FakePredictor) Analytics(_ context.Context) (json.RawMessage, error) {
	if f.AnalyticsErr != nil {
		return nil, f.AnalyticsErr
	}
	if f.AnalyticsDoc == nil {
		return nil, errors.New("no analytics document configured")
	}
	return f.AnalyticsDoc, nil
}

// Inputs returns every Predict payload received so far.
func (f *FakePredictor) Inputs() []predictor.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]predictor.Input(nil), f.inputs...)
}

// MaxInFlight is the highest number of concurrent Predict calls observed.
func (f *FakePredictor) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}
