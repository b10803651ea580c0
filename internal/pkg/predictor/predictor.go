// Package predictor runs the external fraud-scoring process.
//
// Each call starts "<interpreter> <script> <command>", writes an optional JSON
// payload to stdin, and reads exactly one JSON document from stdout.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Commands understood by the inference script.
const (
	CommandPredict   = "predict"
	CommandAnalytics = "analytics"
)

// waitDelay bounds how long Run waits for output pipes after the process is
// killed by a cancelled context.
const waitDelay = 5 * time.Second

var errEmptyOutput = errors.New("empty output")

// Observer receives the outcome of every invocation.
type Observer interface {
	ObservePredictorCall(command string, err error, elapsed time.Duration)
}

// Input is the payload of the predict command.
type Input struct {
	Text       string  `json:"text"`
	Rating     float64 `json:"rating"`
	ProductID  string  `json:"productId,omitempty"`
	ReviewerID string  `json:"reviewerId,omitempty"`
}

type Client struct {
	interpreter string
	script      string
	timeout     time.Duration
	observer    Observer
}

type Option func(*Client)

// WithTimeout bounds every call. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

func New(interpreter, script string, opts ...Option) *Client {
	c := &Client{
		interpreter: interpreter,
		script:      script,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Interpreter() string { return c.interpreter }

func (c *Client) Script() string { return c.script }

// Predict scores a single review.
func (c *Client) Predict(ctx context.Context, in Input) (json.RawMessage, error) {
	return c.Run(ctx, CommandPredict, in)
}

// Analytics returns aggregate statistics over the model's dataset.
func (c *Client) Analytics(ctx context.Context) (json.RawMessage, error) {
	return c.Run(ctx, CommandAnalytics, nil)
}

// Run invokes the script with command and returns its JSON output verbatim.
// A nil payload leaves stdin empty.
func (c *Client) Run(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	start := time.Now()
	out, err := c.run(ctx, command, payload)
	if c.observer != nil {
		c.observer.ObservePredictorCall(command, err, time.Since(start))
	}
	return out, err
}

func (c *Client) run(ctx context.Context, command string, payload any) (json.RawMessage, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.interpreter, c.script, command) //nolint:gosec // interpreter and script come from configuration
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("predictor %s: encode payload: %w", command, err)
		}
		cmd.Stdin = bytes.NewReader(body)
	}

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("predictor %s: %w", command, ctxErr)
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &ExitError{Command: command, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return nil, &ProcessError{Command: command, Err: err}
	}

	return parseOutput(command, stdout.Bytes(), stderr.String())
}

func parseOutput(command string, stdout []byte, stderr string) (json.RawMessage, error) {
	out := bytes.TrimSpace(stdout)
	if len(out) == 0 {
		return nil, &OutputParseError{Command: command, Stderr: stderr, Err: errEmptyOutput}
	}

	var doc any
	if err := json.Unmarshal(out, &doc); err != nil {
		return nil, &OutputParseError{Command: command, Stdout: string(out), Stderr: stderr, Err: err}
	}

	// An embedded error wins over treating the document as a result.
	if obj, ok := doc.(map[string]any); ok {
		if msg, failed := embeddedError(obj["error"]); failed {
			return nil, &ApplicationError{Command: command, Message: msg}
		}
	}

	return json.RawMessage(bytes.Clone(out)), nil
}

// embeddedError reports whether an "error" value is set to something truthy.
func embeddedError(v any) (string, bool) {
	switch e := v.(type) {
	case nil:
		return "", false
	case bool:
		return "error", e
	case float64:
		return fmt.Sprint(e), e != 0
	case string:
		return e, e != ""
	default:
		b, _ := json.Marshal(e)
		return string(b), true
	}
}
