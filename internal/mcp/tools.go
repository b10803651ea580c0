package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	ToolAnalyzeReview  = "analyze_review"
	ToolReviewAnalyses = "review_analyses"
	ToolFraudAnalytics = "fraud_analytics"
)

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// DefaultTools lists the tools the bridge exposes.
func DefaultTools() []Tool {
	return []Tool{
		{
			Name:        ToolAnalyzeReview,
			Description: "Score a single review for fraud and save the analysis for the given user.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"full_name":  stringProp("Name of the user submitting the review."),
					"email":      stringProp("Email the analysis is stored under."),
					"review":     stringProp("Review text to score."),
					"rating":     map[string]any{"type": "number", "description": "Star rating given with the review."},
					"productId":  stringProp("Product identifier (optional)."),
					"reviewerId": stringProp("Reviewer identifier (optional)."),
				},
				"required": []string{"full_name", "email", "review"},
			},
		},
		{
			Name:        ToolReviewAnalyses,
			Description: "List saved review analyses, newest first, optionally for one email.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"email": stringProp("Only return analyses stored under this email."),
				},
			},
		},
		{
			Name:        ToolFraudAnalytics,
			Description: "Aggregate fraud statistics over the model's reference dataset.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
	}
}

func (s *Server) callAnalyzeReview(ctx context.Context, args map[string]any) (*ToolCallResult, *ResponseError) {
	body := map[string]any{}
	for _, key := range []string{"full_name", "email", "review"} {
		v, err := requiredString(args, key)
		if err != nil {
			return nil, err
		}
		body[key] = v
	}
	for _, key := range []string{"productId", "reviewerId"} {
		if v, ok := args[key].(string); ok && strings.TrimSpace(v) != "" {
			body[key] = v
		}
	}
	if raw, ok := args["rating"]; ok {
		rating, ok := toFloat(raw)
		if !ok {
			return nil, &ResponseError{Code: CodeInvalidParams, Message: "rating must be a number"}
		}
		body["rating"] = rating
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &ResponseError{Code: CodeInvalidParams, Message: "failed to encode arguments", Data: err.Error()}
	}
	return s.upstream(ctx, http.MethodPost, "/api/analytics", payload)
}

func (s *Server) callReviewAnalyses(ctx context.Context, args map[string]any) (*ToolCallResult, *ResponseError) {
	path := "/api/review-analysis"
	if raw, ok := args["email"]; ok {
		email, ok := raw.(string)
		if !ok {
			return nil, &ResponseError{Code: CodeInvalidParams, Message: "email must be a string"}
		}
		if email = strings.TrimSpace(email); email != "" {
			path += "?email=" + url.QueryEscape(email)
		}
	}
	return s.upstream(ctx, http.MethodGet, path, nil)
}

func (s *Server) callFraudAnalytics(ctx context.Context, _ map[string]any) (*ToolCallResult, *ResponseError) {
	return s.upstream(ctx, http.MethodGet, "/api/analytics", nil)
}

// upstream calls the TrustLens API and returns its body as text content.
func (s *Server) upstream(ctx context.Context, method, path string, body []byte) (*ToolCallResult, *ResponseError) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	urlStr := s.baseURL + path
	s.logger.Debugw("calling upstream", "method", method, "url", urlStr)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, &ResponseError{Code: CodeUpstream, Message: "failed to build request", Data: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &ResponseError{Code: CodeUpstream, Message: "request failed", Data: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ResponseError{Code: CodeUpstream, Message: "failed to read response", Data: err.Error()}
	}

	if resp.StatusCode >= 300 {
		return nil, &ResponseError{Code: CodeUpstream, Message: fmt.Sprintf("upstream error: %s", resp.Status), Data: string(respBody)}
	}

	return &ToolCallResult{
		Content: []ContentItem{{Type: "text", Text: string(respBody)}},
	}, nil
}

func requiredString(args map[string]any, key string) (string, *ResponseError) {
	raw, ok := args[key]
	if !ok {
		return "", &ResponseError{Code: CodeInvalidParams, Message: key + " is required"}
	}
	v, ok := raw.(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", &ResponseError{Code: CodeInvalidParams, Message: key + " must be a non-empty string"}
	}
	return strings.TrimSpace(v), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
