// Package mcp exposes the TrustLens API as Model Context Protocol tools over
// newline-delimited JSON-RPC on stdio.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	protocolVersion = "2024-11-05"
	defaultTimeout  = 15 * time.Second
)

var errEmptyLine = errors.New("empty line")

// Server handles MCP requests over a reader/writer pair.
type Server struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.SugaredLogger

	in    *bufio.Reader
	out   *bufio.Writer
	outMu sync.Mutex
	tools []Tool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Server)

// WithHTTPClient replaces the upstream client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Server) { s.client = c }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server calling the API at baseURL.
func NewServer(baseURL string, in io.Reader, out io.Writer, opts ...Option) *Server {
	s := &Server{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		timeout: defaultTimeout,
		logger:  zap.NewNop().Sugar(),
		in:      bufio.NewReader(in),
		out:     bufio.NewWriter(out),
		tools:   DefaultTools(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve runs the read/dispatch/write loop until the input ends, an exit
// notification arrives, or ctx is cancelled. Requests are handled
// concurrently; Serve waits for in-flight ones before returning.
func (s *Server) Serve(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()
	defer s.wg.Wait()

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			line, err := s.in.ReadBytes('\n')
			if len(bytes.TrimSpace(line)) > 0 {
				select {
				case lines <- line:
				case <-s.ctx.Done():
					return
				}
			}
			if err != nil {
				readErr <- err
				return
			}
		}
	}()

	for {
		select {
		case <-s.ctx.Done():
			return nil
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		case line := <-lines:
			req, err := parseMessage(line)
			if err != nil {
				s.logger.Warnw("failed to parse message", "error", err)
				continue
			}

			s.wg.Add(1)
			go func(r Request) {
				defer s.wg.Done()

				resp := s.handleRequest(r)
				if resp == nil {
					return
				}
				if err := s.writeMessage(*resp); err != nil {
					s.logger.Errorw("failed to write message", "error", err)
				}
			}(req)
		}
	}
}

// handleRequest routes a single MCP request. Notifications get no response.
func (s *Server) handleRequest(req Request) *Response {
	switch req.Method {
	case "initialize":
		return s.reply(req, InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: map[string]any{
				"tools": map[string]any{},
			},
			ServerInfo: map[string]any{
				"name":    "trustlens-mcp",
				"version": "1.0.0",
			},
		})
	case "notifications/initialized":
		return nil
	case "tools/list":
		return s.reply(req, ListToolsResult{Tools: s.tools})
	case "tools/call":
		return s.handleToolCall(req)
	case "ping":
		return s.reply(req, map[string]any{})
	case "shutdown":
		return s.reply(req, nil)
	case "exit", "notifications/exit":
		s.cancel()
		return nil
	}

	return s.error(req, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method), nil)
}

func (s *Server) handleToolCall(req Request) *Response {
	var params ToolCallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return s.error(req, CodeInvalidParams, "invalid params", err.Error())
		}
	}
	if params.Arguments == nil {
		params.Arguments = map[string]any{}
	}

	var (
		result *ToolCallResult
		rpcErr *ResponseError
	)
	switch params.Name {
	case ToolAnalyzeReview:
		result, rpcErr = s.callAnalyzeReview(s.ctx, params.Arguments)
	case ToolReviewAnalyses:
		result, rpcErr = s.callReviewAnalyses(s.ctx, params.Arguments)
	case ToolFraudAnalytics:
		result, rpcErr = s.callFraudAnalytics(s.ctx, params.Arguments)
	default:
		return s.error(req, CodeMethodNotFound, fmt.Sprintf("tool not found: %s", params.Name), nil)
	}

	if rpcErr != nil {
		return &Response{JSONRPC: "2.0", ID: req.ID, Error: rpcErr}
	}
	return s.reply(req, result)
}

func (s *Server) reply(req Request, result any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}
}

func (s *Server) error(req Request, code int, message string, data any) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
		Error: &ResponseError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

func parseMessage(line []byte) (Request, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Request{}, errEmptyLine
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("json parse error: %w", err)
	}
	return req, nil
}

// writeMessage sends one JSON document followed by a newline.
func (s *Server) writeMessage(resp Response) error {
	s.outMu.Lock()
	defer s.outMu.Unlock()

	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := s.out.Write(payload); err != nil {
		return err
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return err
	}
	return s.out.Flush()
}
