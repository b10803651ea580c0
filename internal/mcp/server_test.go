package mcp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"trustlens/internal/mcp"
	"trustlens/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const baseURL = "http://trustlens.test"

type rpcResponse struct {
	ID     json.RawMessage    `json:"id"`
	Result json.RawMessage    `json:"result"`
	Error  *mcp.ResponseError `json:"error"`
}

// run feeds lines to a fresh server and returns responses keyed by id.
func run(lines ...string) map[string]rpcResponse {
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	var out bytes.Buffer

	server := mcp.NewServer(baseURL+"/", in, &out, mcp.WithHTTPClient(http.DefaultClient))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Expect(server.Serve(ctx)).To(Succeed())

	responses := map[string]rpcResponse{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp rpcResponse
		Expect(json.Unmarshal([]byte(line), &resp)).To(Succeed())
		responses[string(resp.ID)] = resp
	}
	return responses
}

func toolCall(id int, name string, args map[string]any) string {
	payload, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	})
	Expect(err).NotTo(HaveOccurred())
	return string(payload)
}

func toolText(resp rpcResponse) string {
	Expect(resp.Error).To(BeNil())
	var result mcp.ToolCallResult
	Expect(json.Unmarshal(resp.Result, &result)).To(Succeed())
	Expect(result.Content).To(HaveLen(1))
	return result.Content[0].Text
}

var _ = Describe("Server", func() {
	BeforeEach(func() {
		testhelpers.Activate()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("answers the handshake and lists tools", func() {
		responses := run(
			`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
			`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
			``,
			`not json`,
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
			`{"jsonrpc":"2.0","id":3,"method":"ping"}`,
			`{"jsonrpc":"2.0","id":4,"method":"resources/list"}`,
		)

		Expect(responses).To(HaveLen(4))
		Expect(string(responses["1"].Result)).To(ContainSubstring(`"protocolVersion":"2024-11-05"`))

		var list mcp.ListToolsResult
		Expect(json.Unmarshal(responses["2"].Result, &list)).To(Succeed())
		names := []string{}
		for _, tool := range list.Tools {
			names = append(names, tool.Name)
		}
		Expect(names).To(ConsistOf(mcp.ToolAnalyzeReview, mcp.ToolReviewAnalyses, mcp.ToolFraudAnalytics))

		Expect(responses["3"].Error).To(BeNil())
		Expect(responses["4"].Error.Code).To(Equal(mcp.CodeMethodNotFound))
	})

	It("stops reading after an exit notification", func() {
		responses := run(
			`{"jsonrpc":"2.0","id":1,"method":"shutdown"}`,
			`{"jsonrpc":"2.0","method":"exit"}`,
		)
		Expect(responses).To(HaveKey("1"))
	})

	Describe("analyze_review", func() {
		It("posts the review to the analytics endpoint", func() {
			exp := testhelpers.New(baseURL).Post("/api/analytics").Reply(http.StatusCreated).
				JSON(map[string]any{"message": "Review analyzed and saved.", "id": 7})

			responses := run(toolCall(1, mcp.ToolAnalyzeReview, map[string]any{
				"full_name": " Ana Lyst ",
				"email":     "ana@example.com",
				"review":    "Arrived quickly",
				"rating":    4,
			}))

			Expect(toolText(responses["1"])).To(MatchJSON(`{"message":"Review analyzed and saved.","id":7}`))
			Expect(testhelpers.IsDone()).To(BeTrue())
			Expect(exp.ReceivedBody).To(MatchJSON(`{"full_name":"Ana Lyst","email":"ana@example.com","review":"Arrived quickly","rating":4}`))
		})

		DescribeTable("validates arguments before calling upstream",
			func(args map[string]any, message string) {
				responses := run(toolCall(1, mcp.ToolAnalyzeReview, args))
				Expect(responses["1"].Error).NotTo(BeNil())
				Expect(responses["1"].Error.Code).To(Equal(mcp.CodeInvalidParams))
				Expect(responses["1"].Error.Message).To(Equal(message))
			},
			Entry("missing review", map[string]any{"full_name": "A", "email": "a@b.c"}, "review is required"),
			Entry("blank email", map[string]any{"full_name": "A", "email": "  ", "review": "r"}, "email must be a non-empty string"),
			Entry("non-numeric rating", map[string]any{"full_name": "A", "email": "a@b.c", "review": "r", "rating": "five"}, "rating must be a number"),
		)

		It("surfaces upstream failures", func() {
			testhelpers.New(baseURL).Post("/api/analytics").Reply(http.StatusInternalServerError).
				BodyString(`{"error":"Failed to analyze and save review."}`)

			responses := run(toolCall(1, mcp.ToolAnalyzeReview, map[string]any{
				"full_name": "A", "email": "a@b.c", "review": "r",
			}))

			Expect(responses["1"].Error).NotTo(BeNil())
			Expect(responses["1"].Error.Code).To(Equal(mcp.CodeUpstream))
			Expect(responses["1"].Error.Message).To(ContainSubstring("500"))
		})
	})

	Describe("review_analyses", func() {
		It("filters by email", func() {
			testhelpers.New(baseURL).Get("/api/review-analysis?email=ana%40example.com").
				BodyString(`{"rows":[],"count":0}`)

			responses := run(toolCall(1, mcp.ToolReviewAnalyses, map[string]any{"email": "ana@example.com"}))
			Expect(toolText(responses["1"])).To(MatchJSON(`{"rows":[],"count":0}`))
		})
	})

	Describe("fraud_analytics", func() {
		It("relays the analytics document", func() {
			testhelpers.New(baseURL).Get("/api/analytics").BodyString(`{"total_rows":42}`)

			responses := run(toolCall(1, mcp.ToolFraudAnalytics, nil))
			Expect(toolText(responses["1"])).To(MatchJSON(`{"total_rows":42}`))
		})
	})

	It("rejects unknown tools", func() {
		responses := run(toolCall(1, "delete_everything", nil))
		Expect(responses["1"].Error.Code).To(Equal(mcp.CodeMethodNotFound))
	})
})
