package aiextract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"finparser/core"
	"finparser/logging"
	"finparser/statement"
)

const modelReply = `{"company_name":"ITC","financial_data":[
{"particular":"Revenue from operations","key":"revenue_from_operations","values":{"30.06.2025":"21,494.75","31.03.2025_Y":"81,612.84"}},
{"particular":"Net profit","key":"net_profit","values":{"30.06.2025":"4,912.40","31.03.2025_Y":""}}]}`

type chatStub struct {
	server   *httptest.Server
	requests int32
	last     openai.ChatCompletionRequest
}

func newChatStub(t *testing.T, reply string, status int) *chatStub {
	t.Helper()
	stub := &chatStub{}
	stub.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&stub.requests, 1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&stub.last); err != nil {
			t.Errorf("decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error": map[string]string{"message": "upstream failure", "type": "server_error"},
			})
			return
		}
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: "gpt-4o-mini-2024-07-18",
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply}},
			},
			Usage: openai.Usage{PromptTokens: 1000, CompletionTokens: 234, TotalTokens: 1234},
		})
	}))
	t.Cleanup(stub.server.Close)
	return stub
}

func (s *chatStub) provider() *OpenAIProvider {
	return NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: s.server.URL + "/v1"})
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	logger, err := logging.NewLogger(true, filepath.Join(t.TempDir(), "test.log"))
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	return logger
}

func TestExtractor_Extract(t *testing.T) {
	stub := newChatStub(t, modelReply, http.StatusOK)
	e := NewExtractor(stub.provider(), testLogger(t))

	got, err := e.Extract(context.Background(), "<table><tr><td>x</td></tr></table>", "ITC", FormatHTML)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if got.ExtractionMethod != statement.MethodOpenAI {
		t.Errorf("ExtractionMethod = %q", got.ExtractionMethod)
	}
	if len(got.FinancialData) != 2 {
		t.Fatalf("items = %d, want 2", len(got.FinancialData))
	}
	if got.FinancialData[1].Values["30.06.2025"] != "4,912.40" {
		t.Errorf("net_profit = %v", got.FinancialData[1].Values)
	}

	meta := got.Metadata
	if meta == nil {
		t.Fatal("metadata not set")
	}
	if meta.ExtractionMethod != "openai" || meta.TokensUsed != 1234 || meta.SourceFormat != "html" {
		t.Errorf("metadata = %+v", meta)
	}
	if meta.Model != "gpt-4o-mini-2024-07-18" {
		t.Errorf("Model = %q", meta.Model)
	}

	req := stub.last
	if req.Model != DefaultOpenAIModel {
		t.Errorf("request model = %q", req.Model)
	}
	if req.ResponseFormat == nil || req.ResponseFormat.Type != openai.ChatCompletionResponseFormatTypeJSONObject {
		t.Errorf("response format = %+v", req.ResponseFormat)
	}
	if len(req.Messages) != 2 || req.Messages[0].Role != openai.ChatMessageRoleSystem {
		t.Fatalf("messages = %+v", req.Messages)
	}
	if !strings.Contains(req.Messages[1].Content, "for ITC:") {
		t.Errorf("user prompt = %q", req.Messages[1].Content)
	}
}

func TestExtractor_ExtractFile(t *testing.T) {
	stub := newChatStub(t, modelReply, http.StatusOK)
	e := NewExtractor(stub.provider(), nil)
	dir := t.TempDir()

	tests := []struct {
		name       string
		content    string
		wantFormat string
	}{
		{"report-table-1.md", "| a | b |\n| --- | --- |\n", "markdown"},
		{"report-table-1.html", "<table></table>", "html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			got, err := e.ExtractFile(context.Background(), path, "ITC")
			if err != nil {
				t.Fatalf("ExtractFile() error = %v", err)
			}
			if got.Metadata.SourceFormat != tt.wantFormat {
				t.Errorf("SourceFormat = %q, want %q", got.Metadata.SourceFormat, tt.wantFormat)
			}
		})
	}

	if _, err := e.ExtractFile(context.Background(), filepath.Join(dir, "report.txt"), "ITC"); err == nil {
		t.Error("unsupported extension accepted")
	}
	if _, err := e.ExtractFile(context.Background(), filepath.Join(dir, "missing.md"), "ITC"); err == nil {
		t.Error("missing file accepted")
	}
}

func TestExtractor_ExtractExport(t *testing.T) {
	stub := newChatStub(t, modelReply, http.StatusOK)
	e := NewExtractor(stub.provider(), nil)
	dir := t.TempDir()
	html := filepath.Join(dir, "report-table-2.html")
	md := filepath.Join(dir, "report-table-2.md")

	if _, err := e.ExtractExport(context.Background(), "ITC", html, md); !errors.Is(err, ErrNoTableFiles) {
		t.Fatalf("no exports error = %v, want ErrNoTableFiles", err)
	}

	if err := os.WriteFile(md, []byte("| a | b |\n| --- | --- |\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := e.ExtractExport(context.Background(), "ITC", html, md)
	if err != nil {
		t.Fatalf("ExtractExport() error = %v", err)
	}
	if got.Metadata.SourceFormat != "markdown" {
		t.Errorf("SourceFormat = %q, want markdown", got.Metadata.SourceFormat)
	}

	if err := os.WriteFile(html, []byte("<table></table>"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = e.ExtractExport(context.Background(), "ITC", html, md)
	if err != nil {
		t.Fatal(err)
	}
	if got.Metadata.SourceFormat != "html" {
		t.Errorf("SourceFormat = %q, want html", got.Metadata.SourceFormat)
	}
}

func TestExtractor_FillsCompanyName(t *testing.T) {
	stub := newChatStub(t, `{"financial_data":[]}`, http.StatusOK)
	e := NewExtractor(stub.provider(), nil)

	got, err := e.Extract(context.Background(), "table", "DABUR", FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if got.CompanyName != "DABUR" {
		t.Errorf("CompanyName = %q, want DABUR", got.CompanyName)
	}
}

func TestExtractor_InvalidReply(t *testing.T) {
	stub := newChatStub(t, "no table here", http.StatusOK)
	e := NewExtractor(stub.provider(), nil)

	_, err := e.Extract(context.Background(), "table", "ITC", FormatHTML)
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("error = %v, want ErrInvalidResponse", err)
	}
}

func TestWithBreaker_OpensAfterFailures(t *testing.T) {
	stub := newChatStub(t, "", http.StatusInternalServerError)
	p := WithBreaker(stub.provider(), 2, time.Minute, nil)

	for i := 0; i < 2; i++ {
		if _, err := p.Complete(context.Background(), "s", "u"); err == nil {
			t.Fatal("expected upstream error")
		}
	}
	before := atomic.LoadInt32(&stub.requests)

	_, err := p.Complete(context.Background(), "s", "u")
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("error = %v, want ErrProviderUnavailable", err)
	}
	if after := atomic.LoadInt32(&stub.requests); after != before {
		t.Errorf("open breaker still sent %d requests", after-before)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestNewProvider(t *testing.T) {
	cfg := &core.Config{LLMProvider: core.ProviderOpenAI}
	if _, err := NewProvider(context.Background(), cfg, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("missing key error = %v, want ErrNotConfigured", err)
	}

	cfg.OpenAIAPIKey = "sk-test"
	p, err := NewProvider(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	if p.Name() != core.ProviderOpenAI {
		t.Errorf("Name() = %q", p.Name())
	}

	cfg = &core.Config{LLMProvider: core.ProviderGemini}
	if _, err := NewProvider(context.Background(), cfg, nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("gemini without key error = %v", err)
	}
}
