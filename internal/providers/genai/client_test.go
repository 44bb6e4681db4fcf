package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"server/internal/domain"
)

func TestGenerateReportSyntheticWithoutAPIKey(t *testing.T) {
	c, err := NewClient(Options{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	out, err := c.GenerateReport(context.Background(), ReportRequest{
		SystemPrompt: "analyze",
		Instruction:  "go",
		Screenshots:  []domain.Screenshot{{Data: []byte{1}, ContentType: "image/jpeg"}},
		RequestID:    "req-1",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "<!DOCTYPE html>") || !strings.Contains(out, "</html>") {
		t.Fatalf("synthetic report is not a document: %q", out)
	}
}

func TestGenerateReportRemote(t *testing.T) {
	var gotPayload geminiGenerateContentRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(geminiGenerateContentResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Parts: []geminiPart{{Text: "<html>ok</html>"}}},
			}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "key", BaseURL: srv.URL, Model: "gemini-test"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	out, err := c.GenerateReport(context.Background(), ReportRequest{
		SystemPrompt: "system",
		Instruction:  "analyze now",
		Screenshots: []domain.Screenshot{
			{Data: []byte{0xFF, 0xD8}, ContentType: "image/jpeg"},
			{Data: []byte{0x89, 0x50}, ContentType: "image/png"},
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "<html>ok</html>" {
		t.Fatalf("output %q", out)
	}

	if gotPayload.SystemInstruction == nil || gotPayload.SystemInstruction.Parts[0].Text != "system" {
		t.Fatalf("system instruction missing: %+v", gotPayload.SystemInstruction)
	}
	if len(gotPayload.Contents) != 1 {
		t.Fatalf("contents %d, want 1", len(gotPayload.Contents))
	}
	parts := gotPayload.Contents[0].Parts
	if len(parts) != 3 {
		t.Fatalf("parts %d, want 2 images + 1 instruction", len(parts))
	}
	if parts[0].InlineData == nil || parts[0].InlineData.MimeType != "image/jpeg" {
		t.Fatalf("first part %+v", parts[0])
	}
	if parts[2].Text != "analyze now" {
		t.Fatalf("instruction part %+v", parts[2])
	}
}

func TestGenerateReportRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exhausted"}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{APIKey: "key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.GenerateReport(context.Background(), ReportRequest{Instruction: "go"})
	if err == nil || !strings.Contains(err.Error(), "quota exhausted") {
		t.Fatalf("err = %v, want quota message", err)
	}
}
