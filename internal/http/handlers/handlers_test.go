package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/jobs"
	"server/internal/prompt"
	"server/internal/providers/genai"
	"server/internal/providers/payment"
	"server/internal/ratelimit"
	"server/internal/report"
	"server/internal/session"
	"server/internal/store"
)

type stubVerifier struct {
	intents map[string]payment.Intent
}

func (s *stubVerifier) Verify(ctx context.Context, ref string) (payment.Intent, error) {
	intent, ok := s.intents[ref]
	if !ok {
		return payment.Intent{}, fmt.Errorf("no such payment intent %q", ref)
	}
	return intent, nil
}

func (s *stubVerifier) MarkUsed(ctx context.Context, ref string) error { return nil }

type stubGenerator struct{}

func (stubGenerator) GenerateReport(ctx context.Context, req genai.ReportRequest) (string, error) {
	return "<!DOCTYPE html>\n<html><body>buyer report</body></html>", nil
}

type testEnv struct {
	router   http.Handler
	queue    *jobs.Queue
	worker   *report.Worker
	verifier *stubVerifier
}

func newTestEnv(t *testing.T, workerCfg report.Config, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	st := store.NewMemoryStore()

	sessions := session.NewManager(st, session.Config{
		TTL:            time.Minute,
		MaxScreenshots: 5,
		MaxBytes:       1 << 20,
	}, logger)
	tracker := jobs.NewTracker(st, time.Minute)
	queue := jobs.NewQueue(st)
	verifier := &stubVerifier{intents: make(map[string]payment.Intent)}

	if workerCfg.Currency == "" {
		workerCfg.Currency = "usd"
	}
	if workerCfg.AcceptedAmounts == nil {
		workerCfg.AcceptedAmounts = []int64{999}
	}
	worker := report.NewWorker(sessions, tracker, queue, verifier, stubGenerator{}, prompt.NewLibrary(), workerCfg, logger)

	app := handlers.NewApp(sessions, tracker, queue, nil, logger)
	router := httpapi.NewRouter(app, httpapi.Options{Limiter: limiter, Logger: logger})

	return &testEnv{router: router, queue: queue, worker: worker, verifier: verifier}
}

// drainOne claims the next pending job and runs it to a terminal state,
// standing in for the worker process.
func (e *testEnv) drainOne(t *testing.T) {
	t.Helper()
	req, err := e.queue.Dequeue(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	e.worker.Process(context.Background(), req)
}

func multipartUpload(t *testing.T, category string, parts []struct{ name, contentType string }) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("category", category); err != nil {
		t.Fatalf("write field: %v", err)
	}
	for _, p := range parts {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="screenshots"; filename=%q`, p.name))
		header.Set("Content-Type", p.contentType)
		part, err := w.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		if _, err := part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0}); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (e *testEnv) createSession(t *testing.T, category string, jpegs int) (int, map[string]any) {
	t.Helper()
	parts := make([]struct{ name, contentType string }, jpegs)
	for i := range parts {
		parts[i] = struct{ name, contentType string }{fmt.Sprintf("shot-%d.jpg", i), "image/jpeg"}
	}
	body, contentType := multipartUpload(t, category, parts)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec.Code, decodeJSON(t, rec)
}

func (e *testEnv) dispatch(t *testing.T, sessionID, paymentRef string) (int, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(map[string]string{
		"session_id":        sessionID,
		"payment_intent_id": paymentRef,
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/reports/", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec.Code, decodeJSON(t, rec)
}

func (e *testEnv) poll(t *testing.T, jobID string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/status?job_id="+jobID, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec.Code, decodeJSON(t, rec)
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestUploadDispatchPollComplete(t *testing.T) {
	e := newTestEnv(t, report.Config{PaymentBypass: true}, nil)

	code, body := e.createSession(t, "vehicle", 2)
	if code != http.StatusCreated {
		t.Fatalf("upload status %d: %v", code, body)
	}
	if body["screenshot_count"].(float64) != 2 || body["category"] != "vehicle" {
		t.Fatalf("upload body %v", body)
	}
	if body["expires_in_seconds"].(float64) != 60 {
		t.Fatalf("expires_in_seconds %v", body["expires_in_seconds"])
	}
	sessionID := body["session_id"].(string)

	code, body = e.dispatch(t, sessionID, "")
	if code != http.StatusAccepted {
		t.Fatalf("dispatch status %d: %v", code, body)
	}
	if body["status"] != "processing" {
		t.Fatalf("dispatch body %v", body)
	}
	jobID := body["job_id"].(string)

	// Before the worker's first write, the poll sees queued.
	code, body = e.poll(t, jobID)
	if code != http.StatusOK || body["status"] != "queued" {
		t.Fatalf("pre-worker poll %d: %v", code, body)
	}

	e.drainOne(t)

	code, body = e.poll(t, jobID)
	if code != http.StatusOK || body["status"] != "complete" {
		t.Fatalf("poll %d: %v", code, body)
	}
	if !regexp.MustCompile(`^LL-[A-Z0-9]{5}$`).MatchString(body["report_id"].(string)) {
		t.Fatalf("report id %v", body["report_id"])
	}
	if body["report_html"].(string) == "" {
		t.Fatal("report body empty")
	}

	// Terminal record was deleted on delivery; a later poll synthesizes
	// processing.
	_, body = e.poll(t, jobID)
	if body["status"] != "processing" {
		t.Fatalf("post-delivery poll %v", body)
	}
}

func TestDispatchUnknownSessionIsGone(t *testing.T) {
	e := newTestEnv(t, report.Config{PaymentBypass: true}, nil)

	code, body := e.dispatch(t, "11111111-2222-3333-4444-555555555555", "")
	if code != http.StatusGone {
		t.Fatalf("status %d: %v", code, body)
	}
	if body["error"] != "session_expired" {
		t.Fatalf("body %v", body)
	}

	// No job was created or queued.
	if _, err := e.queue.Dequeue(context.Background(), 20*time.Millisecond); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("queue not empty: %v", err)
	}
}

func TestPollUnknownJobReportsProcessing(t *testing.T) {
	e := newTestEnv(t, report.Config{PaymentBypass: true}, nil)

	code, body := e.poll(t, "never-dispatched")
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if body["status"] != "processing" {
		t.Fatalf("body %v, want synthesized processing", body)
	}
}

func TestFailedPaymentSurfacesOnPoll(t *testing.T) {
	e := newTestEnv(t, report.Config{}, nil)
	e.verifier.intents["pi_failed"] = payment.Intent{ID: "pi_failed", Status: "failed", Amount: 999, Currency: "usd"}

	_, body := e.createSession(t, "vehicle", 1)
	sessionID := body["session_id"].(string)

	code, body := e.dispatch(t, sessionID, "pi_failed")
	if code != http.StatusAccepted {
		t.Fatalf("dispatch status %d: %v", code, body)
	}
	jobID := body["job_id"].(string)

	e.drainOne(t)

	_, body = e.poll(t, jobID)
	if body["status"] != "error" {
		t.Fatalf("body %v, want error", body)
	}
	if !strings.Contains(body["error"].(string), "Payment failed") {
		t.Fatalf("error %v", body["error"])
	}
}

func TestUploadInvalidCategory(t *testing.T) {
	e := newTestEnv(t, report.Config{PaymentBypass: true}, nil)

	code, body := e.createSession(t, "spaceship", 1)
	if code != http.StatusBadRequest || body["error"] != "invalid_category" {
		t.Fatalf("status %d body %v", code, body)
	}
}

func TestUploadNoValidFiles(t *testing.T) {
	e := newTestEnv(t, report.Config{PaymentBypass: true}, nil)

	body, contentType := multipartUpload(t, "vehicle", []struct{ name, contentType string }{
		{"malware.exe", "application/octet-stream"},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d", rec.Code)
	}
	if decodeJSON(t, rec)["error"] != "no_valid_files" {
		t.Fatal("wrong error code")
	}
}

func TestUploadRateLimited(t *testing.T) {
	limiter := ratelimit.NewLimiter(store.NewMemoryStore(), 2, time.Minute)
	e := newTestEnv(t, report.Config{PaymentBypass: true}, limiter)

	for i := 0; i < 2; i++ {
		if code, body := e.createSession(t, "vehicle", 1); code != http.StatusCreated {
			t.Fatalf("upload %d status %d: %v", i, code, body)
		}
	}
	code, _ := e.createSession(t, "vehicle", 1)
	if code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", code)
	}
}
