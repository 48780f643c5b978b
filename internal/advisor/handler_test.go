package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"cement-cloud/internal/audit"
)

func testLogger() *log.Logger { return log.New(os.Stdout, "", log.LstdFlags) }

func TestChatHandler(t *testing.T) {
	gen := &stubGenerator{reply: "Kiln is stable."}
	service := NewService(advisorTimeline(t), gen)
	handler, err := NewChatHandler(service, nil, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest("POST", "/ai/chat", strings.NewReader(`{"message":"status?"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response["reply"] != "Kiln is stable." {
		t.Fatalf("unexpected reply %q", response["reply"])
	}
}

func TestChatHandlerValidation(t *testing.T) {
	service := NewService(advisorTimeline(t), &stubGenerator{})
	handler, err := NewChatHandler(service, nil, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest("POST", "/ai/chat", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 400 {
		t.Fatalf("expected 400 for empty message, got %d", rec.Code)
	}

	req = httptest.NewRequest("GET", "/ai/chat", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 405 {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestChatHandlerUnconfigured(t *testing.T) {
	service := NewService(advisorTimeline(t), nil)
	handler, err := NewChatHandler(service, nil, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest("POST", "/ai/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 503 {
		t.Fatalf("expected 503 when unconfigured, got %d", rec.Code)
	}
}

func TestChatHandlerCollaboratorFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("gemini: status 500: internal")}
	service := NewService(advisorTimeline(t), gen)
	handler, err := NewChatHandler(service, nil, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest("POST", "/ai/chat", strings.NewReader(`{"message":"hi"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != 502 {
		t.Fatalf("expected 502 on collaborator failure, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "gemini: status 500") {
		t.Fatalf("expected underlying message surfaced, got %q", rec.Body.String())
	}
}

func TestOptimizeHandler(t *testing.T) {
	gen := &stubGenerator{reply: "Lower kiln feed by 2%."}
	service := NewService(advisorTimeline(t), gen)
	handler, err := NewOptimizeHandler(service, nil, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	body := `{"targetSPC":820,"targetQuality":42,"maxTSR":30}`
	req := httptest.NewRequest("POST", "/ai/optimize", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response["recommendation"] == "" {
		t.Fatal("expected a recommendation")
	}
	if !strings.Contains(gen.prompt, "Target SPC: 820") {
		t.Fatalf("expected targets in prompt:\n%s", gen.prompt)
	}
}

type captureAuditor struct {
	actions []string
}

func (c *captureAuditor) Log(_ context.Context, entry audit.Entry) error {
	c.actions = append(c.actions, entry.Action)
	return nil
}

func TestHandlersAuditActions(t *testing.T) {
	auditor := &captureAuditor{}
	service := NewService(advisorTimeline(t), &stubGenerator{reply: "ok"})

	chat, err := NewChatHandler(service, auditor, testLogger())
	if err != nil {
		t.Fatalf("new chat handler: %v", err)
	}
	rec := httptest.NewRecorder()
	chat.ServeHTTP(rec, httptest.NewRequest("POST", "/ai/chat", strings.NewReader(`{"message":"hi"}`)))
	if rec.Code != 200 {
		t.Fatalf("chat: expected 200, got %d", rec.Code)
	}

	optimize, err := NewOptimizeHandler(service, auditor, testLogger())
	if err != nil {
		t.Fatalf("new optimize handler: %v", err)
	}
	rec = httptest.NewRecorder()
	optimize.ServeHTTP(rec, httptest.NewRequest("POST", "/ai/optimize", strings.NewReader(`{"targetSPC":820}`)))
	if rec.Code != 200 {
		t.Fatalf("optimize: expected 200, got %d", rec.Code)
	}

	if len(auditor.actions) != 2 || auditor.actions[0] != "advisor.chat" || auditor.actions[1] != "advisor.optimize" {
		t.Fatalf("unexpected audit actions: %v", auditor.actions)
	}
}
