package llmgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
)

func request(code string, source, target dialect.Language) engine.Request {
	return engine.Request{
		Unit: engine.Unit{
			ID:         "u1",
			Language:   source,
			Code:       code,
			Kind:       engine.KindSnippet,
			Complexity: 3,
		},
		TargetLang: target,
	}
}

func generateServer(t *testing.T, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"response": response})
	}))
}

func TestEngine_Translate_Success(t *testing.T) {
	server := generateServer(t, "```go\nfmt.Println([PH0])\n```")
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	res, err := e.Translate(context.Background(), request(`print("hello")`, dialect.Python311, dialect.Go119))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetCode != `fmt.Println("hello")` {
		t.Errorf("expected restored literal, got %q", res.TargetCode)
	}
	if res.Confidence != 0.7 {
		t.Errorf("clean generation should report 0.7, got %f", res.Confidence)
	}
	if res.Metadata.NetworkCalls != 1 {
		t.Errorf("expected one network call, got %d", res.Metadata.NetworkCalls)
	}
	if res.Metadata.Extra["model"] != "test-model" {
		t.Errorf("expected model in metadata, got %v", res.Metadata.Extra)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestEngine_Translate_ReasoningBlockStripped(t *testing.T) {
	server := generateServer(t, "<think>plan the rewrite</think>\n```go\nx := 1\n```")
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	res, err := e.Translate(context.Background(), request("x = 1", dialect.Python311, dialect.Go119))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TargetCode != "x := 1" {
		t.Errorf("reasoning block and fences should be stripped, got %q", res.TargetCode)
	}
}

func TestEngine_Translate_DroppedMarker(t *testing.T) {
	server := generateServer(t, "a := [PH0]\nb := \"lost\"")
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	res, err := e.Translate(context.Background(), request("a = \"x\"\nb = \"y\"", dialect.Python311, dialect.Go119))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.TargetCode, `a := "x"`) {
		t.Errorf("surviving marker should be restored: %q", res.TargetCode)
	}
	if res.Confidence >= 0.7 {
		t.Errorf("dropped marker should cost confidence, got %f", res.Confidence)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "1 protected literal") {
		t.Errorf("expected a dropped-literal warning, got %v", res.Warnings)
	}
}

func TestEngine_Translate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	_, err := e.Translate(context.Background(), request("x = 1", dialect.Python311, dialect.Go119))
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}

	m := e.Metrics()
	if m.Failed != 1 {
		t.Errorf("failure should be recorded, got %+v", m)
	}
	if m.ErrorCounts["status"] != 1 {
		t.Errorf("expected a status error count, got %v", m.ErrorCounts)
	}
}

func TestEngine_Translate_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	_, err := e.Translate(context.Background(), request("x = 1", dialect.Python311, dialect.Go119))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if e.Metrics().ErrorCounts["decode"] != 1 {
		t.Errorf("expected a decode error count, got %v", e.Metrics().ErrorCounts)
	}
}

func TestEngine_PromptContents(t *testing.T) {
	var gotPrompt, gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotPrompt, _ = req["prompt"].(string)
		gotModel, _ = req["model"].(string)
		json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	req := request(`print("hello")`, dialect.Python311, dialect.Go119)
	req.Lexicon = map[string]string{"total": "sum"}
	req.Context = "func prior() {}"

	if _, err := e.Translate(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotModel != "test-model" {
		t.Errorf("expected model test-model, got %q", gotModel)
	}
	for _, want := range []string{"python311", "go119", "total -> sum", "func prior() {}", "[PH0]"} {
		if !strings.Contains(gotPrompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, gotPrompt)
		}
	}
	if strings.Contains(gotPrompt, `"hello"`) {
		t.Error("raw literal should not reach the prompt")
	}
}

func TestEngine_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := New(server.URL, "test-model", 20)
	if err := e.IsAvailable(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	e2 := New(down.URL, "test-model", 20)
	down.Close()
	if err := e2.IsAvailable(context.Background()); err == nil {
		t.Error("closed backend should report unavailable")
	}
}

func TestEngine_Initialize(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		gotModel, _ = req["model"].(string)
		json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer server.Close()

	e := New("", "", 20)
	err := e.Initialize(context.Background(), map[string]any{
		"base_url":        server.URL + "/",
		"model":           "tuned-model",
		"timeout_seconds": 30.0,
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if e.client.Timeout != 30*time.Second {
		t.Errorf("timeout not applied, got %v", e.client.Timeout)
	}

	if _, err := e.Translate(context.Background(), request("x = 1", dialect.Python311, dialect.Go119)); err != nil {
		t.Fatalf("translate after initialize: %v", err)
	}
	if gotModel != "tuned-model" {
		t.Errorf("expected tuned-model, got %q", gotModel)
	}

	if err := e.Initialize(context.Background(), map[string]any{"timeout_seconds": "fast"}); err == nil {
		t.Error("non-numeric timeout should be rejected")
	}
}

func TestEngine_CanHandle(t *testing.T) {
	e := New("", "", 20)
	ok, err := e.CanHandle(context.Background(), request("x", dialect.Python311, dialect.Go119))
	if err != nil || !ok {
		t.Errorf("known pair should be handled, ok=%v err=%v", ok, err)
	}
	bad := request("x", dialect.Unknown, dialect.Go119)
	ok, _ = e.CanHandle(context.Background(), bad)
	if ok {
		t.Error("unknown source language should be declined")
	}
}

func TestEngineInterface(t *testing.T) {
	var _ engine.Engine = (*Engine)(nil)
}

func TestEngine_Estimates(t *testing.T) {
	e := New("", "", 20)

	short := request("x = 1", dialect.Python311, dialect.Go119)
	long := request(strings.Repeat("x = 1\n", 100), dialect.Python311, dialect.Go119)
	if e.EstimateCost(long) <= e.EstimateCost(short) {
		t.Error("cost should grow with code size")
	}
	if e.EstimateTime(long) <= e.EstimateTime(short) {
		t.Error("time should grow with line count")
	}

	easy := request("x = 1", dialect.Python311, dialect.Go119)
	easy.Unit.Complexity = 1
	hard := request("x = 1", dialect.Python311, dialect.Go119)
	hard.Unit.Complexity = 10
	if e.Confidence(context.Background(), hard) >= e.Confidence(context.Background(), easy) {
		t.Error("confidence should fall with complexity")
	}
}
