package refiner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/valpere/perekod/internal/dialect"
)

func TestOllamaRefiner_New(t *testing.T) {
	refiner := NewOllamaRefiner("qwen2.5-coder:7b", "http://localhost:11434")

	if refiner == nil {
		t.Fatal("expected non-nil refiner")
	}
	if refiner.model != "qwen2.5-coder:7b" {
		t.Errorf("expected model 'qwen2.5-coder:7b', got %q", refiner.model)
	}
	if refiner.baseURL != "http://localhost:11434" {
		t.Errorf("expected baseURL 'http://localhost:11434', got %q", refiner.baseURL)
	}
	if refiner.client == nil {
		t.Error("expected non-nil HTTP client")
	}
}

func TestOllamaRefiner_Refine_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "qwen2.5-coder:7b" {
			t.Errorf("expected model 'qwen2.5-coder:7b', got %q", req.Model)
		}
		if req.Stream != false {
			t.Error("expected stream=false")
		}

		resp := ollamaResponse{
			Response: "```go\nfunc add(a, b int) int { return a + b }\n```",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("qwen2.5-coder:7b", server.URL)

	result, err := refiner.Refine(context.Background(), dialect.Python311, dialect.Go119,
		"def add(a, b):\n    return a + b\n",
		"func add(a int, b int) int {\n\treturn a + b\n}\n")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "func add(a, b int) int { return a + b }" {
		t.Errorf("expected the fenced completion cleaned, got %q", result)
	}
}

func TestOllamaRefiner_Refine_ReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := ollamaResponse{
			Response: "",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("qwen2.5-coder:7b", server.URL)

	draft := "func add(a int, b int) int { return a + b }"
	result, err := refiner.Refine(context.Background(), dialect.Python311, dialect.Go119, "def add(a, b): ...", draft)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// When the response is empty, should return the draft.
	if result != draft {
		t.Errorf("expected original draft when response empty, got %q", result)
	}
}

func TestOllamaRefiner_Refine_ApiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("missing", server.URL)

	_, err := refiner.Refine(context.Background(), dialect.Python311, dialect.Go119, "x", "y")
	if err == nil || !strings.Contains(err.Error(), "status 404") {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestOllamaRefiner_Refine_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	refiner := NewOllamaRefiner("qwen2.5-coder:7b", server.URL)

	_, err := refiner.Refine(context.Background(), dialect.Python311, dialect.Go119, "x", "y")
	if err == nil || !strings.Contains(err.Error(), "decode") {
		t.Errorf("expected a decode error, got %v", err)
	}
}

func TestBuildRefinementPrompt(t *testing.T) {
	prompt := buildRefinementPrompt(dialect.Python311, dialect.Go119,
		"def add(a, b):\n    return a + b\n",
		"func add(a int, b int) int {\n\treturn a + b\n}\n")

	if !strings.Contains(prompt, "python311") || !strings.Contains(prompt, "go119") {
		t.Error("prompt must name both languages")
	}
	if !strings.Contains(prompt, "def add(a, b):") {
		t.Error("prompt must include the original source")
	}
	if !strings.Contains(prompt, "func add(a int, b int) int") {
		t.Error("prompt must include the draft")
	}
	if !strings.Contains(prompt, "return it unchanged") {
		t.Error("prompt must allow keeping a good draft")
	}
}

func TestRefinerInterface(t *testing.T) {
	// Verify OllamaRefiner satisfies the Refiner interface
	var _ Refiner = (*OllamaRefiner)(nil)
}
