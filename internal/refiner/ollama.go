package refiner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/postprocess"
)

// OllamaRefiner uses a local Ollama model as a code reviewer for the polish
// pass.
type OllamaRefiner struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
}

// NewOllamaRefiner creates a refiner backed by a local Ollama model.
func NewOllamaRefiner(model, baseURL string) *OllamaRefiner {
	return &OllamaRefiner{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Refine sends the draft to the LLM with a code-review prompt and returns the
// polished translation. An empty completion falls back to the draft.
func (r *OllamaRefiner) Refine(ctx context.Context, sourceLang, targetLang dialect.Language, sourceCode, draftCode string) (string, error) {
	prompt := buildRefinementPrompt(sourceLang, targetLang, sourceCode, draftCode)

	reqBody := ollamaRequest{
		Model:  r.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refinement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/generate", r.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create refinement request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("refinement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("refiner returned status %d", resp.StatusCode)
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return "", fmt.Errorf("failed to decode refinement response: %w", err)
	}

	refined := postprocess.Clean(ollamaResp.Response)
	if refined == "" {
		return draftCode, nil
	}
	return refined, nil
}

func buildRefinementPrompt(sourceLang, targetLang dialect.Language, sourceCode, draftCode string) string {
	return fmt.Sprintf(`You are an expert %s engineer reviewing machine-translated code.

# YOUR TASK: POLISH

You will receive a DRAFT %s translation of %s source code.
Rewrite it the way an experienced %s engineer would have written it from scratch.

ORIGINAL (%s):
%s

DRAFT TRANSLATION (%s):
%s

# POLISHING PRINCIPLES

**Priority:**
1. Idiomatic constructs - replace transliterations with native %s idioms
2. Naming conventions - follow the standard %s naming style
3. Error handling - use the conventional %s error idiom
4. Dead weight - drop helpers the target language makes unnecessary
5. Preserve behavior - identical inputs must produce identical outputs

**What to Preserve:**
- All logic, control flow and edge-case behavior
- Exported names callers may rely on
- Comments that carry information

CRITICAL: If the draft is already idiomatic, return it unchanged.

Output ONLY the polished %s code. Do not include any explanation.`,
		targetLang,
		targetLang, sourceLang,
		targetLang,
		sourceLang, sourceCode,
		targetLang, draftCode,
		targetLang,
		targetLang,
		targetLang,
		targetLang,
	)
}
