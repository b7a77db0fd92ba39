package pattern_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
	"github.com/valpere/perekod/internal/engine/pattern"
	"github.com/valpere/perekod/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "patterns.db"))
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func request(code string, source, target dialect.Language) engine.Request {
	return engine.Request{
		Unit: engine.Unit{
			ID:         "u1",
			Language:   source,
			Code:       code,
			Kind:       engine.KindSnippet,
			Complexity: 2,
		},
		TargetLang: target,
	}
}

func TestEngine_TranslateExactHit(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", `print("hello")`, `fmt.Println("hello")`, 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	res, err := e.Translate(ctx, request(`print("hello")`, dialect.Python311, dialect.Go119))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if res.TargetCode != `fmt.Println("hello")` {
		t.Errorf("unexpected target %q", res.TargetCode)
	}
	if res.Confidence < 0.89 || res.Confidence > 0.91 {
		t.Errorf("exact hit should keep stored confidence, got %f", res.Confidence)
	}
	if res.Metadata.CacheHits != 1 {
		t.Errorf("expected cache hit metadata, got %d", res.Metadata.CacheHits)
	}
	if !strings.Contains(res.Reasoning, "100%") {
		t.Errorf("reasoning should mention similarity: %q", res.Reasoning)
	}
}

func TestEngine_TranslateNearMatch(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", `print("hello world")`, `fmt.Println("hello world")`, 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	res, err := e.Translate(ctx, request(`print("hello worlds")`, dialect.Python311, dialect.Go119))
	if err != nil {
		t.Fatalf("near match should be reused: %v", err)
	}
	if res.Confidence >= 0.9 {
		t.Errorf("near match confidence should be scaled below the stored value, got %f", res.Confidence)
	}
}

func TestEngine_TranslateMiss(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", `print("hello")`, `fmt.Println("hello")`, 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	_, err := e.Translate(ctx, request("class Inventory:\n    pass", dialect.Python311, dialect.Go119))
	if err == nil {
		t.Fatal("expected an error when nothing is similar enough")
	}

	m := e.Metrics()
	if m.Failed != 1 {
		t.Errorf("miss should count as a failure, got %+v", m)
	}
	if m.CacheMisses != 1 {
		t.Errorf("miss should count a cache miss, got %+v", m)
	}
}

func TestEngine_CanHandle(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", "a = 1", "a := 1", 0.8); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)

	ok, err := e.CanHandle(ctx, request("a = 1", dialect.Python311, dialect.Go119))
	if err != nil || !ok {
		t.Errorf("seeded pair should be handled, ok=%v err=%v", ok, err)
	}

	ok, _ = e.CanHandle(ctx, request("a = 1", dialect.Java17, dialect.Go119))
	if ok {
		t.Error("unseeded pair should be declined")
	}

	hard := request("a = 1", dialect.Python311, dialect.Go119)
	hard.Unit.Complexity = 8
	ok, _ = e.CanHandle(ctx, hard)
	if ok {
		t.Error("complexity above the cap should be declined")
	}
}

func TestEngine_IsAvailable(t *testing.T) {
	if err := pattern.New(nil, 60).IsAvailable(context.Background()); err == nil {
		t.Error("nil store should report unavailable")
	}
	if err := pattern.New(newStore(t), 60).IsAvailable(context.Background()); err != nil {
		t.Errorf("live store should be available: %v", err)
	}
}

func TestEngine_InitializeMinSimilarity(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", `print("hello world")`, `fmt.Println("hello world")`, 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	if err := e.Initialize(ctx, map[string]any{"min_similarity": 0.99}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if _, err := e.Translate(ctx, request(`print("hello worlds")`, dialect.Python311, dialect.Go119)); err == nil {
		t.Error("raised threshold should reject the near match")
	}

	if err := e.Initialize(ctx, map[string]any{"min_similarity": "high"}); err == nil {
		t.Error("non-numeric min_similarity should be rejected")
	}
	if err := e.Initialize(ctx, map[string]any{"min_similarity": 1.5}); err == nil {
		t.Error("out-of-range min_similarity should be rejected")
	}
}

func TestEngine_LexiconRenames(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", "print(total)", "fmt.Println(total)", 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	req := request("print(total)", dialect.Python311, dialect.Go119)
	req.Lexicon = map[string]string{"total": "sum"}
	res, err := e.Translate(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.TargetCode != "fmt.Println(sum)" {
		t.Errorf("lexicon rename not applied: %q", res.TargetCode)
	}
}

func TestEngineInterface(t *testing.T) {
	var _ engine.Engine = (*pattern.Engine)(nil)
}

func TestEngine_ConfidenceEstimate(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	if err := st.AddPattern(ctx, "python311", "go119", `print("hello")`, `fmt.Println("hello")`, 0.9); err != nil {
		t.Fatal(err)
	}

	e := pattern.New(st, 60)
	hit := e.Confidence(ctx, request(`print("hello")`, dialect.Python311, dialect.Go119))
	if hit < 0.89 {
		t.Errorf("exact hit estimate should be near the stored confidence, got %f", hit)
	}
	miss := e.Confidence(ctx, request("class Inventory:\n    pass", dialect.Python311, dialect.Go119))
	if miss != 0.15 {
		t.Errorf("miss estimate should be the floor 0.15, got %f", miss)
	}
}
