package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translation_requests (
		id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS translation_attempts (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		engine_name TEXT NOT NULL,
		target_code TEXT NOT NULL,
		confidence REAL,
		overall_quality REAL,
		duration_ms INTEGER,
		cost REAL,
		error TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS final_translations (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		selected_engine TEXT,
		final_code TEXT NOT NULL,
		strategy TEXT,
		fallback_used BOOLEAN DEFAULT FALSE,
		score REAL,
		reasoning TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (request_id) REFERENCES translation_requests(id)
	);

	CREATE TABLE IF NOT EXISTS translation_memory (
		id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		final_code TEXT NOT NULL,
		draft_code TEXT,
		engine_used TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_code, source_lang, target_lang)
	);

	-- draft_cache stores primary translation drafts (pre-refinement)
	CREATE TABLE IF NOT EXISTS draft_cache (
		id TEXT PRIMARY KEY,
		source_code TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		draft_code TEXT NOT NULL,
		engine_used TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_code, source_lang, target_lang, engine_used)
	);

	-- patterns holds the learned-translation corpus read by the pattern engine
	CREATE TABLE IF NOT EXISTS patterns (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_code TEXT NOT NULL,
		target_code TEXT NOT NULL,
		confidence REAL DEFAULT 0.8,
		usage_count INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_code, source_lang, target_lang)
	);

	-- batch_checkpoints tracks progress of batch translation jobs for resume support
	CREATE TABLE IF NOT EXISTS batch_checkpoints (
		id TEXT PRIMARY KEY,
		input_dir TEXT NOT NULL,
		output_dir TEXT NOT NULL,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- batch_checkpoint_units stores per-unit translated results
	CREATE TABLE IF NOT EXISTS batch_checkpoint_units (
		checkpoint_id TEXT NOT NULL,
		file_path TEXT NOT NULL,
		unit_idx INTEGER NOT NULL,
		target_code TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (checkpoint_id, file_path, unit_idx),
		FOREIGN KEY (checkpoint_id) REFERENCES batch_checkpoints(id)
	);

	-- lexicon stores user-defined identifier mappings for consistent renames
	CREATE TABLE IF NOT EXISTS lexicon (
		id TEXT PRIMARY KEY,
		source_lang TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		source_ident TEXT NOT NULL,
		target_ident TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_lang, target_lang, source_ident)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_code, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_draft_lookup ON draft_cache(source_code, source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_patterns_pair ON patterns(source_lang, target_lang);
	CREATE INDEX IF NOT EXISTS idx_attempts_request ON translation_attempts(request_id);
	CREATE INDEX IF NOT EXISTS idx_checkpoint_units ON batch_checkpoint_units(checkpoint_id);
	CREATE INDEX IF NOT EXISTS idx_lexicon_lookup ON lexicon(source_lang, target_lang);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) SaveRequest(ctx context.Context, id, sourceCode, sourceLang, targetLang string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_requests (id, source_code, source_lang, target_lang, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, sourceCode, sourceLang, targetLang, at)
	return err
}

func (s *Store) SaveAttempt(ctx context.Context, requestID, engineName, targetCode string, confidence, overallQuality float64, durationMs int, cost float64, errMsg string) error {
	id := fmt.Sprintf("%s_%s", requestID, engineName)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_attempts (id, request_id, engine_name, target_code, confidence, overall_quality, duration_ms, cost, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, requestID, engineName, targetCode, confidence, overallQuality, durationMs, cost, errMsg)
	return err
}

func (s *Store) SaveFinalTranslation(ctx context.Context, requestID, selectedEngine, finalCode, strategy string, fallbackUsed bool, score float64, reasoning string) error {
	id := fmt.Sprintf("%s_final", requestID)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO final_translations (id, request_id, selected_engine, final_code, strategy, fallback_used, score, reasoning) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, requestID, selectedEngine, finalCode, strategy, fallbackUsed, score, reasoning)
	return err
}

func (s *Store) GetCachedTranslation(ctx context.Context, sourceCode, sourceLang, targetLang string) (string, bool, error) {
	var finalCode string
	var invalidated bool

	err := s.db.QueryRowContext(ctx,
		`SELECT final_code, invalidated FROM translation_memory WHERE source_code = ? AND source_lang = ? AND target_lang = ?`,
		normalizeCode(sourceCode), sourceLang, targetLang).Scan(&finalCode, &invalidated)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_code = ? AND source_lang = ? AND target_lang = ?`,
		time.Now(), normalizeCode(sourceCode), sourceLang, targetLang)

	return finalCode, true, err
}

func (s *Store) SaveToMemory(ctx context.Context, sourceCode, sourceLang, targetLang, finalCode, draftCode, engineUsed string) error {
	id := fmt.Sprintf("mem_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO translation_memory (id, source_code, source_lang, target_lang, final_code, draft_code, engine_used, usage_count, invalidated, last_used, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, 1, FALSE, ?, ?)`,
		id, normalizeCode(sourceCode), sourceLang, targetLang, finalCode, draftCode, engineUsed, time.Now(), time.Now())
	return err
}

// SaveDraft stores the primary (pre-refinement) translation draft.
func (s *Store) SaveDraft(ctx context.Context, sourceCode, sourceLang, targetLang, draftCode, engineUsed string) error {
	id := fmt.Sprintf("d_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO draft_cache (id, source_code, source_lang, target_lang, draft_code, engine_used, created_at, last_used) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, normalizeCode(sourceCode), sourceLang, targetLang, draftCode, engineUsed, time.Now(), time.Now())
	return err
}

// GetDraft returns a cached pre-refinement draft if available.
func (s *Store) GetDraft(ctx context.Context, sourceCode, sourceLang, targetLang, engineUsed string) (string, bool, error) {
	var draftCode string
	err := s.db.QueryRowContext(ctx,
		`SELECT draft_code FROM draft_cache WHERE source_code = ? AND source_lang = ? AND target_lang = ? AND engine_used = ?`,
		normalizeCode(sourceCode), sourceLang, targetLang, engineUsed).Scan(&draftCode)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	_, _ = s.db.ExecContext(ctx,
		`UPDATE draft_cache SET last_used = ? WHERE source_code = ? AND source_lang = ? AND target_lang = ? AND engine_used = ?`,
		time.Now(), normalizeCode(sourceCode), sourceLang, targetLang, engineUsed)
	return draftCode, true, nil
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          string
	SourceCode  string
	SourceLang  string
	TargetLang  string
	FinalCode   string
	EngineUsed  string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// CacheStats summarises translation memory usage.
type CacheStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

func (s *Store) InvalidateMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// DeleteMemory permanently removes a translation memory entry by ID.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory WHERE id = ?`, id)
	return err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListMemory returns all translation memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_code, source_lang, target_lang, final_code, engine_used, usage_count, invalidated, last_used FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceCode, &e.SourceLang, &e.TargetLang, &e.FinalCode, &e.EngineUsed, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		results = append(results, e)
	}

	return results, rows.Err()
}

// Stats returns summary statistics for the translation memory.
func (s *Store) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// BatchCheckpoint represents a batch translation job's checkpoint record.
type BatchCheckpoint struct {
	ID         string
	InputDir   string
	OutputDir  string
	SourceLang string
	TargetLang string
	Status     string
	CreatedAt  time.Time
}

// CreateBatchCheckpoint creates a new checkpoint record and returns its ID.
func (s *Store) CreateBatchCheckpoint(ctx context.Context, inputDir, outputDir, sourceLang, targetLang string) (string, error) {
	id := fmt.Sprintf("cp_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_checkpoints (id, input_dir, output_dir, source_lang, target_lang) VALUES (?, ?, ?, ?, ?)`,
		id, inputDir, outputDir, sourceLang, targetLang)
	return id, err
}

// GetBatchCheckpoint retrieves a checkpoint by ID.
func (s *Store) GetBatchCheckpoint(ctx context.Context, checkpointID string) (*BatchCheckpoint, error) {
	var cp BatchCheckpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT id, input_dir, output_dir, source_lang, target_lang, status, created_at FROM batch_checkpoints WHERE id = ?`,
		checkpointID).Scan(&cp.ID, &cp.InputDir, &cp.OutputDir, &cp.SourceLang, &cp.TargetLang, &cp.Status, &cp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	return &cp, err
}

// SaveCheckpointUnit persists the translated code for a single unit of a file.
func (s *Store) SaveCheckpointUnit(ctx context.Context, checkpointID, filePath string, unitIdx int, targetCode string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_checkpoint_units (checkpoint_id, file_path, unit_idx, target_code) VALUES (?, ?, ?, ?)`,
		checkpointID, filePath, unitIdx, targetCode)
	return err
}

// GetCheckpointUnits returns all already-translated units for a checkpoint as
// a "path:idx" → code map.
func (s *Store) GetCheckpointUnits(ctx context.Context, checkpointID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, unit_idx, target_code FROM batch_checkpoint_units WHERE checkpoint_id = ?`,
		checkpointID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make(map[string]string)
	for rows.Next() {
		var filePath string
		var unitIdx int
		var targetCode string
		if err := rows.Scan(&filePath, &unitIdx, &targetCode); err != nil {
			return nil, err
		}
		units[fmt.Sprintf("%s:%d", filePath, unitIdx)] = targetCode
	}
	return units, rows.Err()
}

// CompleteBatchCheckpoint marks a checkpoint as completed.
func (s *Store) CompleteBatchCheckpoint(ctx context.Context, checkpointID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE batch_checkpoints SET status = 'completed', updated_at = ? WHERE id = ?`,
		time.Now(), checkpointID)
	return err
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeCode trims whitespace and applies Unicode NFC normalization
// for consistent cache key comparison.
func normalizeCode(code string) string {
	return norm.NFC.String(strings.TrimSpace(code))
}

// levenshtein returns the edit distance between two strings (rune-aware).
// Uses a space-optimized two-row DP implementation.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1]
			} else {
				min := prev[j]
				if prev[j-1] < min {
					min = prev[j-1]
				}
				if curr[j-1] < min {
					min = curr[j-1]
				}
				curr[j] = min + 1
			}
		}
		prev, curr = curr, prev
	}

	return prev[lb]
}

// stringSimilarity returns a similarity score in [0, 1] (1 = identical).
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein(a, b))/float64(maxLen)
}

// FuzzyGetCachedTranslation returns a cached translation whose normalised source
// code has at least threshold similarity (0–1) to sourceCode. Pass threshold ≤ 0
// to disable (always returns "", false, nil). To avoid O(n²) cost, sources longer
// than 1 000 runes are not fuzzy-matched.
func (s *Store) FuzzyGetCachedTranslation(ctx context.Context, sourceCode, sourceLang, targetLang string, threshold float64) (string, bool, error) {
	if threshold <= 0 {
		return "", false, nil
	}

	normalized := normalizeCode(sourceCode)
	const maxFuzzyRunes = 1000
	if len([]rune(normalized)) > maxFuzzyRunes {
		return "", false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_code, final_code FROM translation_memory
		 WHERE source_lang = ? AND target_lang = ? AND NOT invalidated`,
		sourceLang, targetLang)
	if err != nil {
		return "", false, err
	}
	defer rows.Close()

	var bestFinal string
	bestScore := 0.0

	for rows.Next() {
		var srcCode, finalCode string
		if err := rows.Scan(&srcCode, &finalCode); err != nil {
			return "", false, err
		}

		// Quick length pre-filter: if the length difference alone makes it
		// impossible to reach the threshold, skip the expensive edit distance.
		ls, lr := len([]rune(normalized)), len([]rune(srcCode))
		maxL := ls
		if lr > maxL {
			maxL = lr
		}
		diff := ls - lr
		if diff < 0 {
			diff = -diff
		}
		if maxL > 0 && 1.0-float64(diff)/float64(maxL) < threshold {
			continue
		}

		score := stringSimilarity(normalized, srcCode)
		if score >= threshold && score > bestScore {
			bestScore = score
			bestFinal = finalCode
		}
	}
	if err := rows.Err(); err != nil {
		return "", false, err
	}

	if bestFinal != "" {
		return bestFinal, true, nil
	}
	return "", false, nil
}

// PatternMatch is the best corpus hit found for a source fragment.
type PatternMatch struct {
	SourceCode string
	TargetCode string
	Confidence float64
	Similarity float64
}

// AddPattern inserts or replaces a learned-translation pattern.
func (s *Store) AddPattern(ctx context.Context, sourceLang, targetLang, sourceCode, targetCode string, confidence float64) error {
	id := fmt.Sprintf("pt_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO patterns (id, source_lang, target_lang, source_code, target_code, confidence)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sourceLang, targetLang, normalizeCode(sourceCode), targetCode, confidence)
	return err
}

// CountPatterns reports how many patterns exist for a language pair.
func (s *Store) CountPatterns(ctx context.Context, sourceLang, targetLang string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patterns WHERE source_lang = ? AND target_lang = ?`,
		sourceLang, targetLang).Scan(&n)
	return n, err
}

// FuzzyBestPattern returns the corpus pattern most similar to sourceCode for
// the language pair, provided it clears threshold. Same pre-filter and rune
// cap as FuzzyGetCachedTranslation.
func (s *Store) FuzzyBestPattern(ctx context.Context, sourceCode, sourceLang, targetLang string, threshold float64) (*PatternMatch, bool, error) {
	if threshold <= 0 {
		return nil, false, nil
	}

	normalized := normalizeCode(sourceCode)
	const maxFuzzyRunes = 1000
	if len([]rune(normalized)) > maxFuzzyRunes {
		return nil, false, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT source_code, target_code, confidence FROM patterns
		 WHERE source_lang = ? AND target_lang = ?`,
		sourceLang, targetLang)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var best *PatternMatch

	for rows.Next() {
		var srcCode, tgtCode string
		var conf float64
		if err := rows.Scan(&srcCode, &tgtCode, &conf); err != nil {
			return nil, false, err
		}

		ls, lr := len([]rune(normalized)), len([]rune(srcCode))
		maxL := ls
		if lr > maxL {
			maxL = lr
		}
		diff := ls - lr
		if diff < 0 {
			diff = -diff
		}
		if maxL > 0 && 1.0-float64(diff)/float64(maxL) < threshold {
			continue
		}

		score := stringSimilarity(normalized, srcCode)
		if score >= threshold && (best == nil || score > best.Similarity) {
			best = &PatternMatch{SourceCode: srcCode, TargetCode: tgtCode, Confidence: conf, Similarity: score}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	if best == nil {
		return nil, false, nil
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE patterns SET usage_count = usage_count + 1 WHERE source_code = ? AND source_lang = ? AND target_lang = ?`,
		best.SourceCode, sourceLang, targetLang)

	return best, true, nil
}

// LexiconEntry represents a row in the lexicon table.
type LexiconEntry struct {
	ID          string
	SourceLang  string
	TargetLang  string
	SourceIdent string
	TargetIdent string
	CreatedAt   time.Time
}

// AddLexiconEntry inserts or replaces an identifier mapping.
func (s *Store) AddLexiconEntry(ctx context.Context, sourceLang, targetLang, sourceIdent, targetIdent string) error {
	id := fmt.Sprintf("lx_%d", time.Now().UnixNano())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO lexicon (id, source_lang, target_lang, source_ident, target_ident)
		 VALUES (?, ?, ?, ?, ?)`,
		id, sourceLang, targetLang, sourceIdent, targetIdent)
	return err
}

// GetLexicon returns all identifier mappings for a language pair as a
// source-identifier → target-identifier map, ready to hand to an engine.
func (s *Store) GetLexicon(ctx context.Context, sourceLang, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_ident, target_ident FROM lexicon WHERE source_lang = ? AND target_lang = ?`,
		sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idents := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		idents[src] = tgt
	}
	return idents, rows.Err()
}

// ListLexicon returns all lexicon entries, optionally filtered by language
// pair (pass empty strings to return everything).
func (s *Store) ListLexicon(ctx context.Context, sourceLang, targetLang string) ([]LexiconEntry, error) {
	query := `SELECT id, source_lang, target_lang, source_ident, target_ident, created_at FROM lexicon`
	var args []interface{}

	switch {
	case sourceLang != "" && targetLang != "":
		query += ` WHERE source_lang = ? AND target_lang = ?`
		args = append(args, sourceLang, targetLang)
	case sourceLang != "":
		query += ` WHERE source_lang = ?`
		args = append(args, sourceLang)
	case targetLang != "":
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY source_lang, target_lang, source_ident`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LexiconEntry
	for rows.Next() {
		var e LexiconEntry
		if err := rows.Scan(&e.ID, &e.SourceLang, &e.TargetLang, &e.SourceIdent, &e.TargetIdent, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteLexiconEntry removes a lexicon entry by ID.
func (s *Store) DeleteLexiconEntry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM lexicon WHERE id = ?`, id)
	return err
}
