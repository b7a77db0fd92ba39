// Package quality grades a translated unit against its source using cheap
// textual heuristics. Scores are advisory: they feed selection gates and
// result scoring, not correctness proofs.
package quality

import (
	"regexp"
	"strings"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
)

// Overall weights. Syntax and semantics dominate; the rest refine.
const (
	weightSyntactic       = 0.30
	weightSemantic        = 0.30
	weightIdiomatic       = 0.15
	weightMaintainability = 0.10
	weightPerformance     = 0.075
	weightSecurity        = 0.075
)

// Assess scores translated code against the source it came from.
func Assess(sourceCode string, sourceLang dialect.Language, targetCode string, targetLang dialect.Language) engine.QualityMetrics {
	m := engine.QualityMetrics{
		SyntacticCorrectness: syntacticScore(targetCode, targetLang),
		SemanticPreservation: semanticScore(sourceCode, targetCode),
		IdiomaticQuality:     idiomaticScore(targetCode, targetLang),
		PerformanceImpact:    performanceScore(sourceCode, targetCode),
		SecurityImprovement:  securityScore(sourceCode, targetCode),
		Maintainability:      maintainabilityScore(targetCode),
	}
	m.OverallQuality = clamp(weightSyntactic*m.SyntacticCorrectness +
		weightSemantic*m.SemanticPreservation +
		weightIdiomatic*m.IdiomaticQuality +
		weightMaintainability*m.Maintainability +
		weightPerformance*m.PerformanceImpact +
		weightSecurity*m.SecurityImprovement)
	return m
}

func syntacticScore(code string, lang dialect.Language) float64 {
	if strings.TrimSpace(code) == "" {
		return 0
	}
	score := 1.0
	if !balanced(code, '(', ')') || !balanced(code, '[', ']') || !balanced(code, '{', '}') {
		score -= 0.4
	}
	if strings.Count(code, `"`)%2 != 0 {
		score -= 0.2
	}
	switch lang {
	case dialect.Python311, dialect.Python2:
		if regexp.MustCompile(`(?m)^\s*(def|class)\s+\w+[^:\n]*$`).MatchString(code) {
			score -= 0.2
		}
	case dialect.Go119, dialect.Rust2021, dialect.Java17, dialect.C17, dialect.Cpp20:
		if strings.Count(code, "\n") > 2 && !strings.ContainsAny(code, "{}") {
			score -= 0.2
		}
	}
	return clamp(score)
}

// semanticScore compares what survived the translation: shared identifiers,
// numeric literals, and rough statement volume.
func semanticScore(src, dst string) float64 {
	if strings.TrimSpace(dst) == "" {
		return 0
	}
	identScore := jaccard(identifiers(src), identifiers(dst))
	litScore := preservedRatio(literals(src), literals(dst))

	srcLines := nonBlankLines(src)
	dstLines := nonBlankLines(dst)
	lineScore := 1.0
	if srcLines > 0 {
		ratio := float64(dstLines) / float64(srcLines)
		if ratio > 1 {
			ratio = 1 / ratio
		}
		lineScore = ratio
	}
	return clamp(0.5*identScore + 0.3*litScore + 0.2*lineScore)
}

// idiomaticScore asks the dialect detector whether the output reads as the
// requested target language.
func idiomaticScore(dst string, target dialect.Language) float64 {
	detected, ok := dialect.Detect(dst)
	switch {
	case ok && detected == target:
		return 0.9
	case !ok:
		// Too short or ambiguous to classify; do not punish.
		return 0.6
	default:
		return 0.25
	}
}

var loopRe = regexp.MustCompile(`\b(for|while|loop)\b`)

func performanceScore(src, dst string) float64 {
	srcLoops := len(loopRe.FindAllString(src, -1))
	dstLoops := len(loopRe.FindAllString(dst, -1))
	switch {
	case dstLoops < srcLoops:
		return 0.6
	case dstLoops > srcLoops:
		return 0.4
	default:
		return 0.5
	}
}

var dangerRe = regexp.MustCompile(`\b(gets|strcpy|strcat|sprintf|system|eval|exec)\s*\(|pickle\.loads`)

func securityScore(src, dst string) float64 {
	srcHits := len(dangerRe.FindAllString(src, -1))
	dstHits := len(dangerRe.FindAllString(dst, -1))
	switch {
	case dstHits == 0 && srcHits > 0:
		return 0.8
	case dstHits < srcHits:
		return 0.65
	case dstHits > srcHits:
		return 0.3
	default:
		return 0.5
	}
}

func maintainabilityScore(dst string) float64 {
	lines := strings.Split(dst, "\n")
	var long, comments, total int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		total++
		if len(line) > 120 {
			long++
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "/*") {
			comments++
		}
	}
	if total == 0 {
		return 0
	}
	score := 0.8 - 0.3*float64(long)/float64(total)
	if comments > 0 {
		score += 0.1
	}
	return clamp(score)
}

func balanced(code string, open, close rune) bool {
	depth := 0
	for _, r := range code {
		switch r {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]{2,}`)

// common keywords across the supported dialects; excluded from identifier
// comparison so syntax differences do not drown out real names.
var stopWords = map[string]bool{
	"func": true, "function": true, "def": true, "class": true, "struct": true,
	"return": true, "import": true, "package": true, "public": true, "private": true,
	"static": true, "void": true, "int": true, "string": true, "float": true,
	"bool": true, "var": true, "let": true, "mut": true, "const": true,
	"for": true, "while": true, "if": true, "else": true, "elif": true,
	"use": true, "impl": true, "pub": true, "new": true, "self": true,
	"this": true, "nil": true, "null": true, "None": true, "true": true,
	"false": true, "True": true, "False": true, "print": true, "println": true,
	"include": true, "main": true, "sub": true, "my": true, "end": true,
}

func identifiers(code string) map[string]bool {
	out := make(map[string]bool)
	for _, id := range identRe.FindAllString(code, -1) {
		if !stopWords[id] && !stopWords[strings.ToLower(id)] {
			out[strings.ToLower(id)] = true
		}
	}
	return out
}

var literalRe = regexp.MustCompile(`\b\d+(\.\d+)?\b`)

func literals(code string) map[string]bool {
	out := make(map[string]bool)
	for _, lit := range literalRe.FindAllString(code, -1) {
		out[lit] = true
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// preservedRatio reports the fraction of source literals still present.
func preservedRatio(src, dst map[string]bool) float64 {
	if len(src) == 0 {
		return 1
	}
	kept := 0
	for k := range src {
		if dst[k] {
			kept++
		}
	}
	return float64(kept) / float64(len(src))
}

func nonBlankLines(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
