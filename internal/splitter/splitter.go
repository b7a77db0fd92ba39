// Package splitter breaks a source file into top-level translation units
// (functions, classes, and the module header) so each can be translated and
// scored independently. It also extracts a sliding-window context snippet
// (last N lines) for use with LLM engines to maintain naming continuity
// across unit boundaries.
//
// Splitting is textual, not syntactic: braces inside string literals can
// skew block detection. Units that fail to balance are still emitted so no
// source is lost.
package splitter

import (
	"regexp"
	"strings"

	"github.com/valpere/perekod/internal/dialect"
	"github.com/valpere/perekod/internal/engine"
)

const (
	// DefaultContextLines is the default number of trailing lines extracted
	// by ExtractContext for use as a sliding-window context.
	DefaultContextLines = 12
)

// Split divides code into translation units appropriate for the language:
// brace-delimited blocks for C-family languages, indentation blocks for
// Python, and the whole program for line-numbered BASIC. Lines before the
// first declaration become a module-header unit. If no declarations are
// found the entire input is returned as a single module unit.
//
// Returned units carry Language, Code, Kind and Complexity; the caller
// assigns IDs and paths.
func Split(code string, lang dialect.Language) []engine.Unit {
	if strings.TrimSpace(code) == "" {
		return nil
	}

	var units []engine.Unit
	switch lang {
	case dialect.Python311, dialect.Python2:
		units = splitIndented(code, lang)
	case dialect.Basic:
		units = nil
	default:
		units = splitBraced(code, lang)
	}

	if len(units) == 0 {
		units = []engine.Unit{newUnit(code, lang, engine.KindModule)}
	}
	return units
}

var (
	bracedDeclRe = regexp.MustCompile(`^(?:(?:pub(?:\([^)]*\))?|public|private|protected|static|final|async|unsafe|extern|inline|constexpr|template\s*<[^>]*>)\s+)*` +
		`(?:func\b|fn\b|class\b|struct\b|enum\b|trait\b|impl\b|interface\b|record\b|namespace\b|type\b|typedef\b|[A-Za-z_][A-Za-z0-9_:<>,\s\*&]*?\s+[\*&]?[A-Za-z_][A-Za-z0-9_]*\s*\()`)
	classDeclRe = regexp.MustCompile(`\b(class|struct|enum|trait|impl|interface|record|namespace)\b`)
	pyDeclRe    = regexp.MustCompile(`^(async\s+)?(def|class)\s+\w+`)
)

func splitBraced(code string, lang dialect.Language) []engine.Unit {
	lines := strings.Split(code, "\n")

	var units []engine.Unit
	var pending []string
	var current []string
	inUnit := false
	opened := false
	depth := 0
	kind := engine.KindFunction
	sawDecl := false

	flush := func() {
		body := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(body) != "" {
			units = append(units, newUnit(body, lang, kind))
		}
		current = nil
		inUnit = false
		opened = false
		depth = 0
	}

	for _, line := range lines {
		if inUnit {
			current = append(current, line)
			depth += braceDelta(line)
			if strings.Contains(line, "{") {
				opened = true
			}
			if opened && depth <= 0 {
				flush()
			}
			continue
		}

		trimmed := strings.TrimSpace(line)
		if trimmed != "" && line == strings.TrimLeft(line, " \t") && bracedDeclRe.MatchString(trimmed) {
			if !sawDecl {
				// Everything above the first declaration is the module header,
				// except comments and annotations sitting directly above it.
				head, attached := splitTrailingAttachments(pending)
				if header := strings.TrimSpace(strings.Join(head, "\n")); header != "" {
					units = append(units, newUnit(header, lang, engine.KindModule))
				}
				pending = attached
				sawDecl = true
			}
			inUnit = true
			kind = engine.KindFunction
			if classDeclRe.MatchString(trimmed) {
				kind = engine.KindClass
			}
			// Leading comments and annotations travel with their declaration.
			current = trimBlankPrefix(pending)
			pending = nil
			current = append(current, line)
			depth = braceDelta(line)
			opened = strings.Contains(line, "{")
			if opened && depth <= 0 {
				flush()
			} else if !opened && (strings.HasSuffix(trimmed, ";") ||
				(!strings.Contains(trimmed, "(") && !strings.Contains(trimmed, "{"))) {
				// One-line declaration with no block to wait for.
				flush()
			}
			continue
		}

		pending = append(pending, line)
	}

	if inUnit {
		flush()
	}
	if tail := strings.TrimSpace(strings.Join(pending, "\n")); tail != "" {
		k := engine.KindSnippet
		if !sawDecl {
			k = engine.KindModule
		}
		units = append(units, newUnit(tail, lang, k))
	}

	return units
}

func splitIndented(code string, lang dialect.Language) []engine.Unit {
	lines := strings.Split(code, "\n")

	var units []engine.Unit
	var pending []string
	var current []string
	inUnit := false
	kind := engine.KindFunction
	sawDecl := false

	flush := func() {
		body := strings.TrimRight(strings.Join(current, "\n"), "\n")
		if strings.TrimSpace(body) != "" {
			units = append(units, newUnit(body, lang, kind))
		}
		current = nil
		inUnit = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		indented := line != strings.TrimLeft(line, " \t")

		if inUnit {
			if trimmed == "" || indented {
				current = append(current, line)
				continue
			}
			flush()
		}

		if !indented && pyDeclRe.MatchString(trimmed) {
			if !sawDecl {
				head, attached := splitTrailingAttachments(pending)
				if header := strings.TrimSpace(strings.Join(head, "\n")); header != "" {
					units = append(units, newUnit(header, lang, engine.KindModule))
				}
				pending = attached
				sawDecl = true
			}
			inUnit = true
			kind = engine.KindFunction
			if strings.HasPrefix(trimmed, "class") {
				kind = engine.KindClass
			}
			current = trimBlankPrefix(pending)
			pending = nil
			current = append(current, line)
			continue
		}

		pending = append(pending, line)
	}

	if inUnit {
		flush()
	}
	if tail := strings.TrimSpace(strings.Join(pending, "\n")); tail != "" {
		k := engine.KindSnippet
		if !sawDecl {
			k = engine.KindModule
		}
		units = append(units, newUnit(tail, lang, k))
	}

	return units
}

func newUnit(code string, lang dialect.Language, kind engine.Kind) engine.Unit {
	return engine.Unit{
		Language:   lang,
		Code:       code,
		Kind:       kind,
		Complexity: EstimateComplexity(code),
	}
}

// splitTrailingAttachments separates the comment, decorator and attribute
// lines sitting directly above a declaration from the header lines above
// them. A blank line ends the attached run.
func splitTrailingAttachments(lines []string) (head, attached []string) {
	cut := len(lines)
	for cut > 0 && isAttachment(strings.TrimSpace(lines[cut-1])) {
		cut--
	}
	return lines[:cut], lines[cut:]
}

func isAttachment(trimmed string) bool {
	switch {
	case trimmed == "":
		return false
	case strings.HasPrefix(trimmed, "@"),
		strings.HasPrefix(trimmed, "//"),
		strings.HasPrefix(trimmed, "/*"),
		strings.HasPrefix(trimmed, "*"),
		strings.HasPrefix(trimmed, "# "),
		strings.HasPrefix(trimmed, "#\t"),
		strings.HasPrefix(trimmed, "#["):
		return true
	}
	return false
}

// trimBlankPrefix drops leading blank lines but keeps comment and decorator
// lines so they stay attached to the declaration that follows them.
func trimBlankPrefix(lines []string) []string {
	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	out := make([]string, len(lines)-start)
	copy(out, lines[start:])
	return out
}

func braceDelta(line string) int {
	delta := 0
	for _, r := range line {
		switch r {
		case '{':
			delta++
		case '}':
			delta--
		}
	}
	return delta
}

var branchRe = regexp.MustCompile(`\b(if|elif|else|for|while|switch|case|match|catch|except|loop)\b`)

// EstimateComplexity grades code on a 1–10 scale from its size and branch
// density. The score feeds engine capability checks and time estimates.
func EstimateComplexity(code string) int {
	lines := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	branches := len(branchRe.FindAllString(code, -1))

	score := 1 + lines/12 + branches/4
	if score > 10 {
		score = 10
	}
	return score
}

// ExtractContext returns the last lineCount non-blank lines of code, joined
// by newlines. It is intended as a sliding-window context snippet passed to
// LLM engines so they keep naming and style consistent across units.
// If code has fewer lines than lineCount, the entire code is returned.
// If lineCount ≤ 0, DefaultContextLines is used.
func ExtractContext(code string, lineCount int) string {
	if lineCount <= 0 {
		lineCount = DefaultContextLines
	}
	var kept []string
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) <= lineCount {
		return strings.TrimSpace(strings.Join(kept, "\n"))
	}
	return strings.Join(kept[len(kept)-lineCount:], "\n")
}
