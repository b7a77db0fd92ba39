// Package dialect defines the programming languages the platform translates
// between and detects the source dialect of raw code when the caller does
// not name one.
package dialect

import (
	"fmt"
	"regexp"
	"strings"
)

// Language identifies a programming-language dialect by its grammar name.
type Language string

const (
	C17       Language = "c17"
	Cpp20     Language = "cpp20"
	Java17    Language = "java17"
	Go119     Language = "go119"
	Python311 Language = "python311"
	Rust2021  Language = "rust2021"

	// Legacy source dialects accepted as translation input.
	Python2 Language = "python2"
	Perl5   Language = "perl5"
	Basic   Language = "basic"

	Unknown Language = ""
)

var aliases = map[string]Language{
	"c":         C17,
	"c17":       C17,
	"cpp":       Cpp20,
	"c++":       Cpp20,
	"c++20":     Cpp20,
	"cpp20":     Cpp20,
	"java":      Java17,
	"java17":    Java17,
	"go":        Go119,
	"golang":    Go119,
	"go119":     Go119,
	"python":    Python311,
	"python3":   Python311,
	"py":        Python311,
	"py3":       Python311,
	"python311": Python311,
	"rust":      Rust2021,
	"rs":        Rust2021,
	"rust2021":  Rust2021,
	"python2":   Python2,
	"py2":       Python2,
	"perl":      Perl5,
	"perl5":     Perl5,
	"pl":        Perl5,
	"basic":     Basic,
}

// Normalize maps a user-supplied language name or alias onto its canonical
// Language. It is case-insensitive and tolerates surrounding whitespace.
func Normalize(s string) (Language, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return Unknown, fmt.Errorf("empty language name")
	}
	if lang, ok := aliases[key]; ok {
		return lang, nil
	}
	return Unknown, fmt.Errorf("unknown language %q", s)
}

// KnownLanguages lists every dialect the platform understands, modern
// targets first.
func KnownLanguages() []Language {
	return []Language{C17, Cpp20, Java17, Go119, Python311, Rust2021, Python2, Perl5, Basic}
}

// IsLegacy reports whether lang is a legacy input-only dialect.
func IsLegacy(lang Language) bool {
	switch lang {
	case Python2, Perl5, Basic:
		return true
	}
	return false
}

// String returns the canonical grammar name.
func (l Language) String() string { return string(l) }

type signal struct {
	re     *regexp.Regexp
	weight int
}

// Detection signals are shape heuristics, not parsers. Each match adds its
// weight to the language's score; the best score wins if it clears the
// floor. Ordering within a language is irrelevant.
var signals = map[Language][]signal{
	Go119: {
		{regexp.MustCompile(`(?m)^package\s+\w+`), 4},
		{regexp.MustCompile(`(?m)^func\s+\w+\(`), 3},
		{regexp.MustCompile(`:=`), 2},
		{regexp.MustCompile(`(?m)^import\s+\(`), 2},
		{regexp.MustCompile(`\bgo\s+func\b`), 2},
	},
	Rust2021: {
		{regexp.MustCompile(`(?m)^\s*(pub\s+)?fn\s+\w+`), 4},
		{regexp.MustCompile(`\blet\s+mut\b`), 3},
		{regexp.MustCompile(`\bimpl\s+\w+`), 3},
		{regexp.MustCompile(`\buse\s+\w+(::\w+)+`), 2},
		{regexp.MustCompile(`&str|&mut\s`), 2},
		{regexp.MustCompile(`\bmatch\s+\w+\s*\{`), 1},
	},
	Java17: {
		{regexp.MustCompile(`(?m)^\s*(public|private|protected)\s+(final\s+)?class\s+\w+`), 4},
		{regexp.MustCompile(`(?m)^import\s+java\.`), 4},
		{regexp.MustCompile(`System\.out\.print`), 3},
		{regexp.MustCompile(`public\s+static\s+void\s+main`), 3},
		{regexp.MustCompile(`@Override\b`), 2},
	},
	Cpp20: {
		{regexp.MustCompile(`(?m)^#include\s*<\w+>`), 2},
		{regexp.MustCompile(`\bstd::`), 4},
		{regexp.MustCompile(`\btemplate\s*<`), 3},
		{regexp.MustCompile(`(?m)^\s*namespace\s+\w+`), 2},
		{regexp.MustCompile(`\bcout\s*<<`), 2},
		{regexp.MustCompile(`\bconstexpr\b|\bco_await\b|\bconcept\b`), 2},
	},
	C17: {
		{regexp.MustCompile(`(?m)^#include\s*<\w+\.h>`), 4},
		{regexp.MustCompile(`\bprintf\s*\(`), 2},
		{regexp.MustCompile(`\bmalloc\s*\(|\bfree\s*\(`), 2},
		{regexp.MustCompile(`\bint\s+main\s*\(`), 2},
		{regexp.MustCompile(`\bstruct\s+\w+\s*\{`), 1},
		{regexp.MustCompile(`\btypedef\b`), 1},
	},
	Python311: {
		{regexp.MustCompile(`(?m)^def\s+\w+\(.*\)\s*(->.*)?:`), 4},
		{regexp.MustCompile(`(?m)^\s*(from\s+\w+\s+)?import\s+\w+`), 2},
		{regexp.MustCompile(`\bself\b`), 2},
		{regexp.MustCompile(`(?m)^class\s+\w+.*:`), 2},
		{regexp.MustCompile(`\bprint\s*\(`), 1},
		{regexp.MustCompile(`(?m)^\s*if\s+__name__\s*==`), 2},
	},
	Python2: {
		{regexp.MustCompile(`(?m)^\s*print\s+["'\w]`), 5},
		{regexp.MustCompile(`\.has_key\s*\(`), 4},
		{regexp.MustCompile(`\bxrange\s*\(`), 4},
		{regexp.MustCompile(`\braw_input\s*\(`), 4},
		{regexp.MustCompile(`\bunicode\s*\(`), 2},
		{regexp.MustCompile(`(?m)^def\s+\w+\(.*\):`), 1},
	},
	Perl5: {
		{regexp.MustCompile(`\bmy\s+[$@%]\w+`), 4},
		{regexp.MustCompile(`(?m)^use\s+(strict|warnings)\b`), 4},
		{regexp.MustCompile(`(?m)^sub\s+\w+\s*\{`), 3},
		{regexp.MustCompile(`->\{|\bshift\b`), 2},
		{regexp.MustCompile(`[$@%]\w+\s*=~`), 3},
	},
	Basic: {
		{regexp.MustCompile(`(?mi)^\s*\d+\s+(PRINT|GOTO|GOSUB|INPUT|LET|REM|IF|FOR|NEXT|END)\b`), 5},
		{regexp.MustCompile(`(?i)\bGOSUB\b`), 3},
		{regexp.MustCompile(`(?i)\bDIM\s+\w+\(`), 2},
		{regexp.MustCompile(`(?mi)^\s*\d+\s+REM\b`), 2},
	},
}

// detectFloor is the minimum score required before Detect commits to an
// answer. Below it the code is too ambiguous to classify.
const detectFloor = 3

// Detect guesses the dialect of code from surface shape. The second return
// value is false when no language scores above the floor.
func Detect(code string) (Language, bool) {
	if strings.TrimSpace(code) == "" {
		return Unknown, false
	}

	if lang, ok := detectShebang(code); ok {
		return lang, true
	}

	best := Unknown
	bestScore := 0
	for _, lang := range KnownLanguages() {
		score := 0
		for _, sig := range signals[lang] {
			if sig.re.MatchString(code) {
				score += sig.weight
			}
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}

	if bestScore < detectFloor {
		return Unknown, false
	}
	return best, true
}

var shebangRe = regexp.MustCompile(`^#!\s*(\S+)`)

func detectShebang(code string) (Language, bool) {
	m := shebangRe.FindStringSubmatch(code)
	if m == nil {
		return Unknown, false
	}
	interp := m[1]
	switch {
	case strings.Contains(interp, "perl"):
		return Perl5, true
	case strings.Contains(interp, "python2"):
		return Python2, true
	case strings.Contains(interp, "python"):
		// Bare "python" shebangs predate python3-only systems; let the
		// print-statement signal decide.
		if regexp.MustCompile(`(?m)^\s*print\s+["'\w]`).MatchString(code) {
			return Python2, true
		}
		return Python311, true
	}
	return Unknown, false
}
