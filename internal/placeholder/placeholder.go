// Package placeholder protects literal content (string literals, comments)
// during LLM translation by replacing it with numbered markers ([PH0],
// [PH1], …) that the model is instructed to preserve. After translation,
// Restore substitutes the markers back, so literals and comments survive
// the round trip byte for byte.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	// triple-quoted Python strings (may span lines)
	reTripleString = regexp.MustCompile(`(?s)""".*?"""|'''.*?'''`)

	// raw strings: Go backtick literals
	reRawString = regexp.MustCompile("`[^`]*`")

	// block comments: /* … */ (may span lines)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// double-quoted string literals, single line, escape-aware
	reDoubleString = regexp.MustCompile(`"(?:[^"\\\n]|\\.)*"`)

	// single-quoted string/char literals, single line, escape-aware
	reSingleString = regexp.MustCompile(`'(?:[^'\\\n]|\\.)*'`)

	// line comments: //, # (a space after # keeps preprocessor directives
	// and shebangs out), and BASIC REM
	reLineComment = regexp.MustCompile(`(?m)(//[^\n]*|#(?:[ \t][^\n]*)?|(?i:\bREM\b)[^\n]*)$`)

	// placeholder reference in translated code
	rePlaceholder = regexp.MustCompile(`\[PH(\d+)\]`)
)

// Protect replaces literal content (multi-line strings, raw strings, block
// comments, quoted strings, line comments) with numbered placeholders
// [PH0], [PH1], … in the order they appear in code. It returns the modified
// code and the slice of captured originals so Restore can put them back.
func Protect(code string) (string, []string) {
	var markers []string
	counter := 0

	replace := func(match string) string {
		id := fmt.Sprintf("[PH%d]", counter)
		markers = append(markers, match)
		counter++
		return id
	}

	// Order matters: longest spans first so nested delimiters inside them
	// are captured whole rather than split.
	code = reTripleString.ReplaceAllStringFunc(code, replace)
	code = reRawString.ReplaceAllStringFunc(code, replace)
	code = reBlockComment.ReplaceAllStringFunc(code, replace)
	code = reDoubleString.ReplaceAllStringFunc(code, replace)
	code = reSingleString.ReplaceAllStringFunc(code, replace)
	code = reLineComment.ReplaceAllStringFunc(code, replace)

	return code, markers
}

// Restore substitutes [PHn] markers in code back with the originals captured
// by Protect. Markers missing from the translated code are silently ignored;
// unrecognised indices leave the placeholder as-is.
func Restore(code string, markers []string) string {
	return rePlaceholder.ReplaceAllStringFunc(code, func(match string) string {
		sub := rePlaceholder.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		idx := 0
		fmt.Sscanf(sub[1], "%d", &idx)
		if idx < 0 || idx >= len(markers) {
			return match
		}
		return markers[idx]
	})
}

// InstructionHint returns a short sentence to append to an LLM prompt so the
// model knows to leave placeholders intact.
func InstructionHint() string {
	return "Preserve all [PHn] markers exactly as they appear; do not translate, move, or remove them."
}

// Validate checks whether all markers that were created by Protect are still
// present in the translated code. It returns the list of missing indices.
func Validate(code string, markers []string) []int {
	var missing []int
	for i := range markers {
		if !strings.Contains(code, fmt.Sprintf("[PH%d]", i)) {
			missing = append(missing, i)
		}
	}
	return missing
}
