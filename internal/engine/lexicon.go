package engine

import (
	"fmt"
	"regexp"
	"sort"
)

// ApplyLexicon renames whole-word identifiers per the request lexicon, in
// deterministic key order so repeated runs produce identical output.
func ApplyLexicon(code string, lexicon map[string]string) string {
	if len(lexicon) == 0 {
		return code
	}
	keys := make([]string, 0, len(lexicon))
	for k := range lexicon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, src := range keys {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(src) + `\b`)
		if err != nil {
			continue
		}
		code = re.ReplaceAllString(code, lexicon[src])
	}
	return code
}

// LexiconLines renders a lexicon as "source -> target" lines in key order,
// for embedding in prompts and reports.
func LexiconLines(lexicon map[string]string) []string {
	keys := make([]string, 0, len(lexicon))
	for k := range lexicon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s -> %s", k, lexicon[k]))
	}
	return lines
}
