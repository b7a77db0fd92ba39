// Package postprocess removes common LLM artifacts from generated code.
//
// It is applied to the raw text returned by any LLM-backed engine before
// the result is used downstream.
package postprocess

import (
	"regexp"
	"strings"
)

// Clean removes LLM artifacts from generated code in three phases and
// returns the trimmed result:
//  1. Thinking / reasoning block removal
//  2. Code fence extraction (models wrap code in markdown fences)
//  3. Instruction echo removal (prompt leakage)
func Clean(text string) string {
	text = removeThinkingBlocks(text)
	text = extractFencedCode(text)
	text = removeInstructionEchoes(text)
	return strings.TrimSpace(text)
}

// --- Phase 1: thinking blocks ---

// thinkingBlockRe matches complete <thinking>…</thinking> style blocks.
// Each tag variant is listed explicitly because Go's RE2 engine does not
// support backreferences.
// Flags: i = case-insensitive, s = dot matches newline.
var thinkingBlockRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>|<reflection>.*?</reflection>`,
)

// truncatedThinkingRe matches an opened thinking tag whose closing tag is
// missing (the model was cut off mid-thought).
var truncatedThinkingRe = regexp.MustCompile(
	`(?is)(?:<thinking>|<think>|<reasoning>|<reflection>).*$`,
)

func removeThinkingBlocks(text string) string {
	text = thinkingBlockRe.ReplaceAllString(text, "")
	text = truncatedThinkingRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// --- Phase 2: code fences ---

// fencedCodeRe captures the body of a ```lang … ``` block. Models usually
// emit exactly one fence around the translated code; when several are
// present the longest body wins (short ones tend to be usage examples).
var fencedCodeRe = regexp.MustCompile("(?s)```[a-zA-Z0-9+#-]*\n?(.*?)```")

func extractFencedCode(text string) string {
	matches := fencedCodeRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return text
	}
	best := ""
	for _, m := range matches {
		if len(m[1]) > len(best) {
			best = m[1]
		}
	}
	return strings.TrimSpace(best)
}

// --- Phase 3: instruction echoes ---

// echoPatterns match introductory phrases that LLMs sometimes prepend even
// when instructed not to.  Each pattern is anchored to the start of the string
// and requires a colon to reduce false positives on legitimate content.
var echoPatterns = []*regexp.Regexp{
	// "Here is / Here's [the] [translated|converted|equivalent] code:"
	regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:translated |converted |equivalent |rewritten )?(?:code|translation|version)\s*:`),
	// "[The] [translated|converted] code:"
	regexp.MustCompile(`(?i)^(?:the )?(?:translated |converted |equivalent |rewritten )?(?:code|translation)\s*:`),
	// "Certainly / Sure / Of course[,] here is [the] code:"
	regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? (?:translated |converted |equivalent |rewritten )?(?:code|translation|version)\s*:`),
}

func removeInstructionEchoes(text string) string {
	for _, re := range echoPatterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}
