// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"regexp"
	"strings"
)

// Fact token patterns. A "fact" is anything the corrector must not
// invent: prices and quantities, contact addresses, links.
var (
	numberPattern = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlPattern    = regexp.MustCompile(`(?i)\b(?:https?://|www\.)[^\s<>"']+`)
)

// NewFacts returns the fact tokens present in replace but absent from
// find, in order of appearance, deduplicated. A non-empty result fails
// the no-new-facts gate.
func NewFacts(find, replace string) []string {
	have := make(map[string]bool)
	for _, tok := range factTokens(find) {
		have[tok] = true
	}

	var added []string
	seen := make(map[string]bool)
	for _, tok := range factTokens(replace) {
		if have[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		added = append(added, tok)
	}
	return added
}

// factTokens extracts comparable fact tokens from text: email addresses
// and URLs first, then standalone numbers from the remainder so digits
// inside a link or address do not double-count.
func factTokens(text string) []string {
	var tokens []string
	rest := text
	for _, re := range []*regexp.Regexp{emailPattern, urlPattern} {
		for _, m := range re.FindAllString(rest, -1) {
			tokens = append(tokens, strings.ToLower(m))
		}
		rest = re.ReplaceAllString(rest, " ")
	}
	for _, m := range numberPattern.FindAllString(rest, -1) {
		tokens = append(tokens, m)
	}
	return tokens
}
