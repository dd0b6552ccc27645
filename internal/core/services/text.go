package services

import (
	"strings"
	"unicode"
)

// stopwords are dropped from query words before extractive matching.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "are": true, "was": true, "were": true,
	"what": true, "which": true, "who": true, "whom": true, "how": true, "why": true,
	"when": true, "where": true, "does": true, "did": true, "has": true, "have": true,
	"had": true, "this": true, "that": true, "these": true, "those": true, "with": true,
	"from": true, "into": true, "about": true, "there": true, "their": true, "they": true,
	"you": true, "your": true, "can": true, "could": true, "would": true, "should": true,
	"will": true, "not": true, "but": true, "all": true, "any": true, "its": true,
	"is": true, "of": true, "to": true, "in": true, "on": true, "a": true, "an": true,
}

// tokenize splits text into lowercase runs of letters and digits.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// queryWords returns the distinct significant words of a query: tokens of
// at least three characters that are not stopwords. When nothing survives
// the filter, every distinct token is used instead.
func queryWords(query string) map[string]bool {
	tokens := tokenize(query)
	words := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if len([]rune(tok)) >= 3 && !stopwords[tok] {
			words[tok] = true
		}
	}
	if len(words) == 0 {
		for _, tok := range tokens {
			words[tok] = true
		}
	}
	return words
}

// countMatches counts token occurrences of words in text.
func countMatches(text string, words map[string]bool) int {
	n := 0
	for _, tok := range tokenize(text) {
		if words[tok] {
			n++
		}
	}
	return n
}

// sentences splits text after sentence-ending punctuation followed by
// whitespace, and at line breaks. Empty sentences are dropped.
func sentences(text string) []string {
	var out []string
	add := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			add(text[start:i])
			start = i + 1
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\t' || text[i+1] == '\n' || text[i+1] == '\r' {
				add(text[start : i+1])
				start = i + 1
			}
		}
	}
	add(text[start:])
	return out
}

// firstMatchingSentence returns the first sentence containing a query word,
// or the first sentence when none matches.
func firstMatchingSentence(text string, words map[string]bool) string {
	all := sentences(text)
	if len(all) == 0 {
		return ""
	}
	for _, s := range all {
		if countMatches(s, words) > 0 {
			return s
		}
	}
	return all[0]
}
