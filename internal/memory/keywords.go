package memory

import (
	"regexp"
	"strings"

	_ "github.com/blevesearch/bleve/v2/analysis/analyzer/standard" // registers the "standard" analyzer
	"github.com/blevesearch/bleve/v2/registry"
)

// DefaultQueryKeywords and DefaultStoreKeywords are the max_keywords
// caps named in §4.E: 10 at query time, 5 at store time.
const (
	DefaultQueryKeywords = 10
	DefaultStoreKeywords = 5
)

// analyzerCache holds bleve's registered analyzers. "standard" chains a
// Unicode-boundary tokenizer (handles CJK and Latin scripts alike),
// a to-lower filter, and an English stopword filter — exactly the
// language-aware segmentation §4.E calls for, without hand-rolling a
// script-aware tokenizer.
var analyzerCache = registry.NewCache()

// wordBoundary is the Unicode word-boundary fallback used when the
// bleve analyzer cannot be constructed.
var wordBoundary = regexp.MustCompile(`[\p{L}\p{N}]+`)

// ExtractKeywords lowercases, tokenizes, strips stopwords and
// punctuation, dedupes preserving first-seen order, and caps the
// result at max.
func ExtractKeywords(text string, max int) []string {
	if max <= 0 {
		max = DefaultQueryKeywords
	}

	tokens := tokenize(text)

	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, max)
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) >= max {
			break
		}
	}
	return out
}

func tokenize(text string) []string {
	analyzer, err := analyzerCache.AnalyzerNamed("standard")
	if err != nil {
		return fallbackTokenize(text)
	}

	stream := analyzer.Analyze([]byte(text))
	if len(stream) == 0 {
		return fallbackTokenize(text)
	}

	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

func fallbackTokenize(text string) []string {
	return wordBoundary.FindAllString(strings.ToLower(text), -1)
}
