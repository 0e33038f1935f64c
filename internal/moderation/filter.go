package moderation

import (
	"strings"
	"sync"
)

// defaultWords is the built-in blocklist. Matching is case-insensitive,
// token-based so "class" never trips on "ass", and tolerant of common
// digit substitutions like "sh1t".
var defaultWords = []string{
	"ass", "asshole", "bastard", "bitch", "bollocks", "bullshit",
	"cock", "crap", "cunt", "damn", "dick", "douche", "fag", "faggot",
	"fuck", "fucker", "fucking", "motherfucker", "nigga", "nigger",
	"piss", "prick", "pussy", "retard", "shit", "shitty", "slut",
	"twat", "wanker", "whore",
}

// Filter screens user-submitted text against a word blocklist
type Filter struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

// NewFilter creates a filter seeded with the default blocklist
func NewFilter() *Filter {
	return NewFilterWithWords(defaultWords)
}

// NewFilterWithWords creates a filter with a custom blocklist
func NewFilterWithWords(words []string) *Filter {
	f := &Filter{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		f.words[strings.ToLower(w)] = struct{}{}
	}
	return f
}

// AddWords extends the blocklist at runtime
func (f *Filter) AddWords(words ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range words {
		f.words[strings.ToLower(w)] = struct{}{}
	}
}

// Check returns the blocked words found in text, in order of first
// appearance. An empty result means the text is clean.
func (f *Filter) Check(text string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var found []string
	seen := make(map[string]struct{})
	for _, token := range tokenize(text) {
		word, blocked := f.lookup(token)
		if !blocked {
			continue
		}
		if _, dup := seen[word]; !dup {
			seen[word] = struct{}{}
			found = append(found, word)
		}
	}
	return found
}

// lookup matches a lowercased token against the blocklist, retrying with
// leetspeak digits mapped back to letters. It returns the blocklist entry
// that matched.
func (f *Filter) lookup(token string) (string, bool) {
	if _, ok := f.words[token]; ok {
		return token, true
	}
	normalized := deleet(token)
	if normalized != token {
		if _, ok := f.words[normalized]; ok {
			return normalized, true
		}
	}
	return "", false
}

var leetRunes = map[rune]rune{
	'0': 'o',
	'1': 'i',
	'3': 'e',
	'4': 'a',
	'5': 's',
	'7': 't',
	'8': 'b',
}

func deleet(token string) string {
	return strings.Map(func(r rune) rune {
		if mapped, ok := leetRunes[r]; ok {
			return mapped
		}
		return r
	}, token)
}

// IsClean reports whether text contains no blocked words
func (f *Filter) IsClean(text string) bool {
	return len(f.Check(text)) == 0
}

// Mask replaces each blocked word in text with asterisks of the same
// length, preserving everything else including punctuation and case.
func (f *Filter) Mask(text string) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var b strings.Builder
	b.Grow(len(text))

	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		if _, blocked := f.lookup(strings.ToLower(word)); blocked {
			b.WriteString(strings.Repeat("*", len(word)))
		} else {
			b.WriteString(word)
		}
		start = -1
	}

	for i, r := range text {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(text))

	return b.String()
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
}

func isWordRune(r rune) bool {
	return r == '\'' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
