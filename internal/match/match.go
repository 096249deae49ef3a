// Package match compares typed text against expected lyric text.
package match

import (
	"strings"
	"unicode"
)

// PunctSet lists the characters removed by Normalize.
const PunctSet = ".,!?;:'\"()[]{}-–—…"

// IsPunct reports whether r belongs to PunctSet.
func IsPunct(r rune) bool {
	return strings.ContainsRune(PunctSet, r)
}

// Normalize lowercases text and strips PunctSet characters.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if IsPunct(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Equal reports whether typed and expected are identical after normalization.
func Equal(typed, expected string) bool {
	return Normalize(typed) == Normalize(expected)
}

// Accuracy returns a similarity score in [0,1] based on edit distance of the
// normalized strings.
func Accuracy(typed, expected string) float64 {
	if expected == "" {
		if typed == "" {
			return 1
		}
		return 0
	}
	if typed == "" {
		return 0
	}
	typedNorm := []rune(Normalize(typed))
	expectedNorm := []rune(Normalize(expected))
	if string(typedNorm) == string(expectedNorm) {
		return 1
	}
	longest := len(typedNorm)
	if len(expectedNorm) > longest {
		longest = len(expectedNorm)
	}
	acc := 1 - float64(levenshtein(typedNorm, expectedNorm))/float64(longest)
	if acc < 0 {
		return 0
	}
	return acc
}

// Levenshtein returns the unit-cost edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	return levenshtein([]rune(a), []rune(b))
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
