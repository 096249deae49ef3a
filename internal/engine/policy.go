package engine

import (
	"unicode/utf8"

	"github.com/verte-zerg/lyritype/internal/match"
)

// applyPolicy returns the buffer that results from proposing proposed while
// current is held.
func applyPolicy(p Policy, current, proposed, expected string) string {
	switch p {
	case PolicyStrict:
		if utf8.RuneCountInString(proposed) < utf8.RuneCountInString(current) {
			return current
		}
		return proposed
	case PolicyAssist:
		return match.Align(proposed, expected)
	default:
		return proposed
	}
}
