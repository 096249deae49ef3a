package match

// Align re-aligns typed against expected so that punctuation the learner
// skipped is filled in from the expected text. A punctuation rune in expected
// that the next typed rune does not match is injected without consuming input.
// Once typed is exhausted, punctuation that ends the expected line is appended.
func Align(typed, expected string) string {
	if typed == "" {
		return ""
	}
	t := []rune(typed)
	e := []rune(expected)
	out := make([]rune, 0, len(t)+4)

	ti, ei := 0, 0
	for ti < len(t) {
		if ei < len(e) && IsPunct(e[ei]) && t[ti] != e[ei] {
			out = append(out, e[ei])
			ei++
			continue
		}
		out = append(out, t[ti])
		ti++
		ei++
	}
	if ei < len(e) && onlyPunct(e[ei:]) {
		out = append(out, e[ei:]...)
	}
	return string(out)
}

func onlyPunct(runes []rune) bool {
	for _, r := range runes {
		if !IsPunct(r) {
			return false
		}
	}
	return true
}
