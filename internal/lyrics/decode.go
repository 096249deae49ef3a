package lyrics

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw lyric file bytes into a string. An empty name or any
// UTF-8 alias requires valid UTF-8 (a leading BOM is dropped); other names are
// resolved through the WHATWG encoding index, e.g. "shift_jis" or "windows-1252".
func Decode(raw []byte, name string) (string, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" || name == "utf-8" || name == "utf8" {
		raw = bytes.TrimPrefix(raw, utf8BOM)
		if !utf8.Valid(raw) {
			return "", &ParseError{Op: "decode", Line: invalidLine(raw), Err: ErrInvalidEncoding}
		}
		return string(raw), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", &ParseError{Op: "decode", Err: fmt.Errorf("%w %q", ErrUnknownEncoding, name)}
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", &ParseError{Op: "decode", Err: fmt.Errorf("%w: %v", ErrInvalidEncoding, err)}
	}
	return strings.TrimPrefix(string(out), "\ufeff"), nil
}

func invalidLine(raw []byte) int {
	line := 1
	for len(raw) > 0 {
		r, size := utf8.DecodeRune(raw)
		if r == utf8.RuneError && size <= 1 {
			return line
		}
		if r == '\n' {
			line++
		}
		raw = raw[size:]
	}
	return 0
}
