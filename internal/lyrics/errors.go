package lyrics

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEncoding is returned when lyric bytes are not valid text in the declared encoding.
	ErrInvalidEncoding = errors.New("invalid text encoding")

	// ErrUnknownEncoding is returned for encoding names that cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
)

// ParseError reports timed text that cannot be split into lines.
type ParseError struct {
	Op   string // decode, read
	Line int    // 1-based line number, 0 when not line specific
	Err  error
}

// Error returns the error message.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("lyrics %s: line %d: %v", e.Op, e.Line, e.Err)
	}
	return fmt.Sprintf("lyrics %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
