package lyrics

import (
	"errors"
	"testing"
)

func TestDecodeUTF8BOM(t *testing.T) {
	out, err := Decode([]byte("\xEF\xBB\xBF[00:01.00]hi"), "")
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out != "[00:01.00]hi" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestDecodeInvalidUTF8ReportsLine(t *testing.T) {
	_, err := Decode([]byte("[00:01.00]ok\n[00:02.00]\xc3\x28"), "utf-8")
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line != 2 {
		t.Fatalf("expected line 2, got %d", perr.Line)
	}
}

func TestDecodeLegacyEncoding(t *testing.T) {
	// "caf\xe9" is "café" in windows-1252.
	tl, err := ParseBytes([]byte("[00:01.00]caf\xe9"), "windows-1252")
	if err != nil {
		t.Fatalf("ParseBytes failed: %v", err)
	}
	if tl.Line(0).Text != "café" {
		t.Fatalf("unexpected text %q", tl.Line(0).Text)
	}
}

func TestDecodeUnknownEncoding(t *testing.T) {
	_, err := Decode([]byte("x"), "klingon-8")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Fatalf("expected ErrUnknownEncoding, got %v", err)
	}
}
