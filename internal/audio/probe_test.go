package audio

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeWAV(t *testing.T, path string, sampleRate, frames int) {
	t.Helper()
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := channels * bitsPerSample / 8
	dataSize := frames * blockAlign

	buf := make([]byte, 0, 44+dataSize)
	le := binary.LittleEndian
	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, uint32(36+dataSize))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, 1)
	buf = le.AppendUint16(buf, channels)
	buf = le.AppendUint32(buf, uint32(sampleRate))
	buf = le.AppendUint32(buf, uint32(sampleRate*blockAlign))
	buf = le.AppendUint16(buf, uint16(blockAlign))
	buf = le.AppendUint16(buf, bitsPerSample)
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, uint32(dataSize))
	buf = append(buf, make([]byte, dataSize)...)

	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestProbeDurationWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, 8000, 12000)

	got, err := ProbeDuration(path)
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if got != 1500 {
		t.Fatalf("expected 1500ms, got %d", got)
	}
}

func TestProbeDurationUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.flac")
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ProbeDuration(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProbeDurationMissingFile(t *testing.T) {
	if _, err := ProbeDuration(filepath.Join(t.TempDir(), "missing.mp3")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestProbeDurationCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("not a wav file at all"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ProbeDuration(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
