package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/faiface/beep/wav"
)

// ErrUnsupportedFormat is returned for audio files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// ProbeDuration decodes the header of an mp3, ogg, or wav file and returns
// its length in milliseconds.
func ProbeDuration(path string) (int64, error) {
	decode, err := decoderFor(path)
	if err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	streamer, format, err := decode(f)
	if err != nil {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close; decode error is more relevant.
			_ = cerr
		}
		return 0, fmt.Errorf("failed to decode audio: %w", err)
	}
	defer func() {
		if cerr := streamer.Close(); cerr != nil {
			// Best-effort close; duration is already known.
			_ = cerr
		}
	}()
	if format.SampleRate <= 0 {
		return 0, fmt.Errorf("failed to decode audio: invalid sample rate %d", format.SampleRate)
	}
	return format.SampleRate.D(streamer.Len()).Milliseconds(), nil
}

type decodeFunc func(f *os.File) (beep.StreamSeekCloser, beep.Format, error)

func decoderFor(path string) (decodeFunc, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }, nil
	case ".ogg", ".oga":
		return func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) }, nil
	case ".wav":
		return func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
