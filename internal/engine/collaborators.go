package engine

import (
	"context"

	"github.com/verte-zerg/lyritype/internal/model"
)

// Transport is the audio playback clock the session follows. The engine only
// reads it, except for Play at countdown end and Pause at finish.
type Transport interface {
	CurrentTimeMs() int64
	// DurationMs returns 0 while the duration is unknown.
	DurationMs() int64
	IsPlaying() bool
	Play() error
	Pause() error
	Seek(ms int64) error
	SetRate(rate float64) error
	SetVolume(volume float64) error
}

// ScoreStore keeps the best score per song and difficulty.
type ScoreStore interface {
	IsHighScore(ctx context.Context, songID, difficulty string, score int) (bool, error)
	SaveHighScore(ctx context.Context, rec model.ScoreRecord) error
}

// SessionRecorder persists finished sessions and returns their run id.
type SessionRecorder interface {
	RecordSession(ctx context.Context, rec model.SessionRecord, lines []model.LineRecord) (string, error)
}
