// Package engine synchronizes typed input with a playing lyric timeline.
package engine

import (
	"fmt"
	"strings"

	"github.com/verte-zerg/lyritype/internal/scoring"
)

// Status is the lifecycle stage of a session.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusCountdown
	StatusPlaying
	StatusPaused
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusCountdown:
		return "countdown"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Policy governs how proposed input is turned into the judged buffer.
type Policy string

const (
	PolicyNormal Policy = "normal"
	PolicyStrict Policy = "strict"
	PolicyAssist Policy = "assist"
)

// ParsePolicy resolves a case-insensitive policy name.
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(name))); p {
	case PolicyNormal, PolicyStrict, PolicyAssist:
		return p, nil
	default:
		return "", fmt.Errorf("unknown input policy %q (want normal, strict, or assist)", name)
	}
}

const (
	MinOffsetMs = -2000
	MaxOffsetMs = 2000
)

// ClampOffset limits ms to [MinOffsetMs, MaxOffsetMs].
func ClampOffset(ms int64) int64 {
	return max(MinOffsetMs, min(MaxOffsetMs, ms))
}

// State is the mutable session state owned by a Synchronizer.
type State struct {
	Status     Status
	ActiveLine int
	Buffer     string
	Locked     bool
	Score      int
	Combo      int
	MaxCombo   int
	Judgments  []scoring.Judgment
	OffsetMs   int64
	Policy     Policy

	// Countdown is the number of steps left while in StatusCountdown.
	Countdown int
}

func newState(policy Policy, offsetMs int64) State {
	return State{
		Status:     StatusIdle,
		ActiveLine: -1,
		OffsetMs:   offsetMs,
		Policy:     policy,
	}
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	State
	SongID       string
	SongName     string
	Difficulty   scoring.Difficulty
	TotalLines   int
	NewHighScore bool
}

// LastJudgment returns the most recent judgment, if any.
func (s Snapshot) LastJudgment() (scoring.Judgment, bool) {
	if len(s.Judgments) == 0 {
		return scoring.Judgment{}, false
	}
	return s.Judgments[len(s.Judgments)-1], true
}
