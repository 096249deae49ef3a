// Package model defines shared data structures.
package model

import "time"

// Config defines play settings.
type Config struct {
	LyricsPath string
	AudioPath  string
	Encoding   string
	Difficulty string
	Policy     string
	OffsetMs   int
	Volume     float64
	Rate       float64
}

// StatsConfig defines filters and options for stats output. SongID matches
// either the song id or the song name.
type StatsConfig struct {
	SongID      string
	Difficulty  string
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionRecord captures a finished song attempt.
type SessionRecord struct {
	RunID        string
	SongID       string
	SongName     string
	Difficulty   string
	Policy       string
	OffsetMs     int64
	StartedAt    time.Time
	EndedAt      time.Time
	Score        int
	MaxCombo     int
	TotalLines   int
	JudgedLines  int
	PerfectLines int
	AvgAccuracy  float64
	DurationMs   int64
}

// LineRecord stores the judgment of one lyric line.
type LineRecord struct {
	LineIndex   int
	Expected    string
	Typed       string
	Accuracy    float64
	Verdict     string
	TimingScore float64
	Score       int
	ComboAfter  int
	JudgedAtMs  int64
	TargetMs    int64
	Auto        bool
}

// ScoreRecord is the best score for a song and difficulty.
type ScoreRecord struct {
	SongID     string
	SongName   string
	Difficulty string
	Score      int
	MaxCombo   int
	RunID      string
	AchievedAt time.Time
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID    int64
	RunID        string
	SongName     string
	Difficulty   string
	EndedAt      time.Time
	Score        int
	MaxCombo     int
	TotalLines   int
	JudgedLines  int
	PerfectLines int
	AvgAccuracy  float64
}

// VerdictTotal counts judgments with one timing verdict.
type VerdictTotal struct {
	Verdict string
	Count   int
}
