package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/match"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/scoring"
	"github.com/verte-zerg/lyritype/internal/stats"
)

const (
	defaultCountdownSteps = 3
	defaultCountdownStep  = time.Second
	persistTimeout        = 2 * time.Second
)

// ErrNotReady is returned by Start when lyrics or audio are missing.
var ErrNotReady = errors.New("session not ready")

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Options configures a Synchronizer.
type Options struct {
	Difficulty scoring.Difficulty
	Policy     Policy
	OffsetMs   int64

	Store    ScoreStore
	Recorder SessionRecorder

	CountdownSteps int
	CountdownStep  time.Duration
	// Schedule runs f after d. Defaults to time.AfterFunc.
	Schedule       func(d time.Duration, f func()) Timer
	Now            func() time.Time
}

// Song is the lyric content of one session.
type Song struct {
	ID       string
	Name     string
	Timeline *lyrics.Timeline
}

// Synchronizer owns the session state and serializes every event applied to it.
type Synchronizer struct {
	mu   sync.Mutex
	opts Options

	difficulty scoring.Difficulty
	profile    scoring.Profile

	song          Song
	transport     Transport
	durationKnown bool

	state        State
	judged       map[int]bool
	notices      []Notice
	newHighScore bool
	startedAt    time.Time

	timer      Timer
	generation uint64
}

// New constructs an idle Synchronizer.
func New(opts Options) *Synchronizer {
	if opts.Difficulty == "" {
		opts.Difficulty = scoring.Medium
	}
	if opts.Policy == "" {
		opts.Policy = PolicyNormal
	}
	if opts.CountdownSteps <= 0 {
		opts.CountdownSteps = defaultCountdownSteps
	}
	if opts.CountdownStep <= 0 {
		opts.CountdownStep = defaultCountdownStep
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	profile := scoring.ProfileFor(opts.Difficulty)
	return &Synchronizer{
		opts:       opts,
		difficulty: profile.Name,
		profile:    profile,
		state:      newState(opts.Policy, ClampOffset(opts.OffsetMs)),
		judged:     map[int]bool{},
	}
}

// Load selects a song and moves to loading with a fresh state. Any pending
// countdown is cancelled.
func (s *Synchronizer) Load(song Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCountdownLocked()
	s.song = song
	s.resetLocked()
	s.state.Status = StatusLoading
}

// AttachAudio sets the transport the session follows.
func (s *Synchronizer) AttachAudio(t Transport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport = t
	s.durationKnown = t != nil && t.DurationMs() > 0
}

// AudioLoaded records that the transport knows its duration.
func (s *Synchronizer) AudioLoaded(durationMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if durationMs > 0 {
		s.durationKnown = true
	}
}

// AudioFailed reports a transport failure. The session keeps its status.
func (s *Synchronizer) AudioFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noticeLocked(NoticeError, -1, fmt.Sprintf("audio unavailable: %v", err))
}

// AudioEnded finishes a playing session as if the clock reached the end of
// the last line.
func (s *Synchronizer) AudioEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusPlaying || !s.timelineValid() {
		return
	}
	now := max(s.transport.CurrentTimeMs(), s.song.Timeline.EndMs())
	s.tickLocked(now, true)
}

// Start begins the countdown. Lyrics with at least one line and a transport
// must be present and the session must be loading.
func (s *Synchronizer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusLoading {
		return fmt.Errorf("%w: status is %s", ErrNotReady, s.state.Status)
	}
	if !s.timelineValid() {
		return fmt.Errorf("%w: no lyric lines", ErrNotReady)
	}
	if s.transport == nil {
		return fmt.Errorf("%w: no audio", ErrNotReady)
	}
	s.state.Status = StatusCountdown
	s.state.Countdown = s.opts.CountdownSteps
	s.noticeLocked(NoticeCountdown, -1, fmt.Sprintf("%d", s.state.Countdown))
	s.scheduleCountdownLocked()
	return nil
}

func (s *Synchronizer) scheduleCountdownLocked() {
	gen := s.generation
	s.timer = s.opts.Schedule(s.opts.CountdownStep, func() {
		s.countdownStep(gen)
	})
}

func (s *Synchronizer) countdownStep(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.state.Status != StatusCountdown {
		return
	}
	s.state.Countdown--
	if s.state.Countdown > 0 {
		s.noticeLocked(NoticeCountdown, -1, fmt.Sprintf("%d", s.state.Countdown))
		s.scheduleCountdownLocked()
		return
	}
	s.timer = nil
	s.state.Status = StatusPlaying
	s.startedAt = s.opts.Now()
	s.noticeLocked(NoticeStarted, -1, "go")
	if err := s.transport.Play(); err != nil {
		s.noticeLocked(NoticeError, -1, fmt.Sprintf("failed to start playback: %v", err))
	}
}

func (s *Synchronizer) cancelCountdownLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
}

// OnTick advances the session to the transport's current time.
func (s *Synchronizer) OnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusPlaying || !s.timelineValid() {
		return
	}
	s.tickLocked(s.transport.CurrentTimeMs(), false)
}

func (s *Synchronizer) tickLocked(audioMs int64, ended bool) {
	tl := s.song.Timeline
	adjusted := audioMs + s.state.OffsetMs
	newIndex := tl.LineAt(adjusted)
	if newIndex != s.state.ActiveLine && newIndex >= 0 {
		previous := s.state.ActiveLine
		if previous >= 0 && previous < tl.Len() && !s.judged[previous] {
			s.judgeLocked(previous, audioMs, true)
		}
		s.state.ActiveLine = newIndex
		s.state.Buffer = ""
		s.state.Locked = false
	}

	if !ended && !s.durationKnown && s.transport.DurationMs() <= 0 {
		return
	}
	last := tl.Len() - 1
	if audioMs < tl.Line(last).EndMs {
		return
	}
	if s.state.ActiveLine == last && !s.judged[last] {
		s.judgeLocked(last, audioMs, true)
	}
	s.finishLocked()
}

// OnKeystroke applies a proposed buffer through the input policy and judges
// the active line early when it matches the expected text.
func (s *Synchronizer) OnKeystroke(proposed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusPlaying || s.state.Locked || !s.activeValid() {
		return
	}
	expected := s.song.Timeline.Line(s.state.ActiveLine).Text
	s.state.Buffer = applyPolicy(s.state.Policy, s.state.Buffer, proposed, expected)

	norm := match.Normalize(s.state.Buffer)
	if norm != "" && norm == match.Normalize(expected) {
		s.state.Locked = true
		s.judgeLocked(s.state.ActiveLine, s.transport.CurrentTimeMs(), false)
	}
}

// Submit judges the active line on demand. It is a no-op once judged.
func (s *Synchronizer) Submit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusPlaying || !s.activeValid() || s.judged[s.state.ActiveLine] {
		return
	}
	s.state.Locked = true
	s.judgeLocked(s.state.ActiveLine, s.transport.CurrentTimeMs(), false)
}

// ClearInput empties the buffer of an unlocked line.
func (s *Synchronizer) ClearInput() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status != StatusPlaying || s.state.Locked {
		return
	}
	s.state.Buffer = ""
}

// Pause freezes tick and keystroke processing.
func (s *Synchronizer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusPlaying {
		s.state.Status = StatusPaused
	}
}

// Resume continues a paused session.
func (s *Synchronizer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Status == StatusPaused {
		s.state.Status = StatusPlaying
	}
}

// TogglePause switches between playing and paused and returns the new status.
func (s *Synchronizer) TogglePause() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state.Status {
	case StatusPlaying:
		s.state.Status = StatusPaused
	case StatusPaused:
		s.state.Status = StatusPlaying
	}
	return s.state.Status
}

// SetOffset changes the lookup offset, clamped to the allowed range.
func (s *Synchronizer) SetOffset(ms int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.OffsetMs = ClampOffset(ms)
	return s.state.OffsetMs
}

// SetPolicy changes the input policy for subsequent keystrokes.
func (s *Synchronizer) SetPolicy(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Policy = p
}

// Replay starts a fresh attempt of the same song in loading.
func (s *Synchronizer) Replay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCountdownLocked()
	s.resetLocked()
	if s.song.Timeline != nil {
		s.state.Status = StatusLoading
	}
}

// Abort cancels any countdown and returns to idle without a song.
func (s *Synchronizer) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCountdownLocked()
	s.song = Song{}
	s.resetLocked()
}

// Close cancels any scheduled countdown step.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelCountdownLocked()
}

// Snapshot returns a copy of the current session.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Judgments = append([]scoring.Judgment(nil), s.state.Judgments...)
	return Snapshot{
		State:        st,
		SongID:       s.song.ID,
		SongName:     s.song.Name,
		Difficulty:   s.difficulty,
		TotalLines:   s.song.Timeline.Len(),
		NewHighScore: s.newHighScore,
	}
}

// Notices drains the pending notices.
func (s *Synchronizer) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

func (s *Synchronizer) resetLocked() {
	s.state = newState(s.state.Policy, s.state.OffsetMs)
	s.judged = map[int]bool{}
	s.newHighScore = false
	s.startedAt = time.Time{}
}

func (s *Synchronizer) timelineValid() bool {
	return s.song.Timeline.Len() > 0
}

func (s *Synchronizer) activeValid() bool {
	return s.state.ActiveLine >= 0 && s.state.ActiveLine < s.song.Timeline.Len()
}

func (s *Synchronizer) judgeLocked(index int, judgedAtMs int64, auto bool) {
	if index < 0 || index >= s.song.Timeline.Len() || s.judged[index] {
		return
	}
	line := s.song.Timeline.Line(index)
	j := scoring.ScoreLine(s.state.Buffer, line.Text, judgedAtMs, line.StartMs, s.state.Combo, s.profile)
	j.LineIndex = index
	j.Auto = auto

	s.judged[index] = true
	s.state.Judgments = append(s.state.Judgments, j)
	s.state.Score += j.Score
	s.state.Combo = j.ComboAfter
	if s.state.Combo > s.state.MaxCombo {
		s.state.MaxCombo = s.state.Combo
	}

	kind := NoticeJudged
	if auto {
		kind = NoticeAutoSubmitted
	}
	s.noticeLocked(kind, index, fmt.Sprintf("%s +%d", j.Verdict, j.Score))
}

func (s *Synchronizer) finishLocked() {
	s.state.Status = StatusFinished
	s.state.Locked = true
	if err := s.transport.Pause(); err != nil {
		s.noticeLocked(NoticeError, -1, fmt.Sprintf("failed to pause playback: %v", err))
	}
	s.noticeLocked(NoticeFinished, -1, fmt.Sprintf("final score %d", s.state.Score))
	s.persistLocked()
}

func (s *Synchronizer) persistLocked() {
	if s.opts.Recorder == nil && s.opts.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	endedAt := s.opts.Now()
	summary := stats.Summarize(s.state.Judgments, s.song.Timeline.Len())
	var runID string
	if s.opts.Recorder != nil {
		rec := model.SessionRecord{
			SongID:       s.song.ID,
			SongName:     s.song.Name,
			Difficulty:   string(s.difficulty),
			Policy:       string(s.state.Policy),
			OffsetMs:     s.state.OffsetMs,
			StartedAt:    s.startedAt,
			EndedAt:      endedAt,
			Score:        s.state.Score,
			MaxCombo:     s.state.MaxCombo,
			TotalLines:   summary.TotalLines,
			JudgedLines:  summary.JudgedLines,
			PerfectLines: summary.PerfectLines,
			AvgAccuracy:  summary.AvgAccuracy,
			DurationMs:   endedAt.Sub(s.startedAt).Milliseconds(),
		}
		id, err := s.opts.Recorder.RecordSession(ctx, rec, lineRecords(s.state.Judgments))
		if err != nil {
			s.noticeLocked(NoticeError, -1, fmt.Sprintf("failed to save session: %v", err))
		}
		runID = id
	}

	if s.opts.Store == nil {
		return
	}
	high, err := s.opts.Store.IsHighScore(ctx, s.song.ID, string(s.difficulty), s.state.Score)
	if err != nil {
		s.noticeLocked(NoticeError, -1, fmt.Sprintf("failed to check high score: %v", err))
		return
	}
	if !high {
		return
	}
	rec := model.ScoreRecord{
		SongID:     s.song.ID,
		SongName:   s.song.Name,
		Difficulty: string(s.difficulty),
		Score:      s.state.Score,
		MaxCombo:   s.state.MaxCombo,
		RunID:      runID,
		AchievedAt: endedAt,
	}
	if err := s.opts.Store.SaveHighScore(ctx, rec); err != nil {
		s.noticeLocked(NoticeError, -1, fmt.Sprintf("failed to save high score: %v", err))
		return
	}
	s.newHighScore = true
	s.noticeLocked(NoticeHighScore, -1, fmt.Sprintf("new high score %d", s.state.Score))
}

func (s *Synchronizer) noticeLocked(kind NoticeKind, line int, msg string) {
	s.notices = append(s.notices, Notice{Kind: kind, LineIndex: line, Message: msg})
}

func lineRecords(judgments []scoring.Judgment) []model.LineRecord {
	out := make([]model.LineRecord, 0, len(judgments))
	for _, j := range judgments {
		out = append(out, model.LineRecord{
			LineIndex:   j.LineIndex,
			Expected:    j.ExpectedText,
			Typed:       j.TypedText,
			Accuracy:    j.Accuracy,
			Verdict:     string(j.Verdict),
			TimingScore: j.TimingScore,
			Score:       j.Score,
			ComboAfter:  j.ComboAfter,
			JudgedAtMs:  j.JudgedAtMs,
			TargetMs:    j.TargetMs,
			Auto:        j.Auto,
		})
	}
	return out
}
