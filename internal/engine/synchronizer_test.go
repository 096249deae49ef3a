package engine

import (
	"errors"
	"testing"

	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/scoring"
)

const threeLines = "[00:01.00]first line\n[00:03.00]Second, line!\n[00:05.00]third line\n"

func TestLifecycleThroughCountdown(t *testing.T) {
	sched := &fakeScheduler{}
	s := New(Options{Schedule: sched.schedule})
	if got := s.Snapshot().Status; got != StatusIdle {
		t.Fatalf("expected idle, got %s", got)
	}
	if err := s.Start(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady from idle, got %v", err)
	}

	tl, err := lyrics.Parse(threeLines)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s.Load(Song{ID: "x", Timeline: tl})
	if got := s.Snapshot().Status; got != StatusLoading {
		t.Fatalf("expected loading, got %s", got)
	}
	if err := s.Start(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady without audio, got %v", err)
	}

	tr := &fakeTransport{}
	s.AttachAudio(tr)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap := s.Snapshot()
	if snap.Status != StatusCountdown || snap.Countdown != 3 {
		t.Fatalf("expected countdown 3, got %s %d", snap.Status, snap.Countdown)
	}
	sched.fire(t)
	sched.fire(t)
	if snap := s.Snapshot(); snap.Status != StatusCountdown || snap.Countdown != 1 {
		t.Fatalf("expected countdown 1, got %s %d", snap.Status, snap.Countdown)
	}
	if tr.plays != 0 {
		t.Fatalf("expected no playback before countdown ends")
	}
	sched.fire(t)
	if got := s.Snapshot().Status; got != StatusPlaying {
		t.Fatalf("expected playing, got %s", got)
	}
	if tr.plays != 1 {
		t.Fatalf("expected one Play call, got %d", tr.plays)
	}
	if len(sched.pending) != 0 {
		t.Fatalf("expected no pending countdown steps")
	}
}

func TestAbortCancelsCountdown(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	if err := h.sync.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.sync.Abort()
	if !h.sched.timers[0].stopped {
		t.Fatalf("expected countdown timer to be stopped")
	}
	h.sched.fire(t)
	if got := h.sync.Snapshot().Status; got != StatusIdle {
		t.Fatalf("expected idle after abort, got %s", got)
	}
	if h.transport.plays != 0 {
		t.Fatalf("expected no playback after abort")
	}
}

func TestCloseLeavesNoPendingTransition(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	if err := h.sync.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.sync.Close()
	if !h.sched.timers[0].stopped {
		t.Fatalf("expected countdown timer to be stopped")
	}
	h.sched.fire(t)
	if snap := h.sync.Snapshot(); snap.Status != StatusCountdown || snap.Countdown != defaultCountdownSteps {
		t.Fatalf("expected stale step to be ignored, got %s with %d left", snap.Status, snap.Countdown)
	}
	if h.transport.plays != 0 {
		t.Fatalf("expected no playback after close")
	}
}

func TestEmptyTimelineNeverStarts(t *testing.T) {
	h := newHarness(t, "[ar:nobody]\n", Options{})
	if err := h.sync.Start(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	h.tickAt(10000)
	h.typeAt(10000, "anything")
	if snap := h.sync.Snapshot(); len(snap.Judgments) != 0 || snap.ActiveLine != -1 {
		t.Fatalf("expected no judging on empty timeline: %+v", snap)
	}
}

func TestTickAutoJudgesPreviousLine(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)

	h.tickAt(500)
	if got := h.sync.Snapshot().ActiveLine; got != -1 {
		t.Fatalf("expected no active line before first start, got %d", got)
	}
	h.tickAt(1000)
	if got := h.sync.Snapshot().ActiveLine; got != 0 {
		t.Fatalf("expected line 0 at its start, got %d", got)
	}
	h.typeAt(1500, "first")
	h.tickAt(3100)

	snap := h.sync.Snapshot()
	if snap.ActiveLine != 1 || snap.Buffer != "" || snap.Locked {
		t.Fatalf("expected fresh line 1, got %+v", snap.State)
	}
	if len(snap.Judgments) != 1 {
		t.Fatalf("expected one judgment, got %d", len(snap.Judgments))
	}
	j := snap.Judgments[0]
	if j.LineIndex != 0 || !j.Auto || j.TypedText != "first" || j.JudgedAtMs != 3100 || j.TargetMs != 1000 {
		t.Fatalf("unexpected auto judgment: %+v", j)
	}
	if j.Verdict != scoring.TooLate {
		t.Fatalf("expected too_late, got %s", j.Verdict)
	}

	notices := h.sync.Notices()
	found := false
	for _, n := range notices {
		if n.Kind == NoticeAutoSubmitted && n.LineIndex == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected auto-submitted notice, got %+v", notices)
	}
	if len(h.sync.Notices()) != 0 {
		t.Fatalf("expected notices to be drained")
	}
}

func TestOffsetShiftsLookupButNotJudgedTime(t *testing.T) {
	h := newHarness(t, threeLines, Options{OffsetMs: 500})
	h.play(t)
	h.tickAt(500)
	if got := h.sync.Snapshot().ActiveLine; got != 0 {
		t.Fatalf("expected offset to select line 0, got %d", got)
	}
	h.tickAt(2600)
	snap := h.sync.Snapshot()
	if snap.ActiveLine != 1 {
		t.Fatalf("expected line 1, got %d", snap.ActiveLine)
	}
	if snap.Judgments[0].JudgedAtMs != 2600 {
		t.Fatalf("expected raw audio time, got %d", snap.Judgments[0].JudgedAtMs)
	}
	if got := h.sync.SetOffset(5000); got != MaxOffsetMs {
		t.Fatalf("expected clamp to %d, got %d", MaxOffsetMs, got)
	}
	if got := h.sync.SetOffset(-5000); got != MinOffsetMs {
		t.Fatalf("expected clamp to %d, got %d", MinOffsetMs, got)
	}
}

func TestEarlyMatchLocksAndTakesPriority(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)
	h.tickAt(3000)
	h.typeAt(3200, "second line")

	snap := h.sync.Snapshot()
	if !snap.Locked {
		t.Fatalf("expected line to lock on exact match")
	}
	// Line 0 never became active, so only line 1 is judged.
	if len(snap.Judgments) != 1 {
		t.Fatalf("expected one judgment, got %d", len(snap.Judgments))
	}
	j := snap.Judgments[0]
	if j.LineIndex != 1 || j.Auto || j.Accuracy != 1 || j.Verdict != scoring.Perfect || j.JudgedAtMs != 3200 {
		t.Fatalf("unexpected early judgment: %+v", j)
	}

	h.typeAt(3300, "second line and more")
	if got := h.sync.Snapshot().Buffer; got != "second line" {
		t.Fatalf("expected locked buffer to be unchanged, got %q", got)
	}
	h.sync.ClearInput()
	if got := h.sync.Snapshot().Buffer; got != "second line" {
		t.Fatalf("expected clear to be ignored while locked, got %q", got)
	}
	h.tickAt(5000)
	snap = h.sync.Snapshot()
	for _, j := range snap.Judgments {
		if j.LineIndex == 1 && j.Auto {
			t.Fatalf("line 1 judged twice")
		}
	}
	if snap.ActiveLine != 2 || snap.Locked {
		t.Fatalf("expected unlocked line 2, got %+v", snap.State)
	}
}

func TestSubmitAndClear(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)
	h.tickAt(1000)
	h.typeAt(1100, "fist")
	h.sync.ClearInput()
	if got := h.sync.Snapshot().Buffer; got != "" {
		t.Fatalf("expected cleared buffer, got %q", got)
	}
	h.typeAt(1200, "firs line")
	h.sync.OnControl(ControlSubmit)
	h.sync.OnControl(ControlSubmit)
	snap := h.sync.Snapshot()
	if len(snap.Judgments) != 1 || !snap.Locked {
		t.Fatalf("expected exactly one manual judgment, got %+v", snap.Judgments)
	}
	if snap.Judgments[0].TypedText != "firs line" || snap.Judgments[0].Auto {
		t.Fatalf("unexpected judgment: %+v", snap.Judgments[0])
	}
	if snap.Judgments[0].ComboAfter != 0 {
		t.Fatalf("expected combo reset for inaccurate line")
	}
}

func TestPauseFreezesProcessing(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)
	h.tickAt(1000)
	if got := h.sync.TogglePause(); got != StatusPaused {
		t.Fatalf("expected paused, got %s", got)
	}
	h.tickAt(3500)
	h.typeAt(3500, "first line")
	snap := h.sync.Snapshot()
	if snap.ActiveLine != 0 || snap.Buffer != "" || len(snap.Judgments) != 0 {
		t.Fatalf("expected no processing while paused: %+v", snap.State)
	}
	h.sync.OnControl(ControlResume)
	h.tickAt(3500)
	if got := h.sync.Snapshot().ActiveLine; got != 1 {
		t.Fatalf("expected processing after resume, got line %d", got)
	}
}

func TestStrictPolicyRejectsDeletion(t *testing.T) {
	h := newHarness(t, threeLines, Options{Policy: PolicyStrict})
	h.play(t)
	h.tickAt(1000)

	inputs := []string{"f", "fi", "f", "fix", "fi", "", "fiz", "firs"}
	prevLen := 0
	for _, in := range inputs {
		h.typeAt(1100, in)
		buf := h.sync.Snapshot().Buffer
		if len(buf) < prevLen {
			t.Fatalf("buffer shrank from %d to %d on %q", prevLen, len(buf), in)
		}
		prevLen = len(buf)
	}
	if got := h.sync.Snapshot().Buffer; got != "firs" {
		t.Fatalf("expected substitutions to be accepted, got %q", got)
	}
}

func TestAssistPolicyInjectsPunctuation(t *testing.T) {
	h := newHarness(t, threeLines, Options{Policy: PolicyAssist})
	h.play(t)
	h.tickAt(3000)
	h.typeAt(3100, "Second ")
	if got := h.sync.Snapshot().Buffer; got != "Second, " {
		t.Fatalf("expected injected comma, got %q", got)
	}
	h.typeAt(3200, "Second, line")
	snap := h.sync.Snapshot()
	if snap.Buffer != "Second, line!" || !snap.Locked {
		t.Fatalf("expected aligned and locked line, got %+v", snap.State)
	}
	last, _ := snap.LastJudgment()
	if last.Accuracy != 1 {
		t.Fatalf("expected full accuracy, got %v", last.Accuracy)
	}
}

func TestPerfectLineScoreAndCombo(t *testing.T) {
	h := newHarness(t, "[00:10.00]Hello there\n[00:20.00]General Kenobi\n", Options{Difficulty: scoring.Medium})
	h.play(t)
	h.tickAt(10000)
	h.typeAt(10250, "hello there")
	snap := h.sync.Snapshot()
	j, ok := snap.LastJudgment()
	if !ok {
		t.Fatalf("expected a judgment")
	}
	if j.Verdict != scoring.Perfect || j.TimingScore != 1 || j.Score != 1000 {
		t.Fatalf("unexpected judgment: %+v", j)
	}
	if snap.Combo != 1 || snap.MaxCombo != 1 || snap.Score != 1000 {
		t.Fatalf("unexpected totals: %+v", snap.State)
	}
}

func TestFinishRequiresDurationSignal(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)
	h.tickAt(5000)
	h.tickAt(10000)
	if got := h.sync.Snapshot().Status; got != StatusPlaying {
		t.Fatalf("expected to keep playing without duration, got %s", got)
	}
	h.sync.AudioLoaded(12000)
	h.tickAt(10000)
	snap := h.sync.Snapshot()
	if snap.Status != StatusFinished {
		t.Fatalf("expected finished, got %s", snap.Status)
	}
	last, _ := snap.LastJudgment()
	if last.LineIndex != 2 || !last.Auto {
		t.Fatalf("expected last line auto judged, got %+v", last)
	}
	if h.transport.pauses != 1 {
		t.Fatalf("expected transport pause at finish, got %d", h.transport.pauses)
	}

	h.tickAt(20000)
	h.typeAt(20000, "third line")
	if got := len(h.sync.Snapshot().Judgments); got != len(snap.Judgments) {
		t.Fatalf("expected frozen judgments after finish")
	}
}

func TestFinishPersistsHighScore(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.transport.duration = 12000
	h.play(t)
	h.tickAt(1000)
	h.typeAt(1100, "first line")
	h.tickAt(10000)

	snap := h.sync.Snapshot()
	if snap.Status != StatusFinished || !snap.NewHighScore {
		t.Fatalf("expected finished with new high score, got %s %v", snap.Status, snap.NewHighScore)
	}
	if len(h.store.sessions) != 1 {
		t.Fatalf("expected one recorded session, got %d", len(h.store.sessions))
	}
	rec := h.store.sessions[0]
	if rec.Score != snap.Score || rec.TotalLines != 3 || rec.JudgedLines != 2 || rec.Difficulty != "medium" {
		t.Fatalf("unexpected session record: %+v", rec)
	}
	if len(h.store.lines[0]) != 2 {
		t.Fatalf("expected two line records, got %d", len(h.store.lines[0]))
	}
	if len(h.store.saved) != 1 || h.store.saved[0].RunID != "run-1" {
		t.Fatalf("expected saved high score with run id, got %+v", h.store.saved)
	}

	h.sync.Replay()
	h.play(t)
	h.tickAt(10000)
	if got := h.sync.Snapshot(); got.NewHighScore {
		t.Fatalf("expected lower replay score not to be a high score")
	}
	if len(h.store.saved) != 1 {
		t.Fatalf("expected no second high score")
	}
}

func TestFinishSurvivesStoreFailure(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.store.checkErr = errBoom
	h.store.recordErr = errBoom
	h.sync.AudioLoaded(9000)
	h.play(t)
	h.tickAt(10000)
	if got := h.sync.Snapshot().Status; got != StatusFinished {
		t.Fatalf("expected finished despite store errors, got %s", got)
	}
	errorsSeen := 0
	for _, n := range h.sync.Notices() {
		if n.Kind == NoticeError {
			errorsSeen++
		}
	}
	if errorsSeen != 2 {
		t.Fatalf("expected two error notices, got %d", errorsSeen)
	}
}

func TestAudioEndedFinishes(t *testing.T) {
	h := newHarness(t, threeLines, Options{})
	h.play(t)
	h.tickAt(5200)
	h.transport.now = 6000
	h.sync.AudioEnded()
	snap := h.sync.Snapshot()
	if snap.Status != StatusFinished {
		t.Fatalf("expected finished, got %s", snap.Status)
	}
	last, _ := snap.LastJudgment()
	if last.LineIndex != 2 || last.JudgedAtMs != 10000 {
		t.Fatalf("expected last line judged at its end, got %+v", last)
	}
}

func TestNoLineJudgedTwice(t *testing.T) {
	h := newHarness(t, "[00:01.00]a\n[00:02.00]b\n[00:02.00]b\n[00:04.00]c\n[00:06.00]d\n", Options{})
	h.sync.AudioLoaded(20000)
	h.play(t)
	times := []int64{0, 1000, 1500, 2000, 2500, 1200, 3000, 4100, 2100, 4200, 6000, 6500, 20000}
	for i, ms := range times {
		h.tickAt(ms)
		if i%2 == 0 {
			h.typeAt(ms, "b")
			h.sync.Submit()
		}
	}
	seen := map[int]bool{}
	for _, j := range h.sync.Snapshot().Judgments {
		if seen[j.LineIndex] {
			t.Fatalf("line %d judged twice", j.LineIndex)
		}
		seen[j.LineIndex] = true
	}
}

func TestReplayResetsState(t *testing.T) {
	h := newHarness(t, threeLines, Options{Policy: PolicyAssist, OffsetMs: 100})
	h.play(t)
	h.tickAt(1000)
	h.typeAt(1000, "first line")
	h.sync.OnControl(ControlReplay)
	snap := h.sync.Snapshot()
	if snap.Status != StatusLoading || snap.Score != 0 || len(snap.Judgments) != 0 || snap.ActiveLine != -1 {
		t.Fatalf("expected fresh loading state, got %+v", snap.State)
	}
	if snap.Policy != PolicyAssist || snap.OffsetMs != 100 {
		t.Fatalf("expected settings to survive replay, got %+v", snap.State)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, err := ParsePolicy("Strict"); err != nil || p != PolicyStrict {
		t.Fatalf("expected strict, got %q (%v)", p, err)
	}
	if _, err := ParsePolicy("lenient"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
