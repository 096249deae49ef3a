package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
)

type fakeTransport struct {
	now      int64
	duration int64
	playing  bool
	plays    int
	pauses   int
}

func (f *fakeTransport) CurrentTimeMs() int64 { return f.now }
func (f *fakeTransport) DurationMs() int64 { return f.duration }
func (f *fakeTransport) IsPlaying() bool { return f.playing }
func (f *fakeTransport) Seek(ms int64) error { f.now = ms; return nil }
func (f *fakeTransport) SetRate(float64) error { return nil }
func (f *fakeTransport) SetVolume(float64) error { return nil }

func (f *fakeTransport) Play() error {
	f.plays++
	f.playing = true
	return nil
}

func (f *fakeTransport) Pause() error {
	f.pauses++
	f.playing = false
	return nil
}

type fakeTimer struct {
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

type fakeScheduler struct {
	pending []func()
	timers  []*fakeTimer
}

func (f *fakeScheduler) schedule(_ time.Duration, fn func()) Timer {
	timer := &fakeTimer{}
	f.pending = append(f.pending, fn)
	f.timers = append(f.timers, timer)
	return timer
}

// fire runs the oldest scheduled callback, even if its timer was stopped, to
// mimic a timer that already fired before Stop was called.
func (f *fakeScheduler) fire(t *testing.T) {
	t.Helper()
	if len(f.pending) == 0 {
		t.Fatalf("no scheduled callback to fire")
	}
	fn := f.pending[0]
	f.pending = f.pending[1:]
	fn()
}

type fakeStore struct {
	best      map[string]int
	saved     []model.ScoreRecord
	sessions  []model.SessionRecord
	lines     [][]model.LineRecord
	checkErr  error
	recordErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{best: map[string]int{}}
}

func (f *fakeStore) IsHighScore(_ context.Context, songID, difficulty string, score int) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	return score > f.best[songID+"/"+difficulty], nil
}

func (f *fakeStore) SaveHighScore(_ context.Context, rec model.ScoreRecord) error {
	f.best[rec.SongID+"/"+rec.Difficulty] = rec.Score
	f.saved = append(f.saved, rec)
	return nil
}

func (f *fakeStore) RecordSession(_ context.Context, rec model.SessionRecord, lines []model.LineRecord) (string, error) {
	if f.recordErr != nil {
		return "", f.recordErr
	}
	f.sessions = append(f.sessions, rec)
	f.lines = append(f.lines, lines)
	return "run-1", nil
}

var errBoom = errors.New("boom")

type harness struct {
	sync      *Synchronizer
	transport *fakeTransport
	sched     *fakeScheduler
	store     *fakeStore
}

func newHarness(t *testing.T, raw string, opts Options) *harness {
	t.Helper()
	tl, err := lyrics.Parse(raw)
	if err != nil {
		t.Fatalf("parse lyrics: %v", err)
	}
	h := &harness{
		transport: &fakeTransport{},
		sched:     &fakeScheduler{},
		store:     newFakeStore(),
	}
	opts.Schedule = h.sched.schedule
	if opts.Store == nil {
		opts.Store = h.store
	}
	if opts.Recorder == nil {
		opts.Recorder = h.store
	}
	opts.Now = func() time.Time { return time.Unix(1700000000, 0) }
	h.sync = New(opts)
	h.sync.Load(Song{ID: "song", Name: "Song", Timeline: tl})
	h.sync.AttachAudio(h.transport)
	return h
}

// play runs the countdown to completion.
func (h *harness) play(t *testing.T) {
	t.Helper()
	if err := h.sync.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < defaultCountdownSteps; i++ {
		h.sched.fire(t)
	}
	if got := h.sync.Snapshot().Status; got != StatusPlaying {
		t.Fatalf("expected playing after countdown, got %s", got)
	}
}

func (h *harness) tickAt(ms int64) {
	h.transport.now = ms
	h.sync.OnTick()
}

func (h *harness) typeAt(ms int64, text string) {
	h.transport.now = ms
	h.sync.OnKeystroke(text)
}
