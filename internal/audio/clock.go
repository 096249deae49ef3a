// Package audio provides the playback clocks a session can follow.
package audio

import (
	"errors"
	"sync"
	"time"
)

const (
	MinRate = 0.25
	MaxRate = 4.0
)

var (
	ErrInvalidRate   = errors.New("rate out of range")
	ErrInvalidVolume = errors.New("volume out of range")
	ErrInvalidSeek   = errors.New("seek position out of range")
)

// Clock is a transport driven by the wall clock. Position advances at rate
// while playing and stops at the duration when one is set.
type Clock struct {
	mu  sync.Mutex
	now func() time.Time

	durationMs int64
	rate       float64
	volume     float64

	playing bool
	baseMs  float64
	anchor  time.Time
}

// NewClock returns a paused clock at position zero. A durationMs of 0 leaves
// the duration unknown. now defaults to time.Now.
func NewClock(durationMs int64, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{
		now:        now,
		durationMs: max(durationMs, 0),
		rate:       1,
		volume:     1,
	}
}

// CurrentTimeMs returns the playback position.
func (c *Clock) CurrentTimeMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positionLocked()
}

// DurationMs returns the configured duration or 0 when unknown.
func (c *Clock) DurationMs() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.durationMs
}

// IsPlaying reports whether the clock is advancing.
func (c *Clock) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing && c.endedLocked() {
		c.stopLocked()
	}
	return c.playing
}

// Ended reports whether a known duration has been reached.
func (c *Clock) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endedLocked()
}

func (c *Clock) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return nil
	}
	c.playing = true
	c.anchor = c.now()
	return nil
}

func (c *Clock) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

// Seek moves the position to ms.
func (c *Clock) Seek(ms int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ms < 0 || (c.durationMs > 0 && ms > c.durationMs) {
		return ErrInvalidSeek
	}
	c.baseMs = float64(ms)
	c.anchor = c.now()
	return nil
}

// SetRate changes the playback speed without moving the position.
func (c *Clock) SetRate(rate float64) error {
	if rate < MinRate || rate > MaxRate {
		return ErrInvalidRate
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rebaseLocked()
	c.rate = rate
	return nil
}

// SetVolume stores the volume in [0, 1]. The clock is silent, so the value is
// only reported back through Volume.
func (c *Clock) SetVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return ErrInvalidVolume
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = volume
	return nil
}

func (c *Clock) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *Clock) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Clock) positionLocked() int64 {
	pos := c.baseMs
	if c.playing {
		pos += float64(c.now().Sub(c.anchor).Milliseconds()) * c.rate
	}
	ms := int64(pos)
	if c.durationMs > 0 && ms > c.durationMs {
		ms = c.durationMs
	}
	return ms
}

func (c *Clock) endedLocked() bool {
	return c.durationMs > 0 && c.positionLocked() >= c.durationMs
}

func (c *Clock) rebaseLocked() {
	if !c.playing {
		return
	}
	now := c.now()
	c.baseMs += float64(now.Sub(c.anchor).Milliseconds()) * c.rate
	c.anchor = now
}

func (c *Clock) stopLocked() {
	c.rebaseLocked()
	if c.durationMs > 0 && c.baseMs > float64(c.durationMs) {
		c.baseMs = float64(c.durationMs)
	}
	c.playing = false
}
