// Package lyrics parses timed lyric text into an ordered timeline.
package lyrics

// LastLineMs is the duration assigned to the final line, which has no successor.
const LastLineMs = 5000

// Line is one lyric line with its start time and derived end time.
type Line struct {
	StartMs int64
	EndMs   int64
	Text    string
}

// Metadata holds the optional tags of a lyric file.
type Metadata struct {
	Artist     string
	Title      string
	Album      string
	By         string
	DurationMs int64
	OffsetMs   int64
	Tags       map[string]string
}

// Timeline is an immutable, start-ordered sequence of lines.
type Timeline struct {
	lines []Line
	meta  Metadata
}

// NewTimeline sorts lines by start time and derives end times.
func NewTimeline(lines []Line, meta Metadata) *Timeline {
	out := make([]Line, len(lines))
	copy(out, lines)
	sortLines(out)
	deriveEnds(out)
	return &Timeline{lines: out, meta: meta}
}

// Len returns the number of lines.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Line returns the line at index i. The caller must check bounds with Len.
func (t *Timeline) Line(i int) Line {
	return t.lines[i]
}

// Lines returns a copy of all lines.
func (t *Timeline) Lines() []Line {
	if t == nil {
		return nil
	}
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

// Meta returns the timeline metadata.
func (t *Timeline) Meta() Metadata {
	if t == nil {
		return Metadata{}
	}
	return t.meta
}

// EndMs returns the end of the last line, or 0 for an empty timeline.
func (t *Timeline) EndMs() int64 {
	if t.Len() == 0 {
		return 0
	}
	return t.lines[len(t.lines)-1].EndMs
}

// LineAt returns the index of the last line whose start is at or before
// timeMs, or -1 when timeMs precedes the first line.
func (t *Timeline) LineAt(timeMs int64) int {
	for i := t.Len() - 1; i >= 0; i-- {
		if t.lines[i].StartMs <= timeMs {
			return i
		}
	}
	return -1
}

func deriveEnds(lines []Line) {
	for i := range lines {
		if i+1 < len(lines) {
			lines[i].EndMs = lines[i+1].StartMs
			continue
		}
		lines[i].EndMs = lines[i].StartMs + LastLineMs
	}
}
