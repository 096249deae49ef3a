// Package tui provides the Bubble Tea lyric typing interface.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/lyritype/internal/audio"
	"github.com/verte-zerg/lyritype/internal/engine"
	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
	"github.com/verte-zerg/lyritype/internal/stats"
)

const (
	frameInterval = 50 * time.Millisecond
	offsetStepMs  = 50
	maxNotices    = 3
	noticeTTL     = 3 * time.Second
)

type frameMsg time.Time

type noticeLine struct {
	text    string
	isError bool
	at      time.Time
}

// Model implements the Bubble Tea play UI. It forwards input to the
// synchronizer and renders its snapshots.
type Model struct {
	sync     *engine.Synchronizer
	clock    *audio.Clock
	timeline *lyrics.Timeline
	best     *model.ScoreRecord

	input    textinput.Model
	progress progress.Model
	results  *table.Model

	width  int
	height int

	snap    engine.Snapshot
	notices []noticeLine
	errs    []string
	now     func() time.Time
}

var (
	correctStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	pendingStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentWordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	lockedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	highScoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FADB14")).Bold(true)
	countdownStyle   = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#C89A3A")).
				Bold(true).
				Padding(1, 4).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#C89A3A"))
)

// NewModel constructs a play UI for a loaded synchronizer. best is the stored
// high score of the song, if any.
func NewModel(sync *engine.Synchronizer, clock *audio.Clock, timeline *lyrics.Timeline, best *model.ScoreRecord) *Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type the active line"
	input.Focus()

	m := &Model{
		sync:     sync,
		clock:    clock,
		timeline: timeline,
		best:     best,
		input:    input,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		now:      time.Now,
	}
	m.refresh()
	return m
}

// Errors returns the error notices seen during the session.
func (m *Model) Errors() []string {
	return append([]string(nil), m.errs...)
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, frame())
}

func frame() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, contentWidth(m.width)-len(m.input.Prompt)-1)
		m.progress.Width = max(10, contentWidth(m.width))
		return m, nil
	case frameMsg:
		m.advance()
		return m, frame()
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
}

func (m *Model) advance() {
	m.sync.OnTick()
	if m.snap.Status == engine.StatusPlaying && m.clock.Ended() {
		m.sync.AudioEnded()
	}
	m.refresh()
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.sync.OnControl(engine.ControlQuit)
		return m, tea.Quit
	}

	switch m.snap.Status {
	case engine.StatusLoading:
		switch key {
		case "s":
			m.sync.OnControl(engine.ControlStart)
		case "q":
			m.sync.OnControl(engine.ControlQuit)
			return m, tea.Quit
		}
	case engine.StatusPaused:
		switch key {
		case "esc", " ":
			m.sync.OnControl(engine.ControlResume)
			m.syncClock()
		case "+", "=":
			m.sync.SetOffset(m.snap.OffsetMs + offsetStepMs)
		case "-":
			m.sync.SetOffset(m.snap.OffsetMs - offsetStepMs)
		case "q":
			m.sync.OnControl(engine.ControlQuit)
			return m, tea.Quit
		}
	case engine.StatusFinished:
		switch key {
		case "r":
			m.replay()
		case "q":
			return m, tea.Quit
		default:
			if m.results != nil {
				var cmd tea.Cmd
				*m.results, cmd = m.results.Update(msg)
				return m, cmd
			}
		}
	case engine.StatusPlaying:
		switch key {
		case "esc":
			m.sync.OnControl(engine.ControlTogglePause)
			m.syncClock()
		case "enter":
			m.sync.OnControl(engine.ControlClear)
		case "ctrl+s":
			m.sync.OnControl(engine.ControlSubmit)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			m.sync.OnKeystroke(m.input.Value())
			m.refresh()
			return m, cmd
		}
	}
	m.refresh()
	return m, nil
}

// syncClock follows the engine's pause state with the playback clock.
func (m *Model) syncClock() {
	var err error
	switch m.sync.Snapshot().Status {
	case engine.StatusPaused:
		err = m.clock.Pause()
	case engine.StatusPlaying:
		err = m.clock.Play()
	}
	if err != nil {
		m.addNotice(fmt.Sprintf("audio: %v", err), true)
	}
}

func (m *Model) replay() {
	m.sync.OnControl(engine.ControlReplay)
	if err := m.clock.Pause(); err != nil {
		m.addNotice(fmt.Sprintf("audio: %v", err), true)
	}
	if err := m.clock.Seek(0); err != nil {
		m.addNotice(fmt.Sprintf("audio: %v", err), true)
	}
	m.results = nil
}

// refresh pulls a new snapshot, drains notices, and mirrors the judged
// buffer back into the input field.
func (m *Model) refresh() {
	m.snap = m.sync.Snapshot()
	for _, n := range m.sync.Notices() {
		switch n.Kind {
		case engine.NoticeError:
			m.errs = append(m.errs, n.Message)
			m.addNotice(n.Message, true)
		case engine.NoticeAutoSubmitted:
			m.addNotice(fmt.Sprintf("line %d auto: %s", n.LineIndex+1, n.Message), false)
		case engine.NoticeJudged:
			m.addNotice(fmt.Sprintf("line %d: %s", n.LineIndex+1, n.Message), false)
		case engine.NoticeHighScore, engine.NoticeFinished:
			m.addNotice(n.Message, false)
		}
	}
	if m.input.Value() != m.snap.Buffer {
		m.input.SetValue(m.snap.Buffer)
		m.input.CursorEnd()
	}
	if m.snap.Status == engine.StatusFinished && m.results == nil {
		t := buildResultsTable(m.snap, m.height)
		m.results = &t
	}
}

func (m *Model) addNotice(text string, isError bool) {
	m.notices = append(m.notices, noticeLine{text: text, isError: isError, at: m.now()})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.snap.Status {
	case engine.StatusIdle:
		body = footerStyle.Render("No song loaded.")
	case engine.StatusLoading:
		body = m.renderLoading()
	case engine.StatusCountdown:
		body = countdownStyle.Render(fmt.Sprintf("%d", m.snap.Countdown))
	case engine.StatusFinished:
		body = m.renderFinished()
	default:
		body = m.renderPlaying()
	}
	content := lipgloss.JoinVertical(lipgloss.Center, m.renderHeader(), "", body)
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	bodyHeight := max(1, m.height-1)
	page := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, m.renderFooter())
	return page + "\n" + footerLine
}

func (m *Model) renderHeader() string {
	title := m.snap.SongName
	if title == "" {
		title = "lyritype"
	}
	meta := fmt.Sprintf("%s · %s · offset %+dms", m.snap.Difficulty, m.snap.Policy, m.snap.OffsetMs)
	return lipgloss.JoinVertical(lipgloss.Center, titleStyle.Render(title), footerStyle.Render(meta))
}

func (m *Model) renderLoading() string {
	lines := []string{fmt.Sprintf("%d lines loaded", m.snap.TotalLines)}
	if m.best != nil {
		lines = append(lines, fmt.Sprintf("Best %d (combo %d)", m.best.Score, m.best.MaxCombo))
	}
	lines = append(lines, "", footerStyle.Render("s start · q quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderPlaying() string {
	width := contentWidth(m.width)
	var rows []string

	active := m.snap.ActiveLine
	if active > 0 {
		rows = append(rows, dimStyle.Render(m.timeline.Line(active-1).Text))
	} else {
		rows = append(rows, "")
	}
	if active >= 0 && active < m.timeline.Len() {
		expected := []rune(m.timeline.Line(active).Text)
		typed := []rune(m.snap.Buffer)
		cursor := -1
		if !m.snap.Locked && len(typed) < len(expected) {
			cursor = len(typed)
		}
		rows = append(rows, wrapStyledRunes(buildStyledRunes(expected, typed, cursor, m.snap.Locked), width))
	} else {
		rows = append(rows, pendingStyle.Render("…"))
	}
	if next := active + 1; next < m.timeline.Len() {
		rows = append(rows, pendingStyle.Render(m.timeline.Line(next).Text))
	} else {
		rows = append(rows, "")
	}

	rows = append(rows, "", m.input.View(), "", m.renderHUD(), m.progress.ViewAs(m.songProgress()))
	if m.snap.Status == engine.StatusPaused {
		rows = append(rows, "", currentWordStyle.Render("paused · space resume · +/- offset · q quit"))
	}
	rows = append(rows, m.renderNotices()...)
	return lipgloss.NewStyle().Width(width).Render(strings.Join(rows, "\n"))
}

func (m *Model) renderHUD() string {
	segments := []string{
		fmt.Sprintf("Score %d", m.snap.Score),
		fmt.Sprintf("Combo %d", m.snap.Combo),
		fmt.Sprintf("Max %d", m.snap.MaxCombo),
	}
	if last, ok := m.snap.LastJudgment(); ok {
		segments = append(segments, fmt.Sprintf("Last %s %.0f%%", last.Verdict, last.Accuracy*100))
	}
	return strings.Join(segments, "  ")
}

func (m *Model) renderNotices() []string {
	now := m.now()
	var out []string
	for _, n := range m.notices {
		if now.Sub(n.at) > noticeTTL {
			continue
		}
		if n.isError {
			out = append(out, errorStyle.Render(n.text))
			continue
		}
		out = append(out, footerStyle.Render(n.text))
	}
	return out
}

func (m *Model) renderFinished() string {
	summary := stats.Summarize(m.snap.Judgments, m.snap.TotalLines)
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Grade %s · Score %d", summary.Grade, summary.Score)),
		fmt.Sprintf("Accuracy %.2f%% · Max combo %d · Perfect %d/%d · Missed %d",
			summary.AvgAccuracy*100, summary.MaxCombo, summary.PerfectLines, summary.TotalLines, summary.MissedLines),
	}
	if m.snap.NewHighScore {
		lines = append(lines, highScoreStyle.Render("New high score!"))
	} else if m.best != nil {
		lines = append(lines, footerStyle.Render(fmt.Sprintf("Best %d", m.best.Score)))
	}
	if m.results != nil {
		lines = append(lines, "", m.results.View())
	}
	lines = append(lines, m.renderNotices()...)
	lines = append(lines, "", footerStyle.Render("r replay · q quit"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderFooter() string {
	pos := m.clock.CurrentTimeMs()
	segment := stats.FormatClock(pos)
	if d := m.clock.DurationMs(); d > 0 {
		segment += " / " + stats.FormatClock(d)
	}
	parts := []string{segment, fmt.Sprintf("Line %d/%d", max(0, m.snap.ActiveLine+1), m.snap.TotalLines)}
	if m.best != nil {
		parts = append(parts, fmt.Sprintf("Best %d", m.best.Score))
	}
	return footerStyle.Render(strings.Join(parts, "  "))
}

func (m *Model) songProgress() float64 {
	d := m.clock.DurationMs()
	if d <= 0 {
		d = m.timeline.EndMs()
	}
	if d <= 0 {
		return 0
	}
	return min(1, float64(m.clock.CurrentTimeMs())/float64(d))
}

func contentWidth(width int) int {
	if width <= 0 {
		return 60
	}
	return max(1, int(float64(width)*0.70))
}

func buildResultsTable(snap engine.Snapshot, height int) table.Model {
	columns := []table.Column{
		{Title: "#", Width: 4},
		{Title: "Typed", Width: 32},
		{Title: "Acc", Width: 7},
		{Title: "Verdict", Width: 10},
		{Title: "Score", Width: 6},
	}
	rows := make([]table.Row, 0, len(snap.Judgments))
	for _, j := range snap.Judgments {
		typed := j.TypedText
		if j.Auto {
			typed += " (auto)"
		}
		rows = append(rows, table.Row{
			fmt.Sprintf("%d", j.LineIndex+1),
			typed,
			fmt.Sprintf("%.0f%%", j.Accuracy*100),
			string(j.Verdict),
			fmt.Sprintf("%d", j.Score),
		})
	}
	tableHeight := 8
	if height > 0 {
		tableHeight = max(3, min(len(rows)+1, height-14))
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(tableHeight),
		table.WithFocused(true),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("#8C8C8C")).Bold(false)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#3A3A3A"))
	t.SetStyles(styles)
	return t
}
