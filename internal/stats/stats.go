// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/verte-zerg/lyritype/internal/lyrics"
	"github.com/verte-zerg/lyritype/internal/model"
)

const sparkChars = " .:-=+*#%@"

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := seriesMinMax(values)
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(len(sparkChars)-1, idx))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FormatClock renders ms as m:ss.cc.
func FormatClock(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%d:%02d.%02d", sign, ms/60000, (ms/1000)%60, (ms%1000)/10)
}

// RenderSummary prints aggregate numbers across sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalScore, totalAcc float64
	var bestScore, bestCombo, perfect, judged int
	grades := map[string]int{}
	for _, s := range sessions {
		totalScore += float64(s.Score)
		totalAcc += s.AvgAccuracy
		bestScore = max(bestScore, s.Score)
		bestCombo = max(bestCombo, s.MaxCombo)
		perfect += s.PerfectLines
		judged += s.JudgedLines
		grades[Grade(s.AvgAccuracy, s.TotalLines-s.JudgedLines)]++
	}
	count := float64(len(sessions))
	perfectPct := 0.0
	if judged > 0 {
		perfectPct = float64(perfect) / float64(judged) * 100
	}

	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Best Score: %d", bestScore),
		fmt.Sprintf("Avg Score: %.0f", totalScore/count),
		fmt.Sprintf("Best Combo: %d", bestCombo),
		fmt.Sprintf("Avg Accuracy: %.2f%%", totalAcc/count*100),
		fmt.Sprintf("Perfect Lines: %.2f%%", perfectPct),
		"Grades: " + formatGrades(grades),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func formatGrades(grades map[string]int) string {
	parts := make([]string, 0, len(grades))
	for _, g := range []string{"S", "A", "B", "C", "D"} {
		if n := grades[g]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", g, n))
		}
	}
	return strings.Join(parts, " ")
}

// RenderCurves prints score and accuracy curves over sessions.
func RenderCurves(w io.Writer, sessions []model.SessionAggregate, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	scores := make([]float64, len(sessions))
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		scores[i] = float64(s.Score)
		accs[i] = s.AvgAccuracy * 100
	}
	scores = MovingAverage(scores, window)
	accs = MovingAverage(accs, window)

	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	if err := PlotSeries(w, "Score", []Series{{Name: "Score", Values: scores}}, width, height, useColor); err != nil {
		return err
	}
	return PlotSeries(w, "Accuracy (%)", []Series{{Name: "Accuracy", Values: accs}}, width, height, useColor)
}

// RenderVerdicts prints how often each timing verdict occurred.
func RenderVerdicts(w io.Writer, title string, totals []model.VerdictTotal) error {
	if len(totals) == 0 {
		_, err := fmt.Fprintln(w, "No judged lines found.")
		return err
	}
	sum := 0
	for _, vt := range totals {
		sum += vt.Count
	}
	rows := make([][]string, 0, len(totals))
	for _, vt := range totals {
		rows = append(rows, []string{
			vt.Verdict,
			fmt.Sprintf("%d", vt.Count),
			fmt.Sprintf("%.2f%%", float64(vt.Count)/float64(sum)*100),
		})
	}
	return writeTable(w, title, []string{"Verdict", "Lines", "Share"}, rows, map[int]bool{1: true, 2: true})
}

// RenderSessions prints one row per session, oldest first.
func RenderSessions(w io.Writer, sessions []model.SessionAggregate, maxTitle int) error {
	if len(sessions) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.EndedAt.Local().Format("2006-01-02 15:04"),
			truncate(s.SongName, maxTitle),
			s.Difficulty,
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%d", s.MaxCombo),
			fmt.Sprintf("%.2f%%", s.AvgAccuracy*100),
			fmt.Sprintf("%d/%d", s.JudgedLines, s.TotalLines),
			Grade(s.AvgAccuracy, s.TotalLines-s.JudgedLines),
		})
	}
	headers := []string{"Ended", "Song", "Difficulty", "Score", "Combo", "Accuracy", "Lines", "Grade"}
	return writeTable(w, "Sessions", headers, rows, map[int]bool{3: true, 4: true, 5: true, 6: true})
}

// RenderHighScores prints the best score per song and difficulty.
func RenderHighScores(w io.Writer, scores []model.ScoreRecord, maxTitle int) error {
	if len(scores) == 0 {
		_, err := fmt.Fprintln(w, "No high scores yet.")
		return err
	}
	rows := make([][]string, 0, len(scores))
	for _, s := range scores {
		rows = append(rows, []string{
			truncate(s.SongName, maxTitle),
			s.Difficulty,
			fmt.Sprintf("%d", s.Score),
			fmt.Sprintf("%d", s.MaxCombo),
			s.AchievedAt.Local().Format("2006-01-02 15:04"),
			s.RunID,
		})
	}
	headers := []string{"Song", "Difficulty", "Score", "Combo", "Achieved", "Run"}
	return writeTable(w, "High Scores", headers, rows, map[int]bool{2: true, 3: true})
}

// RenderJudgments prints the per-line outcome of a session.
func RenderJudgments(w io.Writer, lines []model.LineRecord, maxText int) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "No judged lines.")
		return err
	}
	rows := make([][]string, 0, len(lines))
	for _, ln := range lines {
		typed := ln.Typed
		if ln.Auto {
			typed += " (auto)"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", ln.LineIndex+1),
			truncate(ln.Expected, maxText),
			truncate(typed, maxText),
			fmt.Sprintf("%.2f%%", ln.Accuracy*100),
			ln.Verdict,
			fmt.Sprintf("%+d", ln.JudgedAtMs-ln.TargetMs),
			fmt.Sprintf("%d", ln.Score),
			fmt.Sprintf("%d", ln.ComboAfter),
		})
	}
	headers := []string{"#", "Expected", "Typed", "Accuracy", "Verdict", "Delta (ms)", "Score", "Combo"}
	return writeTable(w, "Lines", headers, rows, map[int]bool{0: true, 3: true, 5: true, 6: true, 7: true})
}

// RenderTimeline prints parsed lyric metadata and lines.
func RenderTimeline(w io.Writer, tl *lyrics.Timeline, maxText int) error {
	meta := tl.Meta()
	header := []string{
		"Artist: " + orDash(meta.Artist),
		"Title: " + orDash(meta.Title),
		"Album: " + orDash(meta.Album),
		"By: " + orDash(meta.By),
	}
	if meta.DurationMs > 0 {
		header = append(header, "Length: "+FormatClock(meta.DurationMs))
	}
	if meta.OffsetMs != 0 {
		header = append(header, fmt.Sprintf("Offset: %+dms", meta.OffsetMs))
	}
	header = append(header, fmt.Sprintf("Lines: %d", tl.Len()), "")
	for _, line := range header {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	if tl.Len() == 0 {
		_, err := fmt.Fprintln(w, "No timed lines.")
		return err
	}
	rows := make([][]string, 0, tl.Len())
	for i, ln := range tl.Lines() {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			FormatClock(ln.StartMs),
			FormatClock(ln.EndMs),
			truncate(ln.Text, maxText),
		})
	}
	return writeTable(w, "Timeline", []string{"#", "Start", "End", "Text"}, rows, map[int]bool{0: true, 1: true, 2: true})
}

func writeTable(w io.Writer, title string, headers []string, rows [][]string, rightAlign map[int]bool) error {
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
