package stats

import "github.com/verte-zerg/lyritype/internal/scoring"

// Summary aggregates the judgments of one session.
type Summary struct {
	TotalLines     int
	JudgedLines    int
	MissedLines    int
	PerfectLines   int
	AutoSubmitted  int
	Score          int
	MaxCombo       int
	AvgAccuracy    float64
	AvgTimingScore float64
	Verdicts       map[scoring.Verdict]int
	Grade          string
}

// Summarize computes session statistics. Lines never judged count as missed.
func Summarize(judgments []scoring.Judgment, totalLines int) Summary {
	s := Summary{
		TotalLines: totalLines,
		Verdicts:   make(map[scoring.Verdict]int, len(scoring.Verdicts)),
	}
	var accSum, timingSum float64
	for _, j := range judgments {
		s.JudgedLines++
		s.Score += j.Score
		accSum += j.Accuracy
		timingSum += j.TimingScore
		s.Verdicts[j.Verdict]++
		if j.Perfect() {
			s.PerfectLines++
		}
		if j.Auto {
			s.AutoSubmitted++
		}
		if j.ComboAfter > s.MaxCombo {
			s.MaxCombo = j.ComboAfter
		}
	}
	if s.JudgedLines > 0 {
		s.AvgAccuracy = accSum / float64(s.JudgedLines)
		s.AvgTimingScore = timingSum / float64(s.JudgedLines)
	}
	s.MissedLines = totalLines - s.JudgedLines
	if s.MissedLines < 0 {
		s.MissedLines = 0
	}
	s.Grade = Grade(s.AvgAccuracy, s.MissedLines)
	return s
}

// Grade maps average accuracy to a letter. An S requires no missed lines.
func Grade(avgAccuracy float64, missed int) string {
	switch {
	case avgAccuracy >= 0.95 && missed == 0:
		return "S"
	case avgAccuracy >= 0.90:
		return "A"
	case avgAccuracy >= 0.80:
		return "B"
	case avgAccuracy >= 0.70:
		return "C"
	default:
		return "D"
	}
}
