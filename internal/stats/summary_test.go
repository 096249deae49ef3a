package stats

import (
	"testing"

	"github.com/verte-zerg/lyritype/internal/scoring"
)

func TestSummarize(t *testing.T) {
	judgments := []scoring.Judgment{
		{LineIndex: 0, Accuracy: 1, Verdict: scoring.Perfect, TimingScore: 1, Score: 1000, ComboAfter: 1},
		{LineIndex: 1, Accuracy: 1, Verdict: scoring.Perfect, TimingScore: 1, Score: 1010, ComboAfter: 2},
		{LineIndex: 3, Accuracy: 0.5, Verdict: scoring.TooLate, TimingScore: 0.4, Score: 520, Auto: true},
	}
	s := Summarize(judgments, 4)
	if s.JudgedLines != 3 || s.MissedLines != 1 || s.PerfectLines != 2 || s.AutoSubmitted != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.Score != 2530 || s.MaxCombo != 2 {
		t.Fatalf("unexpected totals: %+v", s)
	}
	if s.Verdicts[scoring.Perfect] != 2 || s.Verdicts[scoring.TooLate] != 1 {
		t.Fatalf("unexpected verdicts: %v", s.Verdicts)
	}
	if s.Grade != "B" {
		t.Fatalf("expected grade B for 83%% accuracy, got %s", s.Grade)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 3)
	if s.MissedLines != 3 || s.AvgAccuracy != 0 || s.Grade != "D" {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		acc    float64
		missed int
		want   string
	}{
		{1, 0, "S"},
		{0.96, 1, "A"},
		{0.9, 0, "A"},
		{0.85, 0, "B"},
		{0.7, 0, "C"},
		{0.69, 0, "D"},
	}
	for _, c := range cases {
		if got := Grade(c.acc, c.missed); got != c.want {
			t.Fatalf("Grade(%v, %d): expected %s, got %s", c.acc, c.missed, c.want, got)
		}
	}
}
