package scoring

import (
	"math"

	"github.com/verte-zerg/lyritype/internal/match"
)

const (
	// PerfectAccuracy is the minimum accuracy that keeps a combo alive.
	PerfectAccuracy = 0.95

	accuracyWeight = 0.6
	timingWeight   = 0.3
	comboWeight    = 0.1
	maxComboBonus  = 2.0
	lineScoreScale = 1000
)

// Judgment is the final outcome of one lyric line.
type Judgment struct {
	LineIndex    int
	TypedText    string
	ExpectedText string
	Accuracy     float64
	Verdict      Verdict
	TimingScore  float64
	Score        int
	ComboAfter   int
	JudgedAtMs   int64
	TargetMs     int64
	Auto         bool
}

// Perfect reports whether the judgment extended the combo.
func (j Judgment) Perfect() bool {
	return j.Accuracy >= PerfectAccuracy && j.Verdict == Perfect
}

// ScoreLine judges typed against expected at judgedAtMs for a line starting
// at targetMs. LineIndex is left for the caller to fill in.
func ScoreLine(typed, expected string, judgedAtMs, targetMs int64, comboBefore int, p Profile) Judgment {
	acc := match.Accuracy(typed, expected)
	verdict := Classify(judgedAtMs, targetMs, p)
	timing := Multiplier(verdict, p)

	j := Judgment{
		TypedText:    typed,
		ExpectedText: expected,
		Accuracy:     acc,
		Verdict:      verdict,
		TimingScore:  timing,
		JudgedAtMs:   judgedAtMs,
		TargetMs:     targetMs,
	}
	if j.Perfect() {
		j.ComboAfter = comboBefore + 1
	}

	bonus := 1 + float64(comboBefore)*(p.ComboGrowthFactor-1)*0.1
	bonus = math.Min(bonus, maxComboBonus)
	raw := lineScoreScale * (acc*accuracyWeight + timing*timingWeight + bonus*comboWeight) * p.BaseScoreMultiplier
	j.Score = int(math.Round(raw))
	if j.Score < 0 {
		j.Score = 0
	}
	return j
}
