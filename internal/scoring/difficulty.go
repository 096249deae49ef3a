// Package scoring classifies line timing and computes line scores.
package scoring

import (
	"fmt"
	"strings"
)

// Difficulty names one of the fixed profiles.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard}

// Profile bundles the timing windows and multipliers of a difficulty.
type Profile struct {
	Name                Difficulty
	PerfectWindowMs     int64
	GoodWindowMs        int64
	EarlyPenalty        float64
	LatePenalty         float64
	TooEarlyPenalty     float64
	TooLatePenalty      float64
	BaseScoreMultiplier float64
	ComboGrowthFactor   float64
}

var profiles = map[Difficulty]Profile{
	Easy: {
		Name:                Easy,
		PerfectWindowMs:     500,
		GoodWindowMs:        1200,
		EarlyPenalty:        0.9,
		LatePenalty:         0.85,
		TooEarlyPenalty:     0.6,
		TooLatePenalty:      0.5,
		BaseScoreMultiplier: 0.8,
		ComboGrowthFactor:   1.5,
	},
	Medium: {
		Name:                Medium,
		PerfectWindowMs:     300,
		GoodWindowMs:        800,
		EarlyPenalty:        0.8,
		LatePenalty:         0.75,
		TooEarlyPenalty:     0.5,
		TooLatePenalty:      0.4,
		BaseScoreMultiplier: 1.0,
		ComboGrowthFactor:   2.0,
	},
	Hard: {
		Name:                Hard,
		PerfectWindowMs:     150,
		GoodWindowMs:        400,
		EarlyPenalty:        0.7,
		LatePenalty:         0.6,
		TooEarlyPenalty:     0.3,
		TooLatePenalty:      0.25,
		BaseScoreMultiplier: 1.5,
		ComboGrowthFactor:   2.5,
	},
}

// ProfileFor returns the profile of d. Unknown names fall back to Medium.
func ProfileFor(d Difficulty) Profile {
	if p, ok := profiles[d]; ok {
		return p
	}
	return profiles[Medium]
}

// ParseDifficulty resolves a case-insensitive difficulty name.
func ParseDifficulty(name string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := profiles[d]; !ok {
		return "", fmt.Errorf("unknown difficulty %q (want easy, medium, or hard)", name)
	}
	return d, nil
}
