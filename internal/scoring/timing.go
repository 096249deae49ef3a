package scoring

// Verdict is the discrete timing classification of a judged line.
type Verdict string

const (
	Perfect  Verdict = "perfect"
	Early    Verdict = "early"
	Late     Verdict = "late"
	TooEarly Verdict = "too_early"
	TooLate  Verdict = "too_late"
)

// Verdicts lists every verdict from best to worst.
var Verdicts = []Verdict{Perfect, Early, Late, TooEarly, TooLate}

// Classify maps the offset between judgedAtMs and targetMs to a verdict.
// The checks run in order, so ties resolve toward the tighter band.
func Classify(judgedAtMs, targetMs int64, p Profile) Verdict {
	diff := judgedAtMs - targetMs
	switch {
	case abs(diff) <= p.PerfectWindowMs:
		return Perfect
	case diff < -p.GoodWindowMs:
		return TooEarly
	case diff < 0:
		return Early
	case diff > p.GoodWindowMs:
		return TooLate
	default:
		return Late
	}
}

// Multiplier returns the timing score of v under p.
func Multiplier(v Verdict, p Profile) float64 {
	switch v {
	case Perfect:
		return 1.0
	case Early:
		return p.EarlyPenalty
	case Late:
		return p.LatePenalty
	case TooEarly:
		return p.TooEarlyPenalty
	case TooLate:
		return p.TooLatePenalty
	default:
		return 0
	}
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
