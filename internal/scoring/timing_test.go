package scoring

import "testing"

func TestClassifyBoundaries(t *testing.T) {
	p := ProfileFor(Medium)
	cases := []struct {
		diff int64
		want Verdict
	}{
		{0, Perfect},
		{300, Perfect},
		{-300, Perfect},
		{301, Late},
		{-301, Early},
		{800, Late},
		{-800, Early},
		{801, TooLate},
		{-801, TooEarly},
		{2000, TooLate},
	}
	for _, tc := range cases {
		if got := Classify(10000+tc.diff, 10000, p); got != tc.want {
			t.Fatalf("diff %d: expected %s, got %s", tc.diff, tc.want, got)
		}
	}
}

func TestClassifyPartitionIsContiguous(t *testing.T) {
	order := map[Verdict]int{TooEarly: 0, Early: 1, Perfect: 2, Late: 3, TooLate: 4}
	for _, d := range Difficulties {
		p := ProfileFor(d)
		if p.PerfectWindowMs >= p.GoodWindowMs {
			t.Fatalf("%s: perfect window must be tighter than good window", d)
		}
		prev := -1
		seen := map[Verdict]bool{}
		for diff := int64(-3000); diff <= 3000; diff++ {
			v := Classify(diff, 0, p)
			rank, ok := order[v]
			if !ok {
				t.Fatalf("%s: unexpected verdict %q", d, v)
			}
			if rank < prev {
				t.Fatalf("%s: verdict regions not contiguous at diff %d", d, diff)
			}
			prev = rank
			seen[v] = true
		}
		if len(seen) != len(Verdicts) {
			t.Fatalf("%s: expected all verdicts, saw %v", d, seen)
		}
	}
}

func TestMultiplier(t *testing.T) {
	p := ProfileFor(Medium)
	if got := Multiplier(Perfect, p); got != 1.0 {
		t.Fatalf("expected 1.0 for perfect, got %v", got)
	}
	if got := Multiplier(TooLate, p); got != 0.4 {
		t.Fatalf("expected 0.4 for too late, got %v", got)
	}
	for _, d := range Difficulties {
		p := ProfileFor(d)
		for _, v := range Verdicts {
			m := Multiplier(v, p)
			if m <= 0 || m > 1 {
				t.Fatalf("%s/%s: multiplier %v out of (0,1]", d, v, m)
			}
		}
	}
}

func TestParseDifficulty(t *testing.T) {
	d, err := ParseDifficulty(" HARD ")
	if err != nil || d != Hard {
		t.Fatalf("expected hard, got %q (%v)", d, err)
	}
	if _, err := ParseDifficulty("insane"); err == nil {
		t.Fatalf("expected error for unknown difficulty")
	}
	if ProfileFor("insane").Name != Medium {
		t.Fatalf("expected medium fallback")
	}
}
