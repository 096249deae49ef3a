package scoring

import "testing"

func TestScoreLinePerfectOnTime(t *testing.T) {
	p := ProfileFor(Medium)
	j := ScoreLine("hello there", "Hello, there!", 10250, 10000, 0, p)
	if j.Verdict != Perfect || j.TimingScore != 1.0 {
		t.Fatalf("expected perfect timing, got %s %v", j.Verdict, j.TimingScore)
	}
	if j.Accuracy != 1 {
		t.Fatalf("expected accuracy 1, got %v", j.Accuracy)
	}
	if j.ComboAfter != 1 {
		t.Fatalf("expected combo 1, got %d", j.ComboAfter)
	}
	if j.Score != 1000 {
		t.Fatalf("expected score 1000, got %d", j.Score)
	}
}

func TestScoreLineTooLateResetsCombo(t *testing.T) {
	p := ProfileFor(Medium)
	j := ScoreLine("hello there", "Hello there", 12000, 10000, 4, p)
	if j.Verdict != TooLate || j.TimingScore != 0.4 {
		t.Fatalf("expected too_late/0.4, got %s/%v", j.Verdict, j.TimingScore)
	}
	if j.ComboAfter != 0 {
		t.Fatalf("expected combo reset, got %d", j.ComboAfter)
	}
	// 1000 * (0.6 + 0.12 + 0.1 * (1 + 4*1*0.1)) = 860
	if j.Score != 860 {
		t.Fatalf("expected score 860, got %d", j.Score)
	}
}

func TestScoreLineComboRules(t *testing.T) {
	p := ProfileFor(Hard)
	for combo := 0; combo < 5; combo++ {
		j := ScoreLine("abc", "abc", 1000, 1000, combo, p)
		if j.ComboAfter != combo+1 {
			t.Fatalf("expected combo %d, got %d", combo+1, j.ComboAfter)
		}
		j = ScoreLine("abx", "abc", 1000, 1000, combo, p)
		if j.ComboAfter != 0 {
			t.Fatalf("expected combo reset on low accuracy, got %d", j.ComboAfter)
		}
		j = ScoreLine("abc", "abc", 1000+p.PerfectWindowMs+1, 1000, combo, p)
		if j.ComboAfter != 0 {
			t.Fatalf("expected combo reset on late verdict, got %d", j.ComboAfter)
		}
	}
}

func TestScoreLineComboBonusCapped(t *testing.T) {
	p := ProfileFor(Medium)
	capped := ScoreLine("abc", "abc", 0, 0, 10, p)
	huge := ScoreLine("abc", "abc", 0, 0, 1000, p)
	if capped.Score != huge.Score {
		t.Fatalf("expected capped bonus, got %d and %d", capped.Score, huge.Score)
	}
	if capped.Score != 1100 {
		t.Fatalf("expected 1100 with max bonus, got %d", capped.Score)
	}
}

func TestScoreLineEmptyTyped(t *testing.T) {
	p := ProfileFor(Easy)
	j := ScoreLine("", "words", 5000, 5000, 3, p)
	if j.Accuracy != 0 || j.ComboAfter != 0 {
		t.Fatalf("unexpected judgment: %+v", j)
	}
	// 1000 * (0 + 0.3 + 0.1 * (1 + 3*0.5*0.1)) * 0.8 = 332
	if j.Score != 332 {
		t.Fatalf("expected 332, got %d", j.Score)
	}
}
