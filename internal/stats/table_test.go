package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Verdict", "Lines", "Share"}
	rows := [][]string{
		{"perfect", "12", "80.00%"},
		{"too_late", "3", "20.00%"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Verdict  Lines  Share" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "perfect     12 80.00%" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "too_late     3 20.00%" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Text", "#"}, [][]string{{"夜に駆ける", "1"}, {"run", "2"}}, nil)
	if lines[1] != "夜に駆ける 1" {
		t.Fatalf("unexpected wide row: %q", lines[1])
	}
	if lines[2] != "run        2" {
		t.Fatalf("expected padding by cell width, got %q", lines[2])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected unchanged value, got %q", got)
	}
	got := truncate("a rather long lyric line", 10)
	if displayWidth(got) > 10 {
		t.Fatalf("expected at most 10 cells, got %q", got)
	}
}
