package ocr

import "testing"

func TestParseScore(t *testing.T) {
	cases := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"42", 42, true},
		{" 7 \n", 7, true},
		{"O5", 5, true},   // O misread for 0
		{"I2", 12, true},  // I misread for 1
		{"S0", 50, true},  // S misread for 5
		{"B", 8, true},    // lone B is an 8
		{"4 2", 42, true}, // stray spacing between digits
		{"", 0, false},
		{"---", 0, false},
		{"xyz", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseScore(tc.in)
		if ok != tc.wantOK {
			t.Errorf("ParseScore(%q): expected ok=%v, got %v", tc.in, tc.wantOK, ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseScore(%q): expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestScoreRangeConstants(t *testing.T) {
	if ScoreMin != 0 || ScoreMax != 80 {
		t.Errorf("unexpected score range [%d,%d]", ScoreMin, ScoreMax)
	}
}
