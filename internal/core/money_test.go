package core

import "testing"

func TestParseAmountToWon(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1,000,000", 1_000_000, true},
		{"₩1,000,000", 1_000_000, true},
		{"12500", 12500, true},
		{"12500.4", 12500, true},
		{"12500.5", 12501, true},
		{"0", 0, true},
		{"", 0, false},
		{"-100", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmountToWon(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseAmountToWon(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseAmountToWon(%q) expected error", tc.in)
		}
	}
}

func TestMulRate(t *testing.T) {
	if got := MulRate(1_000_000, 0.033); got != 33_000 {
		t.Fatalf("MulRate = %d, want 33000", got)
	}
	if got := MulRate(600, 1.1); got != 660 {
		t.Fatalf("MulRate = %d, want 660", got)
	}
	if got := MulRate(-600, 1.1); got != -660 {
		t.Fatalf("MulRate = %d, want -660", got)
	}
}
