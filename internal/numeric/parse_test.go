package numeric

import (
	"fmt"
	"testing"
)

func TestParsePassesNumbersThrough(t *testing.T) {
	if got := Parse(123.45, "", 0); got != 123.45 {
		t.Fatalf("float input: got %v", got)
	}
	if got := Parse(7, "", 0); got != 7.0 {
		t.Fatalf("int input: got %v", got)
	}
}

func TestParseUnitAnchored(t *testing.T) {
	cases := []struct {
		in   string
		unit string
		want float64
	}{
		{"123.45元", "元", 123.45},
		{"订单金额:456.78元", "元", 456.78},
		{"2,225,378.75元", "元", 2225378.75},
		{"共 300.5升 加油", "升", 300.5},
		{"元98.5后置", "元", 98.5}, // unit before the number
		{"-12.5元", "元", -12.5},
	}
	for _, c := range cases {
		if got := Parse(c.in, c.unit, 0); got != c.want {
			t.Fatalf("Parse(%q, %q) = %v, want %v", c.in, c.unit, got, c.want)
		}
	}
}

func TestParseUnitAnchoredPrefersNumberAtUnit(t *testing.T) {
	// Two numbers in one string: the one adjacent to the unit wins, not the
	// lexically first one.
	if got := Parse("第2笔 合计 456.78元", "元", 0); got != 456.78 {
		t.Fatalf("got %v, want 456.78", got)
	}
}

func TestParseCommaSeparators(t *testing.T) {
	if got := Parse("25,378.75", "", 0); got != 25378.75 {
		t.Fatalf("got %v", got)
	}
}

func TestParseFallsBackToDefault(t *testing.T) {
	if got := Parse(nil, "", 0); got != 0 {
		t.Fatalf("nil: got %v", got)
	}
	if got := Parse("", "", 0); got != 0 {
		t.Fatalf("empty: got %v", got)
	}
	if got := Parse("元", "元", 0); got != 0 {
		t.Fatalf("bare unit: got %v", got)
	}
	if got := Parse("x", "", -1.0); got != -1.0 {
		t.Fatalf("custom default: got %v", got)
	}
	if got := Parse(map[string]any{}, "", 0); got != 0 {
		t.Fatalf("unsupported type: got %v", got)
	}
}

func TestParseStripsCurrencyGlyphs(t *testing.T) {
	if got := Parse("¥1,234.50", "", 0); got != 1234.50 {
		t.Fatalf("got %v", got)
	}
	if got := Parse("$ 99.99", "", 0); got != 99.99 {
		t.Fatalf("got %v", got)
	}
}

func TestParseIdempotentOnCleanNumbers(t *testing.T) {
	for _, v := range []float64{0, 1.5, 25378.75, -42.01} {
		s := fmt.Sprintf("%v", Parse(v, "", 0))
		if got := Parse(s, "", 0); got != v {
			t.Fatalf("round trip of %v: got %v", v, got)
		}
	}
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{43.8166666, 43.82},
		{0.125, 0.13}, // would be 0.12 under round-half-to-even
		{-0.125, -0.13},
		{3.125, 3.13},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSplitThree(t *testing.T) {
	if got := SplitThree(131.45); got != 43.82 {
		t.Fatalf("got %v, want 43.82", got)
	}
	if got := SplitThree(900); got != 300.0 {
		t.Fatalf("got %v, want 300", got)
	}
}
