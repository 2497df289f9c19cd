package layout

import (
	"math"
	"testing"
)

// TestPtMmRoundTrip 验证 pt↔mm 换算的往返精度。
func TestPtMmRoundTrip(t *testing.T) {
	samples := []float64{0, 0.001, 1, 6, 58, 72, 144, 1000}
	for _, pt := range samples {
		back := pt * PtToMm * MmToPt
		if diff := math.Abs(back - pt); diff > 1e-9 {
			t.Fatalf("pt→mm→pt drift: in=%gpt back=%g diff=%g", pt, back, diff)
		}
	}
}

func TestParseLength(t *testing.T) {
	cases := []struct {
		in     string
		wantMM float64
		unit   Unit
	}{
		{"72pt", 25.4, UnitPT},
		{"72", 25.4, UnitNone},
		{"1in", 25.4, UnitIN},
		{"2.54cm", 25.4, UnitCM},
		{"25.4mm", 25.4, UnitMM},
		{".5in", 12.7, UnitIN},
		{"-6pt", -6 * PtToMm, UnitPT},
	}
	for _, tc := range cases {
		l, err := ParseLength(tc.in)
		if err != nil {
			t.Fatalf("ParseLength(%q): %v", tc.in, err)
		}
		if l.Unit != tc.unit {
			t.Fatalf("ParseLength(%q) unit = %v, want %v", tc.in, l.Unit, tc.unit)
		}
		if diff := math.Abs(l.ToMM() - tc.wantMM); diff > 1e-9 {
			t.Fatalf("ParseLength(%q).ToMM() = %g, want %g", tc.in, l.ToMM(), tc.wantMM)
		}
	}
}

func TestParseLengthRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "pt", "12px", "abc"} {
		if _, err := ParseLength(in); err == nil {
			t.Fatalf("ParseLength(%q) should fail", in)
		}
	}
}

func TestPercentResolvesAgainstReference(t *testing.T) {
	l := MustLength("50%")
	if got := l.Resolve(40); got != 20 {
		t.Fatalf("50%% of 40mm = %g, want 20", got)
	}
	if got := MustLength("10mm").Resolve(40); got != 10 {
		t.Fatalf("absolute length should ignore reference, got %g", got)
	}
	if got := MustLength("144pt").ToPT(); math.Abs(got-144) > 1e-9 {
		t.Fatalf("144pt.ToPT() = %g", got)
	}
}
