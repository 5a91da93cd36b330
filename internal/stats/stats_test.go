package stats

import (
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   float64
		ok     bool
	}{
		{"odd", []float64{3, 1, 2}, 2, true},
		{"even", []float64{4, 1, 3, 2}, 2.5, true},
		{"single", []float64{7}, 7, true},
		{"empty", nil, 0, false},
		{"all non-finite", []float64{math.NaN(), math.Inf(1)}, 0, false},
		{"mixed", []float64{math.NaN(), 5, math.Inf(-1), 9}, 7, true},
		{"zeros kept", []float64{0, 0, 0}, 0, true},
	}
	for _, tc := range cases {
		got, ok := Median(tc.values)
		if ok != tc.ok || got != tc.want {
			t.Errorf("%s: Median = (%v, %v), want (%v, %v)", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestPercentileInterpolation(t *testing.T) {
	v := []float64{10, 20, 30, 40}

	// k = 3 * 0.5 = 1.5 -> between 20 and 30.
	got, ok := Percentile(v, 50)
	if !ok || got != 25 {
		t.Errorf("Percentile(50) = (%v, %v), want (25, true)", got, ok)
	}

	if got, _ := Percentile(v, 0); got != 10 {
		t.Errorf("Percentile(0) = %v, want 10", got)
	}
	if got, _ := Percentile(v, 100); got != 40 {
		t.Errorf("Percentile(100) = %v, want 40", got)
	}

	if _, ok := Percentile(nil, 50); ok {
		t.Error("Percentile of empty input should be unavailable")
	}
	if _, ok := Percentile(v, 101); ok {
		t.Error("Percentile outside [0,100] should be unavailable")
	}
}

func TestPercentileMonotonic(t *testing.T) {
	v := []float64{5, 1, 9, 3, 7, 2, 8, 4, 6}
	p10, _ := Percentile(v, 10)
	p50, _ := Percentile(v, 50)
	p90, _ := Percentile(v, 90)
	if p10 > p50 || p50 > p90 {
		t.Errorf("percentiles not monotonic: p10=%v p50=%v p90=%v", p10, p50, p90)
	}
}

func TestAssignBin(t *testing.T) {
	bins := []Bin{
		{Name: "0", Min: 0, Max: 0},
		{Name: "1-2", Min: 1, Max: 2},
		{Name: "3-9", Min: 3, Max: 9},
		{Name: "10-24", Min: 10, Max: 24},
		{Name: "25-49", Min: 25, Max: 49},
		{Name: "50+", Min: 50, Max: math.MaxFloat64},
	}

	cases := []struct {
		v    float64
		want string
		ok   bool
	}{
		{0, "0", true},
		{1, "1-2", true},
		{5, "3-9", true},
		{12, "10-24", true},
		{50, "50+", true},
		{1e9, "50+", true},
		{-1, "", false},
		{math.NaN(), "", false},
	}
	for _, tc := range cases {
		got, ok := AssignBin(tc.v, bins)
		if got != tc.want || ok != tc.ok {
			t.Errorf("AssignBin(%v) = (%q, %v), want (%q, %v)", tc.v, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAssignBinBoundaryTakesLowerBin(t *testing.T) {
	// Adjacent inclusive bins share boundary values; ascending first-match
	// must resolve the tie to the more negative bin.
	bins := []Bin{
		{Name: "neg", Min: -1.0, Max: 0.0},
		{Name: "pos", Min: 0.0, Max: 1.0},
	}
	if got, _ := AssignBin(0, bins); got != "neg" {
		t.Errorf("boundary 0 assigned to %q, want neg", got)
	}
}

func TestRound(t *testing.T) {
	if got := Round(33.333333, 1); got != 33.3 {
		t.Errorf("Round(33.3333, 1) = %v, want 33.3", got)
	}
	if got := Round(2.5, 0); got != 3 {
		t.Errorf("Round(2.5, 0) = %v, want 3", got)
	}
}

func TestCappedAppend(t *testing.T) {
	var list []float64
	for i := 0; i < 10; i++ {
		list = CappedAppend(list, float64(i), 3)
	}
	if len(list) != 3 {
		t.Fatalf("capped list has %d entries, want 3", len(list))
	}
	// Prefix cap keeps the first values, not a random sample.
	for i, v := range list {
		if v != float64(i) {
			t.Errorf("list[%d] = %v, want %v", i, v, float64(i))
		}
	}
}
