// Package stats holds the numeric primitives shared by every accumulator:
// finite-float coercion, median and interpolated percentiles over sample
// lists, named-bin assignment, and a bounded uniform reservoir sampler.
package stats

import (
	"math"
	"sort"
)

// IsFinite reports whether f is a usable statistic input: not NaN, not
// infinite. A true zero is finite and must never be filtered out.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// finiteSorted copies values, drops non-finite entries, and sorts ascending.
func finiteSorted(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if IsFinite(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// Median returns the conventional middle value of the finite entries of
// values (mean of the two middles for even counts). The second return is
// false when no finite values exist; callers must render that as an explicit
// unavailable marker, never as zero.
func Median(values []float64) (float64, bool) {
	v := finiteSorted(values)
	n := len(v)
	if n == 0 {
		return 0, false
	}
	if n%2 == 1 {
		return v[n/2], true
	}
	return (v[n/2-1] + v[n/2]) / 2, true
}

// Percentile returns the p-th percentile (p in [0,100]) of the finite
// entries of values, using linear interpolation between order statistics.
// Returns (0, false) for an empty input or p outside [0,100].
func Percentile(values []float64, p float64) (float64, bool) {
	if p < 0 || p > 100 {
		return 0, false
	}
	v := finiteSorted(values)
	n := len(v)
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return v[0], true
	}
	k := float64(n-1) * p / 100
	f := math.Floor(k)
	c := math.Ceil(k)
	if f == c {
		return v[int(k)], true
	}
	return v[int(f)]*(c-k) + v[int(c)]*(k-f), true
}

// Bin is a named inclusive-inclusive numeric range.
type Bin struct {
	Name string
	Min  float64
	Max  float64
}

// AssignBin returns the name of the first bin (in slice order) whose
// [Min, Max] range contains v. Ties at a shared boundary therefore resolve
// to the earlier bin. Returns ("", false) when no bin matches.
func AssignBin(v float64, bins []Bin) (string, bool) {
	if !IsFinite(v) {
		return "", false
	}
	for _, b := range bins {
		if v >= b.Min && v <= b.Max {
			return b.Name, true
		}
	}
	return "", false
}

// Round rounds v to the given number of decimal places. Applied at
// serialization time only; accumulators keep full precision.
func Round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// CappedAppend appends v to list only while the prefix cap has not been
// reached. The caller keeps exact counters separately; the cap bounds only
// the sample list itself.
func CappedAppend(list []float64, v float64, cap int) []float64 {
	if len(list) >= cap {
		return list
	}
	return append(list, v)
}
