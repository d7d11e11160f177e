package attribution

import "math"

// SafeDivide divides num by den, returning 0 when the denominator is zero
// or either operand is not finite. Every ratio in this package routes
// through here; nothing downstream ever sees NaN or Inf.
func SafeDivide(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) ||
		math.IsNaN(num) || math.IsInf(num, 0) {
		return 0
	}
	return num / den
}

// SafeDelta returns the percent change from prev to cur, or nil when the
// previous value is zero or not finite. Deltas are nil rather than zero so
// "no baseline" renders differently from "no change".
func SafeDelta(cur, prev float64) *float64 {
	if prev == 0 || math.IsNaN(prev) || math.IsInf(prev, 0) ||
		math.IsNaN(cur) || math.IsInf(cur, 0) {
		return nil
	}
	d := (cur - prev) / prev * 100
	return &d
}
