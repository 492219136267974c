package metric

import "math"

// Bracket returns the bucket index of value for buckets of width interval:
// 0 for value <= 0, otherwise floor(value/interval) clamped to maxBracket.
func Bracket(value, interval float64, maxBracket int) int {
	if value <= 0 || math.IsNaN(value) || interval <= 0 || maxBracket <= 0 {
		return 0
	}
	idx := math.Floor(value / interval)
	if idx >= float64(maxBracket) {
		return maxBracket
	}
	return int(idx)
}

// Closeness compares two non-negative rates symmetrically:
// min(a,b)/max(a,b), and 0 when either is exactly 0.
func Closeness(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return math.Min(a, b) / math.Max(a, b)
}
