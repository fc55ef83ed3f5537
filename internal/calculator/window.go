package calculator

import "math"

// Defined reports whether every value is a finite number.
func Defined(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Mean returns the average of values. ok is false for an empty window or
// one holding an undefined value.
func Mean(values []float64) (float64, bool) {
	if len(values) == 0 || !Defined(values...) {
		return math.NaN(), false
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Min returns the smallest value of a fully defined, non-empty window.
func Min(values []float64) (float64, bool) {
	i := ArgMin(values)
	if i < 0 {
		return math.NaN(), false
	}
	return values[i], true
}

// Max returns the largest value of a fully defined, non-empty window.
func Max(values []float64) (float64, bool) {
	i := ArgMax(values)
	if i < 0 {
		return math.NaN(), false
	}
	return values[i], true
}

// ArgMin returns the first index holding the minimum, or -1.
func ArgMin(values []float64) int {
	if len(values) == 0 || !Defined(values...) {
		return -1
	}
	best := 0
	for i, v := range values {
		if v < values[best] {
			best = i
		}
	}
	return best
}

// ArgMax returns the first index holding the maximum, or -1.
func ArgMax(values []float64) int {
	if len(values) == 0 || !Defined(values...) {
		return -1
	}
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// Tail returns the last n values, or all of them when fewer exist.
func Tail(values []float64, n int) []float64 {
	if n >= len(values) {
		return values
	}
	if n <= 0 {
		return values[:0]
	}
	return values[len(values)-n:]
}
