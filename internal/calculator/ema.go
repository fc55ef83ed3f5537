package calculator

import "math"

// EMA returns the exponential mean of values with smoothing 2/(span+1),
// seeded with the first defined value. Positions before it are NaN. An
// undefined value carries the previous mean forward, and the next defined
// value is weighted against a mean decayed over the whole gap.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	mean := math.NaN()
	oldWt := 1.0
	for i, v := range values {
		if math.IsNaN(mean) {
			if Defined(v) {
				mean = v
			}
			out[i] = mean
			continue
		}
		oldWt *= 1 - alpha
		if Defined(v) {
			mean = (oldWt*mean + alpha*v) / (oldWt + alpha)
			oldWt = 1
		}
		out[i] = mean
	}
	return out
}
