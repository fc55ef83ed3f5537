package calculator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// SMA returns the rolling simple mean of values over window. A position is
// NaN until window defined values precede it, so a gap in the input only
// blanks the windows that contain it.
func SMA(values []float64, window int) []float64 {
	out := nanSlice(len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for start := 0; start < len(values); {
		if !Defined(values[start]) {
			start++
			continue
		}
		end := start
		for end < len(values) && Defined(values[end]) {
			end++
		}
		if end-start >= window {
			sma := talib.Sma(values[start:end], window)
			copy(out[start+window-1:end], sma[window-1:])
		}
		start = end
	}
	return out
}

// LastSMA returns the simple mean of the final period values.
func LastSMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return math.NaN(), false
	}
	return Mean(values[len(values)-period:])
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
