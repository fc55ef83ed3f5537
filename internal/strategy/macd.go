package strategy

import (
	"math"

	"PatternSentinel/internal/calculator"
)

// crossedUp reports a histogram move from below zero to zero or above
// between t-1 and t.
func crossedUp(hist []float64, t int) bool {
	if t < 1 || !calculator.Defined(hist[t-1], hist[t]) {
		return false
	}
	return hist[t-1] < 0 && hist[t] >= 0
}

// MacdGoldenCross: the histogram crossed up within the last Days bars.
func MacdGoldenCross(ind *calculator.Indicators, p *Params) (bool, int) {
	return goldenCross(ind, p.GoldenCross.Days)
}

func goldenCross(ind *calculator.Indicators, days int) (bool, int) {
	n := ind.Len()
	if n < ind.MACDConfig.Long+days {
		return false, -1
	}
	for i := 1; i <= days; i++ {
		if t := n - i; crossedUp(ind.Hist, t) {
			return true, t
		}
	}
	return false, -1
}

// MacdGoldenCross7: a cross within the last Days bars on a bar whose
// close-to-close change stayed at or under MaxPriceChange, which filters
// crosses forced by a single gap up.
func MacdGoldenCross7(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.GoldenCross7
	n := ind.Len()
	if n < ind.MACDConfig.Long+c.Days {
		return false, -1
	}
	for t := n - c.Days; t < n; t++ {
		if !crossedUp(ind.Hist, t) {
			continue
		}
		prev := ind.Closes[t-1]
		if prev == 0 || math.IsNaN(prev) {
			continue
		}
		if (ind.Closes[t]-prev)/prev <= c.MaxPriceChange {
			return true, t
		}
	}
	return false, -1
}
