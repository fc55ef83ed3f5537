package strategy

import "PatternSentinel/internal/calculator"

// SupportLevelRebound: MA5 above MA10 on the last bar, the last close sits
// 2%-7% above the window low, and volume held up across the window.
func SupportLevelRebound(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.SupportRebound
	n := ind.Len()
	if n < c.MinBars || n < c.Days {
		return false, -1
	}
	t := n - 1
	if !calculator.Defined(ind.MA5[t], ind.MA10[t]) || ind.MA5[t] <= ind.MA10[t] {
		return false, -1
	}
	low, ok := calculator.Min(ind.Closes[n-c.Days:])
	if !ok {
		return false, -1
	}
	last := ind.Closes[t]
	if last < low*c.LowerBound || last > low*c.UpperBound {
		return false, -1
	}
	if !volumeHeld(ind.Volumes, c.Days, c.VolumeTolerance) {
		return false, -1
	}
	return true, t
}

// SupportLevelRebound60: the last close is above MA60 by no more than
// Tolerance, with volume held up across the window.
func SupportLevelRebound60(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.SupportRebound60
	n := ind.Len()
	if n < 60 || n < c.Days {
		return false, -1
	}
	t := n - 1
	ma60, last := ind.MA60[t], ind.Closes[t]
	if !calculator.Defined(ma60, last) {
		return false, -1
	}
	if last <= ma60 || last > ma60*(1+c.Tolerance) {
		return false, -1
	}
	if !volumeHeld(ind.Volumes, c.Days, c.VolumeTolerance) {
		return false, -1
	}
	return true, t
}
