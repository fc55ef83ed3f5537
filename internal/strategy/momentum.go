package strategy

import (
	"PatternSentinel/internal/calculator"
)

// Detector signature: (matched, bar index of the hit). The index is -1 on
// a miss. Detectors never panic on short input; they report false.

// ThreeLimitUp: each of the last 3 bars closed at or above the limit-up change.
func ThreeLimitUp(ind *calculator.Indicators, p *Params) (bool, int) {
	n := ind.Len()
	if n < 3 {
		return false, -1
	}
	if !allAtLeast(ind.PctChgs[n-3:], p.LimitUpPct) {
		return false, -1
	}
	return true, n - 1
}

// ThreeLimitUpOnly is ThreeLimitUp with none of the 3 bars before the run
// at limit-up, so a longer streak does not qualify.
func ThreeLimitUpOnly(ind *calculator.Indicators, p *Params) (bool, int) {
	n := ind.Len()
	if n < 6 {
		return false, -1
	}
	prior := ind.PctChgs[n-6 : n-3]
	if !calculator.Defined(prior...) || !allAtLeast(ind.PctChgs[n-3:], p.LimitUpPct) {
		return false, -1
	}
	for _, v := range prior {
		if v >= p.LimitUpPct {
			return false, -1
		}
	}
	return true, n - 1
}

// RisingWithVolumeIncrease: every bar of the window rose, and each bar's
// volume held at least VolumeTolerance of the bar before it.
func RisingWithVolumeIncrease(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.RisingVolume
	n := ind.Len()
	if n < c.Days {
		return false, -1
	}
	pct := ind.PctChgs[n-c.Days:]
	if !calculator.Defined(pct...) {
		return false, -1
	}
	for _, v := range pct {
		if v <= 0 {
			return false, -1
		}
	}
	if !volumeHeld(ind.Volumes, c.Days, c.VolumeTolerance) {
		return false, -1
	}
	return true, n - 1
}

// VolumeSurgeWithPriceRise scans the most recent Days bars, newest first,
// for Consecutive bars in a row that rose on at least Multiplier times the
// reference volume. The reference is the mean volume of the RefDays bars
// preceding the scan window.
func VolumeSurgeWithPriceRise(ind *calculator.Indicators, p *Params) (bool, int) {
	return volumeSurge(ind, p.VolumeSurge)
}

func volumeSurge(ind *calculator.Indicators, c VolumeSurgeParams) (bool, int) {
	n := ind.Len()
	if n < c.Days+c.RefDays {
		return false, -1
	}
	ref, ok := calculator.Mean(ind.Volumes[n-c.Days-c.RefDays : n-c.Days])
	if !ok {
		return false, -1
	}
	streak := 0
	for i := 1; i <= c.Days; i++ {
		t := n - i
		vol, pct := ind.Volumes[t], ind.PctChgs[t]
		if calculator.Defined(vol, pct) && vol >= ref*c.Multiplier && pct > 0 {
			streak++
			if streak >= c.Consecutive {
				return true, t
			}
			continue
		}
		streak = 0
	}
	return false, -1
}

// CapitalInflow: mean amount of the last Days bars is at least
// IncreaseRatio times the mean of the RefDays bars before them, and across
// the window each bar rose with an amount at least MinThreshold of the
// previous bar's.
func CapitalInflow(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.CapitalInflow
	n := ind.Len()
	if n < c.Days+c.RefDays {
		return false, -1
	}
	recent, ok1 := calculator.Mean(ind.Amounts[n-c.Days:])
	ref, ok2 := calculator.Mean(ind.Amounts[n-c.Days-c.RefDays : n-c.Days])
	if !ok1 || !ok2 || recent < ref*c.IncreaseRatio {
		return false, -1
	}
	for i := 1; i < c.Days; i++ {
		t := n - i
		if !calculator.Defined(ind.PctChgs[t]) || ind.PctChgs[t] <= 0 {
			return false, -1
		}
		if ind.Amounts[t] < ind.Amounts[t-1]*c.MinThreshold {
			return false, -1
		}
	}
	return true, n - 1
}

// FundsInflowByVolumeTurnover: mean volume and mean turnover of the last
// Days bars both exceed Ratio times their RefDays reference, and enough of
// the recent bars rose. Series without turnover data never match.
func FundsInflowByVolumeTurnover(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.FundsInflow
	n := ind.Len()
	if n < c.Days+c.RefDays {
		return false, -1
	}
	refLo, refHi := n-c.Days-c.RefDays, n-c.Days
	volRecent, ok1 := calculator.Mean(ind.Volumes[refHi:])
	volRef, ok2 := calculator.Mean(ind.Volumes[refLo:refHi])
	toRecent, ok3 := calculator.Mean(ind.Turnover[refHi:])
	toRef, ok4 := calculator.Mean(ind.Turnover[refLo:refHi])
	if !(ok1 && ok2 && ok3 && ok4) {
		return false, -1
	}
	if volRecent <= volRef*c.Ratio || toRecent <= toRef*c.Ratio {
		return false, -1
	}
	positive := 0
	for _, v := range ind.PctChgs[refHi:] {
		if v > 0 {
			positive++
		}
	}
	if positive < int(float64(c.Days)*c.PositiveShare) {
		return false, -1
	}
	return true, n - 1
}

func allAtLeast(values []float64, floor float64) bool {
	if !calculator.Defined(values...) {
		return false
	}
	for _, v := range values {
		if v < floor {
			return false
		}
	}
	return true
}

// volumeHeld checks vol[t] >= vol[t-1]*tolerance for each consecutive pair
// inside the last days bars.
func volumeHeld(volumes []float64, days int, tolerance float64) bool {
	n := len(volumes)
	if n < days || !calculator.Defined(volumes[n-days:]...) {
		return false
	}
	for i := 1; i < days; i++ {
		t := n - i
		if volumes[t] < volumes[t-1]*tolerance {
			return false
		}
	}
	return true
}
