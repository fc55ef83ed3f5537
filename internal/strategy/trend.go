package strategy

import "PatternSentinel/internal/calculator"

// BreakoutAfterConsolidation: a tight range over Consolidation bars, then
// Recent bars that rose overall on heavier average volume.
func BreakoutAfterConsolidation(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.Breakout
	n := ind.Len()
	if n < c.Consolidation+c.Recent {
		return false, -1
	}
	split := n - c.Recent
	base := ind.Closes[split-c.Consolidation : split]
	hi, ok1 := calculator.Max(base)
	lo, ok2 := calculator.Min(base)
	if !ok1 || !ok2 || lo == 0 || (hi-lo)/lo > c.RangeThreshold {
		return false, -1
	}
	first, last := ind.Closes[split], ind.Closes[n-1]
	if !calculator.Defined(first, last) || first == 0 || (last-first)/first <= 0 {
		return false, -1
	}
	baseVol, ok3 := calculator.Mean(ind.Volumes[split-c.Consolidation : split])
	recentVol, ok4 := calculator.Mean(ind.Volumes[split:])
	if !ok3 || !ok4 || recentVol < baseVol*c.VolumeRatio {
		return false, -1
	}
	return true, n - 1
}

// IsUpwardTrend: MA5 crossed above MA60 on the last bar, with a volume
// surge over SurgeDays bars and a recent MACD golden cross.
func IsUpwardTrend(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.UpwardTrend
	n := ind.Len()
	if n < c.MinBars || n < 2 {
		return false, -1
	}
	t := n - 1
	if !calculator.Defined(ind.MA5[t], ind.MA60[t], ind.MA5[t-1], ind.MA60[t-1]) {
		return false, -1
	}
	if !(ind.MA5[t] > ind.MA60[t] && ind.MA5[t-1] <= ind.MA60[t-1]) {
		return false, -1
	}
	surge := p.VolumeSurge
	surge.Days = c.SurgeDays
	if ok, _ := volumeSurge(ind, surge); !ok {
		return false, -1
	}
	if ok, _ := goldenCross(ind, p.GoldenCross.Days); !ok {
		return false, -1
	}
	return true, t
}
