package strategy

import (
	"math"

	"PatternSentinel/internal/calculator"
)

// DoubleBottom looks for a W shape in the trailing Lookback bars:
//
//	bottom1  first global minimum close
//	neckline highest close after bottom1
//	bottom2  lowest close after the neckline
//
// The bottoms must be MinGap..MaxGap bars apart and within PriceDiff of each
// other, bottom2 must trade on lower volume, and the neckline must rise at
// least NecklineRise over bottom1. The first later bar closing at or above
// BreakoutRatio of the neckline is the breakout; it must carry VolumeRatio
// times the mean volume of the VolumeWindow bars before bottom2.
func DoubleBottom(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.DoubleBottom
	n := ind.Len()
	if n < c.MinBars {
		return false, -1
	}
	off := 0
	if n > c.Lookback {
		off = n - c.Lookback
	}
	closes, vols := ind.Closes[off:], ind.Volumes[off:]
	if !calculator.Defined(closes...) || !calculator.Defined(vols...) {
		return false, -1
	}
	last := len(closes) - 1

	b1 := calculator.ArgMin(closes)
	if b1 >= last {
		return false, -1
	}
	neck := b1 + 1 + calculator.ArgMax(closes[b1+1:])
	if neck >= last {
		return false, -1
	}
	b2 := neck + 1 + calculator.ArgMin(closes[neck+1:])

	if gap := b2 - b1; gap < c.MinGap || gap > c.MaxGap {
		return false, -1
	}
	if closes[b1] == 0 || math.Abs(closes[b2]-closes[b1])/closes[b1] > c.PriceDiff {
		return false, -1
	}
	if vols[b2] >= vols[b1] {
		return false, -1
	}
	if closes[neck] < closes[b1]*c.NecklineRise {
		return false, -1
	}
	if b2 < c.VolumeWindow {
		return false, -1
	}
	for j := b2 + 1; j <= last; j++ {
		if closes[j] < closes[neck]*c.BreakoutRatio {
			continue
		}
		avg, ok := calculator.Mean(vols[b2-c.VolumeWindow : b2])
		if ok && vols[j] >= avg*c.VolumeRatio {
			return true, off + j
		}
		return false, -1
	}
	return false, -1
}

// DoubleBottomNew finds local minima (a close equal to the minimum of the
// Window bars on either side) and tests each adjacent pair. A pair
// qualifies when it is MinGap..MaxGap bars apart, within PriceDiff, the
// second bottom trades on lower volume, and the first later close above
// the highest close between the bottoms carries VolumeRatio times the mean
// volume of the VolumeWindow bars before the second bottom. A failed pair
// does not stop the scan.
func DoubleBottomNew(ind *calculator.Indicators, p *Params) (bool, int) {
	c := p.DoubleBottomNew
	n := ind.Len()
	if n < c.Window*3 {
		return false, -1
	}
	closes, vols := ind.Closes, ind.Volumes
	if !calculator.Defined(closes...) || !calculator.Defined(vols...) {
		return false, -1
	}

	var bottoms []int
	for i := c.Window; i < n-c.Window; i++ {
		if lo, _ := calculator.Min(closes[i-c.Window : i+c.Window+1]); closes[i] == lo {
			bottoms = append(bottoms, i)
		}
	}

	for k := 0; k+1 < len(bottoms); k++ {
		i1, i2 := bottoms[k], bottoms[k+1]
		if gap := i2 - i1; gap < c.MinGap || gap > c.MaxGap {
			continue
		}
		p1, p2 := closes[i1], closes[i2]
		if p1 == 0 || math.Abs(p2-p1)/p1 > c.PriceDiff {
			continue
		}
		if vols[i2] >= vols[i1] {
			continue
		}
		neckline, _ := calculator.Max(closes[i1:i2])
		for j := i2 + 1; j < n; j++ {
			if closes[j] <= neckline {
				continue
			}
			lo := i2 - c.VolumeWindow
			if lo < 0 {
				lo = 0
			}
			if avg, ok := calculator.Mean(vols[lo:i2]); ok && vols[j] >= avg*c.VolumeRatio {
				return true, j
			}
			break
		}
	}
	return false, -1
}
