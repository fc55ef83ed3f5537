package collector

import (
	"math"

	"PatternSentinel/internal/model"
)

// MergeBars folds each run of k consecutive bars into one: first open, max
// high, min low, last close, summed volume and amount. A trailing run
// shorter than k is still emitted. PctChg is recomputed from the merged
// closes; TurnoverRate is summed.
func MergeBars(bars []model.Bar, k int) []model.Bar {
	if k <= 1 || len(bars) == 0 {
		return bars
	}
	out := make([]model.Bar, 0, (len(bars)+k-1)/k)
	for start := 0; start < len(bars); start += k {
		end := start + k
		if end > len(bars) {
			end = len(bars)
		}
		out = append(out, foldBars(bars[start:end]))
	}
	for i := range out {
		out[i].PctChg = math.NaN()
	}
	model.FillPctChg(out)
	return out
}

// AggregateWeekly converts daily bars into ISO-week bars.
func AggregateWeekly(daily []model.Bar) []model.Bar {
	if len(daily) == 0 {
		return nil
	}
	var weekly []model.Bar
	start := 0
	for i := 1; i <= len(daily); i++ {
		if i < len(daily) && sameISOWeek(daily[i], daily[start]) {
			continue
		}
		weekly = append(weekly, foldBars(daily[start:i]))
		start = i
	}
	for i := range weekly {
		weekly[i].PctChg = math.NaN()
	}
	model.FillPctChg(weekly)
	return weekly
}

func sameISOWeek(a, b model.Bar) bool {
	ay, aw := a.Date.ISOWeek()
	by, bw := b.Date.ISOWeek()
	return ay == by && aw == bw
}

// foldBars stamps the merged bar with the group's first date.
func foldBars(group []model.Bar) model.Bar {
	b := group[0]
	for _, g := range group[1:] {
		if g.High > b.High {
			b.High = g.High
		}
		if g.Low < b.Low {
			b.Low = g.Low
		}
		b.Volume += g.Volume
		b.Amount += g.Amount
		b.TurnoverRate += g.TurnoverRate
	}
	b.Close = group[len(group)-1].Close
	return b
}
