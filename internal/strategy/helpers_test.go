package strategy

import (
	"time"

	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/model"
)

// flatBars returns n quiet bars: close 10, volume 1000, amount 10000,
// pct_chg +1, turnover 1.
func flatBars(n int) []model.Bar {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Date:         d.AddDate(0, 0, i),
			Open:         10,
			High:         10,
			Low:          10,
			Close:        10,
			Volume:       1000,
			Amount:       10000,
			PctChg:       1,
			TurnoverRate: 1,
		}
	}
	return bars
}

// closesToBars builds bars from closes, deriving pct_chg from consecutive
// closes; vols may be nil.
func closesToBars(closes, vols []float64) []model.Bar {
	bars := flatBars(len(closes))
	for i, c := range closes {
		bars[i].Close = c
		if vols != nil {
			bars[i].Volume = vols[i]
		}
		bars[i].Amount = c * bars[i].Volume
		if i > 0 {
			bars[i].PctChg = (c - closes[i-1]) / closes[i-1] * 100
		}
	}
	return bars
}

func indicatorsOf(bars []model.Bar) *calculator.Indicators {
	s := &model.Series{Symbol: "600000", Name: "浦发银行", Bars: bars}
	return calculator.Compute(s, calculator.DefaultMACD)
}

func setPct(bars []model.Bar, tail ...float64) {
	off := len(bars) - len(tail)
	for i, v := range tail {
		bars[off+i].PctChg = v
	}
}

func setVol(bars []model.Bar, tail ...float64) {
	off := len(bars) - len(tail)
	for i, v := range tail {
		bars[off+i].Volume = v
	}
}

func setAmount(bars []model.Bar, tail ...float64) {
	off := len(bars) - len(tail)
	for i, v := range tail {
		bars[off+i].Amount = v
	}
}

func setClose(bars []model.Bar, tail ...float64) {
	off := len(bars) - len(tail)
	for i, v := range tail {
		bars[off+i].Close = v
	}
}

// doubleBottomFixture draws a W: a low of 10.00 at bar 20, a neckline of 11.20
// at bar 30, a second low of 10.05 at bar 40 and a breakout bar at 42.
func doubleBottomFixture() (closes, vols []float64) {
	closes = make([]float64, 60)
	vols = make([]float64, 60)
	for i := range vols {
		vols[i] = 1000
	}
	for i := 0; i < 20; i++ {
		closes[i] = 12 - 0.09*float64(i)
	}
	for i := 20; i <= 30; i++ {
		closes[i] = 10 + 0.12*float64(i-20)
	}
	for i := 31; i <= 40; i++ {
		closes[i] = 11.2 - 0.115*float64(i-30)
	}
	closes[41] = 10.06
	closes[42] = 10.64
	for i := 43; i < 60; i++ {
		closes[i] = 10.6
	}
	vols[20] = 2000
	vols[42] = 1500
	return closes, vols
}

// spacedDoubleBottom builds a W whose bottoms sit gap bars apart (gap even):
// bottom1 at 20, neckline halfway, bottom2 at 20+gap, breakout two bars
// later. gap 20 reproduces doubleBottomFixture.
func spacedDoubleBottom(gap int) (closes, vols []float64) {
	half := gap / 2
	b2 := 20 + gap
	n := b2 + 20
	closes = make([]float64, n)
	vols = make([]float64, n)
	for i := range vols {
		vols[i] = 1000
	}
	for i := 0; i < 20; i++ {
		closes[i] = 12 - 0.09*float64(i)
	}
	for k := 0; k <= half; k++ {
		closes[20+k] = 10 + 1.2*float64(k)/float64(half)
	}
	for k := 1; k <= half; k++ {
		closes[20+half+k] = 11.2 - 1.15*float64(k)/float64(half)
	}
	closes[b2+1] = 10.06
	closes[b2+2] = 10.64
	for i := b2 + 3; i < n; i++ {
		closes[i] = 10.6
	}
	vols[20] = 2000
	vols[b2+2] = 1500
	return closes, vols
}
