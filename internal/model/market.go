package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Bar is one trading period of a security. Fields a source cannot supply
// are NaN; TurnoverRate is the usual one.
type Bar struct {
	Date         time.Time `json:"date"`
	Open         float64   `json:"open"`
	High         float64   `json:"high"`
	Low          float64   `json:"low"`
	Close        float64   `json:"close"`
	Volume       float64   `json:"vol"`
	Amount       float64   `json:"amount"`
	PctChg       float64   `json:"pct_chg"`
	TurnoverRate float64   `json:"turnover_rate"`
}

// Series is the ordered bar history of one security, oldest first.
type Series struct {
	Symbol string
	Name   string
	Bars   []Bar
}

// NewSeries copies bars into a series sorted by date ascending.
func NewSeries(symbol, name string, bars []Bar) *Series {
	cp := make([]Bar, len(bars))
	copy(cp, bars)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })
	return &Series{Symbol: symbol, Name: name, Bars: cp}
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.Bars) }

// Last returns the most recent bar. It panics on an empty series.
func (s *Series) Last() Bar { return s.Bars[len(s.Bars)-1] }

// Validate reports whether dates are strictly increasing.
func (s *Series) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("series %s: bar %d (%s) not after bar %d (%s)",
				s.Symbol, i, s.Bars[i].Date.Format("2006-01-02"), i-1, s.Bars[i-1].Date.Format("2006-01-02"))
		}
	}
	return nil
}

func (s *Series) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = f(b)
	}
	return out
}

func (s *Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s *Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }
func (s *Series) Amounts() []float64 { return s.column(func(b Bar) float64 { return b.Amount }) }
func (s *Series) PctChgs() []float64 { return s.column(func(b Bar) float64 { return b.PctChg }) }
func (s *Series) TurnoverRates() []float64 {
	return s.column(func(b Bar) float64 { return b.TurnoverRate })
}

// FillPctChg computes PctChg from consecutive closes for bars where it is
// missing. The first bar has no predecessor and stays NaN.
func FillPctChg(bars []Bar) {
	for i := range bars {
		if !math.IsNaN(bars[i].PctChg) {
			continue
		}
		if i == 0 || bars[i-1].Close == 0 {
			continue
		}
		bars[i].PctChg = (bars[i].Close - bars[i-1].Close) / bars[i-1].Close * 100
	}
}

// DeriveTurnoverRate fills TurnoverRate as volume / float shares × 100 for
// bars that lack it.
func DeriveTurnoverRate(bars []Bar, floatShares float64) {
	if floatShares <= 0 {
		return
	}
	for i := range bars {
		if math.IsNaN(bars[i].TurnoverRate) {
			bars[i].TurnoverRate = bars[i].Volume / floatShares * 100
		}
	}
}

// BareCode strips the exchange marker from a security code:
// "000001.SZ", "sz.000001", "0.000001" and "000001" all yield "000001".
func BareCode(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexByte(code, '.'); i >= 0 {
		left, right := code[:i], code[i+1:]
		if isDigits(left) && len(left) > 1 {
			return left
		}
		return right
	}
	return code
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
