package calculator

import "PatternSentinel/internal/model"

// Indicators is the derived view of one series, computed once per
// classification and shared read-only by every detector.
type Indicators struct {
	Closes   []float64
	Volumes  []float64
	Amounts  []float64
	PctChgs  []float64
	Turnover []float64

	MA5  []float64
	MA10 []float64
	MA30 []float64
	MA60 []float64

	MACDConfig MACDConfig
	MACD
}

// Compute derives every indicator of s. The series is not modified.
func Compute(s *model.Series, macd MACDConfig) *Indicators {
	closes := s.Closes()
	return &Indicators{
		Closes:     closes,
		Volumes:    s.Volumes(),
		Amounts:    s.Amounts(),
		PctChgs:    s.PctChgs(),
		Turnover:   s.TurnoverRates(),
		MA5:        SMA(closes, 5),
		MA10:       SMA(closes, 10),
		MA30:       SMA(closes, 30),
		MA60:       SMA(closes, 60),
		MACDConfig: macd,
		MACD:       ComputeMACD(closes, macd),
	}
}

// Len returns the number of bars the indicators were derived from.
func (ind *Indicators) Len() int { return len(ind.Closes) }
