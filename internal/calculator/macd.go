package calculator

// MACDConfig holds the three MACD windows.
type MACDConfig struct {
	Short  int `yaml:"short"`
	Long   int `yaml:"long"`
	Signal int `yaml:"signal"`
}

// DefaultMACD is the conventional 12/26/9 setting.
var DefaultMACD = MACDConfig{Short: 12, Long: 26, Signal: 9}

// MACD holds the three aligned MACD lines.
type MACD struct {
	DIF  []float64
	DEA  []float64
	Hist []float64
}

// ComputeMACD derives DIF = EMA(short) - EMA(long), DEA = EMA(DIF, signal)
// and Hist = 2 × (DIF - DEA). Positions before Long-1 are NaN.
func ComputeMACD(closes []float64, cfg MACDConfig) MACD {
	n := len(closes)
	short := EMA(closes, cfg.Short)
	long := EMA(closes, cfg.Long)
	dif := make([]float64, n)
	for i := range closes {
		dif[i] = short[i] - long[i]
	}
	dea := EMA(dif, cfg.Signal)

	m := MACD{DIF: nanSlice(n), DEA: nanSlice(n), Hist: nanSlice(n)}
	start := cfg.Long - 1
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		m.DIF[i] = dif[i]
		m.DEA[i] = dea[i]
		m.Hist[i] = 2 * (dif[i] - dea[i])
	}
	return m
}
