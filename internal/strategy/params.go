package strategy

import (
	"fmt"

	"PatternSentinel/internal/calculator"
)

// Params holds every threshold the detectors read. Zero values are not
// meaningful; start from DefaultParams and override.
type Params struct {
	MACD calculator.MACDConfig `yaml:"macd"`

	// Daily change (percent) at or above which a bar counts as limit-up.
	LimitUpPct float64 `yaml:"limit_up_pct"`

	RisingVolume     RisingVolumeParams     `yaml:"rising_volume"`
	VolumeSurge      VolumeSurgeParams      `yaml:"volume_surge"`
	CapitalInflow    CapitalInflowParams    `yaml:"capital_inflow"`
	SupportRebound   SupportReboundParams   `yaml:"support_rebound"`
	SupportRebound60 SupportRebound60Params `yaml:"support_rebound_60"`
	GoldenCross      GoldenCrossParams      `yaml:"golden_cross"`
	GoldenCross7     GoldenCross7Params     `yaml:"golden_cross_7"`
	DoubleBottom     DoubleBottomParams     `yaml:"double_bottom"`
	DoubleBottomNew  DoubleBottomNewParams  `yaml:"double_bottom_new"`
	Breakout         BreakoutParams         `yaml:"breakout"`
	UpwardTrend      UpwardTrendParams      `yaml:"upward_trend"`
	FundsInflow      FundsInflowParams      `yaml:"funds_inflow"`
}

type RisingVolumeParams struct {
	Days            int     `yaml:"days"`
	VolumeTolerance float64 `yaml:"volume_tolerance"`
}

type VolumeSurgeParams struct {
	Days        int     `yaml:"days"`
	RefDays     int     `yaml:"ref_days"`
	Multiplier  float64 `yaml:"multiplier"`
	Consecutive int     `yaml:"consecutive"`
}

type CapitalInflowParams struct {
	Days          int     `yaml:"days"`
	RefDays       int     `yaml:"ref_days"`
	IncreaseRatio float64 `yaml:"increase_ratio"`
	MinThreshold  float64 `yaml:"min_threshold"`
}

type SupportReboundParams struct {
	Days            int     `yaml:"days"`
	MinBars         int     `yaml:"min_bars"`
	LowerBound      float64 `yaml:"lower_bound"`
	UpperBound      float64 `yaml:"upper_bound"`
	VolumeTolerance float64 `yaml:"volume_tolerance"`
}

type SupportRebound60Params struct {
	Days            int     `yaml:"days"`
	Tolerance       float64 `yaml:"tolerance"`
	VolumeTolerance float64 `yaml:"volume_tolerance"`
}

type GoldenCrossParams struct {
	Days int `yaml:"days"`
}

type GoldenCross7Params struct {
	Days           int     `yaml:"days"`
	MaxPriceChange float64 `yaml:"max_price_change"`
}

type DoubleBottomParams struct {
	Lookback      int     `yaml:"lookback"`
	MinBars       int     `yaml:"min_bars"`
	MinGap        int     `yaml:"min_gap"`
	MaxGap        int     `yaml:"max_gap"`
	PriceDiff     float64 `yaml:"price_diff"`
	NecklineRise  float64 `yaml:"neckline_rise"`
	BreakoutRatio float64 `yaml:"breakout_ratio"`
	VolumeWindow  int     `yaml:"volume_window"`
	VolumeRatio   float64 `yaml:"volume_ratio"`
}

type DoubleBottomNewParams struct {
	Window       int     `yaml:"window"`
	MinGap       int     `yaml:"min_gap"`
	MaxGap       int     `yaml:"max_gap"`
	PriceDiff    float64 `yaml:"price_diff"`
	VolumeWindow int     `yaml:"volume_window"`
	VolumeRatio  float64 `yaml:"volume_ratio"`
}

type BreakoutParams struct {
	Consolidation  int     `yaml:"consolidation"`
	Recent         int     `yaml:"recent"`
	RangeThreshold float64 `yaml:"range_threshold"`
	VolumeRatio    float64 `yaml:"volume_ratio"`
}

type UpwardTrendParams struct {
	MinBars   int `yaml:"min_bars"`
	SurgeDays int `yaml:"surge_days"`
}

type FundsInflowParams struct {
	Days          int     `yaml:"days"`
	RefDays       int     `yaml:"ref_days"`
	Ratio         float64 `yaml:"ratio"`
	PositiveShare float64 `yaml:"positive_share"`
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		MACD:             calculator.DefaultMACD,
		LimitUpPct:       9.89,
		RisingVolume:     RisingVolumeParams{Days: 3, VolumeTolerance: 0.95},
		VolumeSurge:      VolumeSurgeParams{Days: 3, RefDays: 7, Multiplier: 3.0, Consecutive: 2},
		CapitalInflow:    CapitalInflowParams{Days: 3, RefDays: 7, IncreaseRatio: 1.2, MinThreshold: 0.9},
		SupportRebound:   SupportReboundParams{Days: 5, MinBars: 10, LowerBound: 1.02, UpperBound: 1.07, VolumeTolerance: 0.9},
		SupportRebound60: SupportRebound60Params{Days: 5, Tolerance: 0.10, VolumeTolerance: 0.9},
		GoldenCross:      GoldenCrossParams{Days: 3},
		GoldenCross7:     GoldenCross7Params{Days: 7, MaxPriceChange: 0.05},
		DoubleBottom: DoubleBottomParams{
			Lookback: 90, MinBars: 30, MinGap: 5, MaxGap: 30,
			PriceDiff: 0.05, NecklineRise: 1.05, BreakoutRatio: 0.9,
			VolumeWindow: 5, VolumeRatio: 1.2,
		},
		DoubleBottomNew: DoubleBottomNewParams{
			Window: 10, MinGap: 5, MaxGap: 30, PriceDiff: 0.05,
			VolumeWindow: 5, VolumeRatio: 1.2,
		},
		Breakout:    BreakoutParams{Consolidation: 30, Recent: 5, RangeThreshold: 0.05, VolumeRatio: 1.2},
		UpwardTrend: UpwardTrendParams{MinBars: 60, SurgeDays: 4},
		FundsInflow: FundsInflowParams{Days: 7, RefDays: 30, Ratio: 1.2, PositiveShare: 0.66},
	}
}

// Validate rejects window sizes the detectors cannot work with.
func (p *Params) Validate() error {
	windows := map[string]int{
		"macd.short":                  p.MACD.Short,
		"macd.long":                   p.MACD.Long,
		"macd.signal":                 p.MACD.Signal,
		"rising_volume.days":          p.RisingVolume.Days,
		"volume_surge.days":           p.VolumeSurge.Days,
		"volume_surge.ref_days":       p.VolumeSurge.RefDays,
		"volume_surge.consecutive":    p.VolumeSurge.Consecutive,
		"capital_inflow.days":         p.CapitalInflow.Days,
		"capital_inflow.ref_days":     p.CapitalInflow.RefDays,
		"support_rebound.days":        p.SupportRebound.Days,
		"support_rebound_60.days":     p.SupportRebound60.Days,
		"golden_cross.days":           p.GoldenCross.Days,
		"golden_cross_7.days":         p.GoldenCross7.Days,
		"double_bottom.lookback":      p.DoubleBottom.Lookback,
		"double_bottom.volume_window": p.DoubleBottom.VolumeWindow,
		"double_bottom_new.window":    p.DoubleBottomNew.Window,
		"breakout.consolidation":      p.Breakout.Consolidation,
		"breakout.recent":             p.Breakout.Recent,
		"upward_trend.surge_days":     p.UpwardTrend.SurgeDays,
		"funds_inflow.days":           p.FundsInflow.Days,
		"funds_inflow.ref_days":       p.FundsInflow.RefDays,
	}
	for name, v := range windows {
		if v <= 0 {
			return fmt.Errorf("detectors.%s must be positive, got %d", name, v)
		}
	}
	if p.MACD.Short >= p.MACD.Long {
		return fmt.Errorf("detectors.macd.short (%d) must be below macd.long (%d)", p.MACD.Short, p.MACD.Long)
	}
	if p.DoubleBottom.MinGap > p.DoubleBottom.MaxGap || p.DoubleBottomNew.MinGap > p.DoubleBottomNew.MaxGap {
		return fmt.Errorf("detectors.double_bottom: min_gap exceeds max_gap")
	}
	return nil
}
