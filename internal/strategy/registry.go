package strategy

import (
	"fmt"

	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/model"
)

// DetectFunc tests one pattern against precomputed indicators.
type DetectFunc func(ind *calculator.Indicators, p *Params) (bool, int)

// Detector binds a pattern test to the category it reports.
type Detector struct {
	Category model.Category
	Detect   DetectFunc
	// Default marks detectors active when no enabled list is configured.
	Default bool
}

// registry is in classification order, matching model.Catalog.
var registry = []Detector{
	{model.ThreeLimitUp, ThreeLimitUp, true},
	{model.ThreeLimitUpOnly, ThreeLimitUpOnly, true},
	{model.RisingVolumeIncrease, RisingWithVolumeIncrease, true},
	{model.VolumeSurgeWithPriceRise, VolumeSurgeWithPriceRise, true},
	{model.CapitalInflow, CapitalInflow, true},
	{model.SupportLevelRebound, SupportLevelRebound, true},
	{model.SupportLevelRebound60, SupportLevelRebound60, true},
	{model.MacdGoldenCross, MacdGoldenCross, true},
	{model.MacdGoldenCross7, MacdGoldenCross7, false},
	{model.DoubleBottom, DoubleBottom, true},
	{model.DoubleBottomNew, DoubleBottomNew, true},
	{model.BreakoutAfterConsolidation, BreakoutAfterConsolidation, true},
	{model.IsUpwardTrend, IsUpwardTrend, true},
	{model.FundsInflowByVolumeTurnover, FundsInflowByVolumeTurnover, false},
}

// Detectors returns every registered detector in classification order.
func Detectors() []Detector {
	out := make([]Detector, len(registry))
	copy(out, registry)
	return out
}

// DefaultEnabled lists the categories active out of the box.
func DefaultEnabled() []model.Category {
	var out []model.Category
	for _, d := range registry {
		if d.Default {
			out = append(out, d.Category)
		}
	}
	return out
}

// selectDetectors keeps registry order regardless of the order of enabled.
func selectDetectors(enabled []model.Category) ([]Detector, error) {
	want := make(map[model.Category]bool, len(enabled))
	for _, c := range enabled {
		if c == model.NoMatch {
			return nil, fmt.Errorf("%s is the no-match sentinel and cannot be enabled", c)
		}
		want[c] = true
	}
	var out []Detector
	for _, d := range registry {
		if want[d.Category] {
			out = append(out, d)
			delete(want, d.Category)
		}
	}
	for c := range want {
		return nil, fmt.Errorf("no detector for category %q", c)
	}
	return out, nil
}
