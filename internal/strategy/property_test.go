package strategy

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"PatternSentinel/internal/model"
)

func randomSeries(closes, vols []float64) *model.Series {
	n := len(closes)
	if len(vols) < n {
		n = len(vols)
	}
	return &model.Series{Symbol: "000001", Name: "平安银行", Bars: closesToBars(closes[:n], vols[:n])}
}

func TestProperty_ClassifyIsPure(t *testing.T) {
	c, _ := NewClassifier(WithEnabled(model.Catalog()[1:]...))
	properties := gopter.NewProperties(nil)

	properties.Property("same series, same result, input untouched", prop.ForAll(
		func(closes, vols []float64) bool {
			s := randomSeries(closes, vols)
			before := append([]model.Bar(nil), s.Bars...)
			r1 := c.Classify(s)
			r2 := c.Classify(s)
			return reflect.DeepEqual(r1, r2) && reflect.DeepEqual(before, s.Bars)
		},
		gen.SliceOfN(120, gen.Float64Range(1, 100)),
		gen.SliceOfN(120, gen.Float64Range(100, 1e6)),
	))

	properties.TestingRun(t)
}

func TestProperty_SentinelIsExclusive(t *testing.T) {
	c, _ := NewClassifier(WithEnabled(model.Catalog()[1:]...))
	properties := gopter.NewProperties(nil)

	properties.Property("NO_MATCH appears alone or not at all", prop.ForAll(
		func(closes, vols []float64) bool {
			cats := c.Classify(randomSeries(closes, vols)).Categories()
			for i, cat := range cats {
				if cat == model.NoMatch && len(cats) != 1 {
					return false
				}
				if i > 0 && registryIndex(cats[i-1]) >= registryIndex(cat) {
					return false
				}
			}
			return len(cats) > 0
		},
		gen.SliceOf(gen.Float64Range(1, 100)),
		gen.SliceOf(gen.Float64Range(100, 1e6)),
	))

	properties.TestingRun(t)
}

// minBars is the shortest history each detector can match on with
// DefaultParams.
var minBars = map[model.Category]int{
	model.ThreeLimitUp:                3,
	model.ThreeLimitUpOnly:            6,
	model.RisingVolumeIncrease:        3,
	model.VolumeSurgeWithPriceRise:    10,
	model.CapitalInflow:               10,
	model.SupportLevelRebound:         10,
	model.SupportLevelRebound60:       60,
	model.MacdGoldenCross:             29,
	model.MacdGoldenCross7:            33,
	model.DoubleBottom:                30,
	model.DoubleBottomNew:             30,
	model.BreakoutAfterConsolidation:  35,
	model.IsUpwardTrend:               60,
	model.FundsInflowByVolumeTurnover: 37,
}

func TestMinBarsCoversRegistry(t *testing.T) {
	for _, d := range registry {
		if _, ok := minBars[d.Category]; !ok {
			t.Errorf("no minimum history listed for %s", d.Category)
		}
	}
}

func TestProperty_ShortSeriesNeverMatch(t *testing.T) {
	p := DefaultParams()
	properties := gopter.NewProperties(nil)

	properties.Property("every detector is false below its own minimum", prop.ForAll(
		func(closes, vols []float64) bool {
			for n := 0; n < len(closes); n++ {
				ind := indicatorsOf(closesToBars(closes[:n], vols[:n]))
				for _, d := range registry {
					if n >= minBars[d.Category] {
						continue
					}
					if ok, _ := d.Detect(ind, &p); ok {
						t.Logf("%s matched on %d bars", d.Category, n)
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(60, gen.Float64Range(1, 100)),
		gen.SliceOfN(60, gen.Float64Range(100, 1e6)),
	))

	properties.TestingRun(t)
}

func registryIndex(c model.Category) int {
	for i, d := range registry {
		if d.Category == c {
			return i
		}
	}
	return -1
}
