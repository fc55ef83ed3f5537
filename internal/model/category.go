package model

import "fmt"

// Category identifies a technical pattern a series can exhibit.
type Category string

// CatalogVersion changes whenever a category is added, removed or renamed.
const CatalogVersion = 3

const (
	NoMatch                     Category = "NO_MATCH"
	ThreeLimitUp                Category = "THREE_LIMIT_UP"
	ThreeLimitUpOnly            Category = "THREE_LIMIT_UP_ONLY"
	RisingVolumeIncrease        Category = "RISING_VOLUME_INCREASE"
	VolumeSurgeWithPriceRise    Category = "VOLUME_SURGE_WITH_PRICE_RISE"
	CapitalInflow               Category = "CAPITAL_INFLOW"
	SupportLevelRebound         Category = "SUPPORT_LEVEL_REBOUND"
	SupportLevelRebound60       Category = "SUPPORT_LEVEL_REBOUND_60"
	MacdGoldenCross             Category = "MACD_GOLDEN_CROSS"
	MacdGoldenCross7            Category = "MACD_GOLDEN_CROSS_OVER_7"
	DoubleBottom                Category = "DOUBLE_BOTTOM"
	DoubleBottomNew             Category = "DOUBLE_BOTTOM_NEW"
	BreakoutAfterConsolidation  Category = "BREAKOUT_AFTER_CONSOLIDATION"
	IsUpwardTrend               Category = "IS_UPWARD_TREND"
	FundsInflowByVolumeTurnover Category = "FUNDS_INFLOW_BY_VOLUME_TURNOVER"
)

var catalog = []struct {
	c     Category
	label string
}{
	{NoMatch, "不符合条件"},
	{ThreeLimitUp, "连续3天涨停"},
	{ThreeLimitUpOnly, "最近3天涨停"},
	{RisingVolumeIncrease, "连续上涨且成交量放大"},
	{VolumeSurgeWithPriceRise, "最近3天大幅放量伴随股价上涨"},
	{CapitalInflow, "资金流入明显"},
	{SupportLevelRebound, "底部支撑反弹10日线"},
	{SupportLevelRebound60, "底部支撑反弹60日均线"},
	{MacdGoldenCross, "最近3天MACD金叉"},
	{MacdGoldenCross7, "最近7天MACD金叉"},
	{DoubleBottom, "双底结构"},
	{DoubleBottomNew, "双底结构(新)"},
	{BreakoutAfterConsolidation, "横盘后放量上涨"},
	{IsUpwardTrend, "处于上涨初期"},
	{FundsInflowByVolumeTurnover, "成交量换手率放大"},
}

var labels = func() map[Category]string {
	m := make(map[Category]string, len(catalog))
	for _, e := range catalog {
		m[e.c] = e.label
	}
	return m
}()

// Catalog returns every category in classification order, NoMatch first.
func Catalog() []Category {
	out := make([]Category, len(catalog))
	for i, e := range catalog {
		out[i] = e.c
	}
	return out
}

// Label returns the display label, which also names the category's output file.
func (c Category) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c belongs to the catalog.
func (c Category) Valid() bool {
	_, ok := labels[c]
	return ok
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts either the code or the display label.
func ParseCategory(s string) (Category, error) {
	if c := Category(s); c.Valid() {
		return c, nil
	}
	for _, e := range catalog {
		if e.label == s {
			return e.c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
