package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"PatternSentinel/internal/model"
)

var (
	// ErrNoData means the source answered but had no bars for the symbol.
	ErrNoData = errors.New("no data")
	// ErrUnsupportedPeriod means the source cannot serve the requested period.
	ErrUnsupportedPeriod = errors.New("unsupported period")
)

// Period is a bar interval.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
	Period1Min   Period = "1min"
	Period5Min   Period = "5min"
	Period15Min  Period = "15min"
	Period30Min  Period = "30min"
	Period60Min  Period = "60min"
	Period120Min Period = "120min"
)

// ParsePeriod accepts the names above, case-insensitively. Empty means daily.
func ParsePeriod(s string) (Period, error) {
	p := Period(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return PeriodDaily, nil
	case PeriodDaily, PeriodWeekly, Period1Min, Period5Min, Period15Min, Period30Min, Period60Min, Period120Min:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPeriod, s)
}

// Range bounds a request. Zero Start/End leave the bound to the source;
// Limit > 0 keeps only the most recent Limit bars.
type Range struct {
	Start time.Time
	End   time.Time
	Limit int
}

// LastDays is the common "most recent n bars" range.
func LastDays(n int) Range { return Range{Limit: n} }

// Fetcher retrieves ascending bar history for a security.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error)
	Name() string
}

func trimToLimit(bars []model.Bar, limit int) []model.Bar {
	if limit > 0 && len(bars) > limit {
		return bars[len(bars)-limit:]
	}
	return bars
}
