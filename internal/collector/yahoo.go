package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"PatternSentinel/internal/model"
)

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
// Yahoo reports neither turnover nor traded amount; Amount is approximated
// as close × volume and TurnoverRate is left undefined.
type YahooFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

var yahooInterval = map[Period]string{
	Period1Min:   "1m",
	Period5Min:   "5m",
	Period15Min:  "15m",
	Period30Min:  "30m",
	Period60Min:  "60m",
	PeriodDaily:  "1d",
	PeriodWeekly: "1wk",
}

// YahooTicker maps A-share codes to Yahoo tickers: Shanghai gets ".SS",
// Shenzhen ".SZ". Anything else is passed through.
func YahooTicker(symbol string) string {
	secid, err := SecID(symbol)
	if err != nil {
		return symbol
	}
	if strings.HasPrefix(secid, "1.") {
		return secid[2:] + ".SS"
	}
	return secid[2:] + ".SZ"
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vs []*float64, i int) float64 {
	if i >= len(vs) || vs[i] == nil {
		return math.NaN()
	}
	return *vs[i]
}

// yahooRange picks the smallest chart range covering limit bars.
func yahooRange(period Period, limit int) string {
	switch period {
	case Period1Min:
		return "5d"
	case Period5Min, Period15Min, Period30Min, Period60Min:
		return "1mo"
	case PeriodWeekly:
		if limit > 0 && limit <= 52 {
			return "1y"
		}
		return "5y"
	}
	switch {
	case limit <= 0:
		return "2y"
	case limit <= 20:
		return "1mo"
	case limit <= 60:
		return "3mo"
	case limit <= 120:
		return "6mo"
	case limit <= 240:
		return "1y"
	}
	return "2y"
}

func (f *YahooFetcher) FetchSeries(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error) {
	if period == Period120Min {
		hourly := r
		if hourly.Limit > 0 {
			hourly.Limit *= 2
		}
		bars, err := f.FetchSeries(ctx, symbol, Period60Min, hourly)
		if err != nil {
			return nil, err
		}
		return trimToLimit(MergeBars(bars, 2), r.Limit), nil
	}
	interval, ok := yahooInterval[period]
	if !ok {
		return nil, fmt.Errorf("yahoo %s: %w", period, ErrUnsupportedPeriod)
	}

	q := url.Values{}
	q.Set("interval", interval)
	if !r.Start.IsZero() {
		end := r.End
		if end.IsZero() {
			end = time.Now()
		}
		q.Set("period1", fmt.Sprint(r.Start.Unix()))
		q.Set("period2", fmt.Sprint(end.Unix()))
	} else {
		q.Set("range", yahooRange(period, r.Limit))
	}
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(YahooTicker(symbol)), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if math.IsNaN(c) {
			continue // holidays and suspended sessions come back as nulls
		}
		vol := at(quote.Volume, i)
		bars = append(bars, model.Bar{
			Date:         time.Unix(ts, 0).In(chinaTZ),
			Open:         at(quote.Open, i),
			High:         at(quote.High, i),
			Low:          at(quote.Low, i),
			Close:        c,
			Volume:       vol,
			Amount:       c * vol,
			PctChg:       math.NaN(),
			TurnoverRate: math.NaN(),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	model.FillPctChg(bars)
	return trimToLimit(bars, r.Limit), nil
}
