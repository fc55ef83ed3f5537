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
	"strconv"

	"PatternSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a self-hosted bar service:
//
//	GET {base}/api/v1/bars?symbol=000001&period=daily&limit=200
//
// answering a JSON array of restBar.
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape. Optional fields may be omitted.
type restBar struct {
	Date         string   `json:"date"`
	Open         float64  `json:"open"`
	High         float64  `json:"high"`
	Low          float64  `json:"low"`
	Close        float64  `json:"close"`
	Volume       float64  `json:"vol"`
	Amount       *float64 `json:"amount"`
	PctChg       *float64 `json:"pct_chg"`
	TurnoverRate *float64 `json:"turnover_rate"`
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

func (f *RESTFetcher) FetchSeries(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error) {
	bars, err := f.fetchBars(ctx, symbol, period, r)
	if err == nil {
		return bars, nil
	}
	var fallback []model.Bar
	var fbErr error
	switch period {
	case PeriodWeekly:
		// Services that only keep daily bars get aggregated here.
		daily := r
		if daily.Limit > 0 {
			daily.Limit *= 5
		}
		if fallback, fbErr = f.fetchBars(ctx, symbol, PeriodDaily, daily); fbErr == nil {
			return trimToLimit(AggregateWeekly(fallback), r.Limit), nil
		}
	case Period120Min:
		hourly := r
		if hourly.Limit > 0 {
			hourly.Limit *= 2
		}
		if fallback, fbErr = f.fetchBars(ctx, symbol, Period60Min, hourly); fbErr == nil {
			return trimToLimit(MergeBars(fallback, 2), r.Limit), nil
		}
	default:
		return nil, err
	}
	return nil, fmt.Errorf("%s fetch failed: %w; fallback also failed: %w", period, err, fbErr)
}

func (f *RESTFetcher) fetchBars(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("period", string(period))
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}
	if !r.Start.IsZero() {
		q.Set("start", r.Start.Format("2006-01-02"))
	}
	if !r.End.IsZero() {
		q.Set("end", r.End.Format("2006-01-02"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"/api/v1/bars?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode, string(body))
	}
	var raw []restBar
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoData)
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, rb := range raw {
		date, err := parseKlineTime(rb.Date)
		if err != nil {
			return nil, fmt.Errorf("bar date %q: %w", rb.Date, err)
		}
		bars = append(bars, model.Bar{
			Date:         date,
			Open:         rb.Open,
			High:         rb.High,
			Low:          rb.Low,
			Close:        rb.Close,
			Volume:       rb.Volume,
			Amount:       orNaN(rb.Amount),
			PctChg:       orNaN(rb.PctChg),
			TurnoverRate: orNaN(rb.TurnoverRate),
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	model.FillPctChg(bars)
	return trimToLimit(bars, r.Limit), nil
}

