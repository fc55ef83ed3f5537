package collector

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"PatternSentinel/internal/model"
)

const eastMoneyKlineURL = "http://push2his.eastmoney.com/api/qt/stock/kline/get"

// EastMoneyFetcher implements Fetcher using the eastmoney push2his kline API.
// Prices are forward-adjusted (fqt=1).
type EastMoneyFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewEastMoneyFetcher creates a fetcher with optional proxy support. An
// empty baseURL uses the public endpoint.
func NewEastMoneyFetcher(baseURL, proxyURL string) *EastMoneyFetcher {
	if baseURL == "" {
		baseURL = eastMoneyKlineURL
	}
	return &EastMoneyFetcher{
		BaseURL: baseURL,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *EastMoneyFetcher) Name() string { return "eastmoney" }

// klt codes understood by the kline endpoint.
var eastMoneyKlt = map[Period]string{
	Period1Min:   "1",
	Period5Min:   "5",
	Period15Min:  "15",
	Period30Min:  "30",
	Period60Min:  "60",
	PeriodDaily:  "101",
	PeriodWeekly: "102",
}

// SecID maps a code to eastmoney's "<market>.<code>" form: 1 for Shanghai,
// 0 for Shenzhen. Codes already in that form pass through.
func SecID(symbol string) (string, error) {
	s := strings.TrimSpace(symbol)
	if i := strings.IndexByte(s, '.'); i == 1 && (s[0] == '0' || s[0] == '1') {
		return s, nil
	}
	code := model.BareCode(s)
	switch {
	case hasAnyPrefix(code, "60", "68", "51", "58", "50", "56"):
		return "1." + code, nil
	case hasAnyPrefix(code, "00", "30", "15", "16", "12", "39"):
		return "0." + code, nil
	}
	return "", fmt.Errorf("cannot resolve market for %q", symbol)
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

func (f *EastMoneyFetcher) FetchSeries(ctx context.Context, symbol string, period Period, r Range) ([]model.Bar, error) {
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

	klt, ok := eastMoneyKlt[period]
	if !ok {
		return nil, fmt.Errorf("eastmoney %s: %w", period, ErrUnsupportedPeriod)
	}
	secid, err := SecID(symbol)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("secid", secid)
	q.Set("fields1", "f1,f2,f3,f4,f5,f6")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61")
	q.Set("klt", klt)
	q.Set("fqt", "1")
	q.Set("beg", "20200101")
	q.Set("end", "20500101")
	if !r.Start.IsZero() {
		q.Set("beg", r.Start.Format("20060102"))
	}
	if !r.End.IsZero() {
		q.Set("end", r.End.Format("20060102"))
	}
	if r.Limit > 0 {
		q.Set("lmt", strconv.Itoa(r.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eastmoney fetch %s: %w", symbol, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("eastmoney: status %d, body: %s", resp.StatusCode, string(body))
	}

	bars, err := parseEastMoneyKlines(body)
	if err != nil {
		return nil, fmt.Errorf("eastmoney %s: %w", symbol, err)
	}
	return trimToLimit(bars, r.Limit), nil
}

// parseEastMoneyKlines reads data.klines, each entry a comma-joined row:
// date,open,close,high,low,vol,amount,amplitude,pct_chg,change,turnover.
func parseEastMoneyKlines(body []byte) ([]model.Bar, error) {
	klines := gjson.GetBytes(body, "data.klines")
	if !klines.Exists() || !klines.IsArray() || len(klines.Array()) == 0 {
		return nil, ErrNoData
	}
	arr := klines.Array()
	bars := make([]model.Bar, 0, len(arr))
	for _, v := range arr {
		parts := strings.Split(strings.TrimSpace(v.String()), ",")
		if len(parts) < 7 {
			continue
		}
		date, err := parseKlineTime(parts[0])
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			Date:         date,
			Open:         field(parts, 1),
			Close:        field(parts, 2),
			High:         field(parts, 3),
			Low:          field(parts, 4),
			Volume:       field(parts, 5),
			Amount:       field(parts, 6),
			PctChg:       field(parts, 8),
			TurnoverRate: field(parts, 10),
		})
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	model.FillPctChg(bars)
	return bars, nil
}

func parseKlineTime(s string) (time.Time, error) {
	if len(s) > len("2006-01-02") {
		return time.ParseInLocation("2006-01-02 15:04", s, chinaTZ)
	}
	return time.ParseInLocation("2006-01-02", s, chinaTZ)
}

// field parses parts[i], NaN when absent or malformed.
func field(parts []string, i int) float64 {
	if i >= len(parts) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

var chinaTZ = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Shanghai"); err == nil {
		return loc
	}
	return time.FixedZone("CST", 8*3600)
}()
