package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"PatternSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without an entry in Data get a generated random walk seeded by
// the symbol, so repeated scans see the same history.
type MockFetcher struct {
	Price float64
	Data  map[string][]model.Bar
	Errs  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(ctx context.Context, symbol string, _ Period, r Range) ([]model.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err, ok := m.Errs[symbol]; ok {
		return nil, fmt.Errorf("mock %s: %w", symbol, err)
	}
	if bars, ok := m.Data[symbol]; ok {
		out := make([]model.Bar, len(bars))
		copy(out, bars)
		return trimToLimit(out, r.Limit), nil
	}
	count := r.Limit
	if count <= 0 {
		count = 200
	}
	return generateMockBars(symbol, m.Price, count), nil
}

// Calls reports how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func generateMockBars(symbol string, basePrice float64, count int) []model.Bar {
	if basePrice <= 0 {
		basePrice = 10
	}
	h := fnv.New64a()
	h.Write([]byte(symbol))
	seed := h.Sum64()

	end := time.Date(2025, 6, 30, 0, 0, 0, 0, chinaTZ)
	bars := make([]model.Bar, count)
	p := basePrice
	for i := 0; i < count; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		step := (float64(seed>>33)/float64(1<<31) - 0.5) * 0.04 // ±2%
		prev := p
		p *= 1 + step
		vol := 1e6 * (1 + float64((seed>>20)%100)/100)
		bars[i] = model.Bar{
			Date:         end.AddDate(0, 0, -(count - 1 - i)),
			Open:         prev,
			High:         max(prev, p) * 1.005,
			Low:          min(prev, p) * 0.995,
			Close:        p,
			Volume:       vol,
			Amount:       vol * p,
			PctChg:       step * 100,
			TurnoverRate: vol / 1e8 * 100,
		}
	}
	return bars
}
