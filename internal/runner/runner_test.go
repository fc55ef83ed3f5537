package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/logx"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
	"PatternSentinel/internal/recorder"
	"PatternSentinel/internal/strategy"
	"PatternSentinel/internal/universe"
)

func quietBars(n int) []model.Bar {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := range bars {
		bars[i] = model.Bar{
			Date: d.AddDate(0, 0, i), Open: 10, High: 10, Low: 10, Close: 10,
			Volume: 1000, Amount: 10000, PctChg: 1, TurnoverRate: 1,
		}
	}
	return bars
}

func limitUpBars(n int) []model.Bar {
	bars := quietBars(n)
	for i := n - 3; i < n; i++ {
		bars[i].PctChg = 10
	}
	return bars
}

type memRecorder struct {
	mu   sync.Mutex
	runs []*model.ScanSummary
	rows []output.Row
}

func (m *memRecorder) RecordRun(sum *model.ScanSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, sum)
	return nil
}

func (m *memRecorder) RecordMatches(rows []output.Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memRecorder) RecentRuns(int) ([]recorder.RunRecord, error) { return nil, nil }
func (m *memRecorder) Close() error                                 { return nil }

func testUniverse() []universe.Security {
	return []universe.Security{
		{Code: "600001", Name: "连板股份"},
		{Code: "000002", Name: "平稳科技"},
		{Code: "000003", Name: "*ST退市"},
		{Code: "688001", Name: "科创一号"},
		{Code: "000004", Name: "断线股份"},
		{Code: "000005", Name: "乱序股份"},
		{Code: "000006", Name: "也连板"},
	}
}

func testFetcher() *collector.MockFetcher {
	dup := quietBars(30)
	dup[10].Date = dup[9].Date
	return &collector.MockFetcher{
		Data: map[string][]model.Bar{
			"600001": limitUpBars(40),
			"000002": quietBars(40),
			"000005": dup,
			"000006": limitUpBars(40),
		},
		Errs: map[string]error{"000004": errors.New("connection reset")},
	}
}

func testClassifier(t *testing.T) *strategy.Classifier {
	t.Helper()
	c, err := strategy.NewClassifier(strategy.WithEnabled(model.ThreeLimitUp, model.DoubleBottom))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRunner_Run(t *testing.T) {
	dir := t.TempDir()
	f := testFetcher()
	rec := &memRecorder{}
	reg := prometheus.NewRegistry()

	r := NewRunner(f, testClassifier(t), rec, Options{
		Concurrency:  4,
		Lookback:     40,
		OutputDir:    filepath.Join(dir, "out"),
		ExportFormat: "csv",
		ExportDir:    filepath.Join(dir, "export"),
	}, nil)
	r.Metrics = metrics.NewMetrics(reg)
	r.Health = metrics.NewHealthStatus()
	r.Loggers = logx.NewSymbolLoggers(filepath.Join(dir, "logs"), "debug", nil)
	defer r.Loggers.Close()
	r.NewRunID = func() string { return "run-0001-abcdef" }

	sum, err := r.Run(context.Background(), testUniverse())
	if err != nil {
		t.Fatal(err)
	}

	want := map[model.ScanStatus]int{
		model.StatusMatched:    2,
		model.StatusNoMatch:    1,
		model.StatusExcluded:   2,
		model.StatusFetchError: 1,
		model.StatusInvalid:    1,
	}
	if !reflect.DeepEqual(sum.Counts, want) {
		t.Errorf("counts = %v, want %v", sum.Counts, want)
	}
	hits := sum.Hits[model.ThreeLimitUp]
	if len(hits) != 2 || hits[0].Code != "000006" || hits[1].Code != "600001" {
		t.Errorf("hits = %v", hits)
	}

	// Excluded securities are never fetched.
	if f.Calls("000003") != 0 || f.Calls("688001") != 0 {
		t.Error("excluded security was fetched")
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", model.ThreeLimitUp.Label()+".txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "600001 连板股份\n") || !strings.Contains(string(data), "000006 也连板\n") {
		t.Errorf("category file = %q", data)
	}
	if _, err := os.Stat(filepath.Join(dir, "out", model.DoubleBottom.Label()+".txt")); !os.IsNotExist(err) {
		t.Error("empty category file left behind")
	}

	if sum.ExportPath == "" || filepath.Ext(sum.ExportPath) != ".csv" {
		t.Errorf("export path = %q", sum.ExportPath)
	}
	if len(rec.runs) != 1 || len(rec.rows) != 2 || rec.rows[0].Code != "000006" {
		t.Errorf("recorded runs=%d rows=%+v", len(rec.runs), rec.rows)
	}

	if got := testutil.ToFloat64(r.Metrics.SymbolsTotal.WithLabelValues("excluded")); got != 2 {
		t.Errorf("excluded metric = %v", got)
	}
	if got := testutil.ToFloat64(r.Metrics.MatchesTotal.WithLabelValues(string(model.ThreeLimitUp))); got != 2 {
		t.Errorf("matches metric = %v", got)
	}

	if _, err := os.Stat(filepath.Join(dir, "logs", "000004_断线股份.log")); err != nil {
		t.Errorf("per-symbol log missing: %v", err)
	}
}

func TestRunner_ConcurrencyDeterministic(t *testing.T) {
	var sums []*model.ScanSummary
	for _, n := range []int{1, 8} {
		r := NewRunner(testFetcher(), testClassifier(t), nil, Options{Concurrency: n, Lookback: 40}, nil)
		sum, err := r.Run(context.Background(), testUniverse())
		if err != nil {
			t.Fatal(err)
		}
		sums = append(sums, sum)
	}
	if !reflect.DeepEqual(sums[0].Counts, sums[1].Counts) || !reflect.DeepEqual(sums[0].Hits, sums[1].Hits) {
		t.Errorf("results differ by concurrency:\n%v\n%v", sums[0], sums[1])
	}
}

func TestRunner_Canceled(t *testing.T) {
	f := testFetcher()
	r := NewRunner(f, testClassifier(t), nil, Options{Concurrency: 2, Delay: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := r.Run(ctx, testUniverse())
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Canceled {
		t.Error("summary not marked canceled")
	}
	if f.Calls("600001") != 0 {
		t.Error("fetched after cancel")
	}
	if sum.Counts[model.StatusSkipped] != sum.Total {
		t.Errorf("skipped = %d, want all %d", sum.Counts[model.StatusSkipped], sum.Total)
	}
}

func TestRunner_PacingDeadlineSkips(t *testing.T) {
	// The one-hour pacing cannot be met before the deadline, so every fetch
	// after the burst token is skipped instead of silently dropped.
	r := NewRunner(testFetcher(), testClassifier(t), nil, Options{Concurrency: 1, Delay: time.Hour}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sum, err := r.Run(ctx, testUniverse())
	if err != nil {
		t.Fatal(err)
	}
	want := map[model.ScanStatus]int{
		model.StatusMatched:  1,
		model.StatusExcluded: 2,
		model.StatusSkipped:  4,
	}
	if !reflect.DeepEqual(sum.Counts, want) {
		t.Errorf("counts = %v, want %v", sum.Counts, want)
	}
	total := 0
	for _, n := range sum.Counts {
		total += n
	}
	if total != sum.Total {
		t.Errorf("counts add up to %d, total %d", total, sum.Total)
	}
}

func TestRunner_Pacing(t *testing.T) {
	r := NewRunner(testFetcher(), testClassifier(t), nil, Options{Concurrency: 4, Delay: 20 * time.Millisecond}, nil)
	secs := []universe.Security{{Code: "600001", Name: "a"}, {Code: "000002", Name: "b"}, {Code: "000006", Name: "c"}}

	start := time.Now()
	if _, err := r.Run(context.Background(), secs); err != nil {
		t.Fatal(err)
	}
	// The first fetch uses the burst token, the next two wait one delay each.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("3 fetches took %v, want paced by delay", elapsed)
	}
}

func TestRunner_Check(t *testing.T) {
	r := NewRunner(testFetcher(), testClassifier(t), nil, Options{Lookback: 40}, nil)
	s, res, err := r.Check(context.Background(), universe.Security{Code: "600001", Name: "连板股份"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 40 || !res.Has(model.ThreeLimitUp) {
		t.Errorf("check = %d bars, %v", s.Len(), res.Categories())
	}
	if _, _, err := r.Check(context.Background(), universe.Security{Code: "000004"}); err == nil {
		t.Error("expected fetch error")
	}
}
