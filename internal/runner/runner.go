package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/logx"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
	"PatternSentinel/internal/recorder"
	"PatternSentinel/internal/strategy"
	"PatternSentinel/internal/universe"
)

// Options tunes a scan.
type Options struct {
	Period       collector.Period
	Lookback     int           // bars requested per security
	Concurrency  int           // parallel fetch+classify workers
	Delay        time.Duration // minimum spacing between upstream fetches
	OutputDir    string        // per-category text files; empty disables them
	AppendOutput bool          // keep earlier runs' lines in the category files
	ExportFormat string        // csv, json or parquet; empty disables export
	ExportDir    string
}

// Runner scans a universe: it filters excluded securities, fetches each
// remaining one at a paced rate, classifies it and buckets the result.
type Runner struct {
	Fetcher    collector.Fetcher
	Classifier *strategy.Classifier
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
	Health     *metrics.HealthStatus
	Loggers    *logx.SymbolLoggers
	Logger     *slog.Logger
	Opts       Options

	// NewRunID generates scan ids; uuid by default.
	NewRunID func() string
	now      func() time.Time
}

// NewRunner creates a Runner. rec may be nil.
func NewRunner(f collector.Fetcher, c *strategy.Classifier, rec recorder.Recorder, opts Options, logger *slog.Logger) *Runner {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Period == "" {
		opts.Period = collector.PeriodDaily
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 250
	}
	return &Runner{
		Fetcher:    f,
		Classifier: c,
		Recorder:   rec,
		Logger:     logger,
		Opts:       opts,
		NewRunID:   uuid.NewString,
		now:        time.Now,
	}
}

// scan is the mutable state of one Run.
type scan struct {
	sum   *model.ScanSummary
	sink  *output.CategoryFiles
	mu    sync.Mutex
	rows  []output.Row
	limit *rate.Limiter
}

func (sc *scan) record(status model.ScanStatus, r model.Result, rows []output.Row) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sum.Counts[status]++
	for _, m := range r.Matches {
		sc.sum.Hits[m.Category] = append(sc.sum.Hits[m.Category], model.Hit{Code: r.Symbol, Name: r.Name})
	}
	sc.rows = append(sc.rows, rows...)
}

// Run scans secs and returns the summary. Per-security failures are
// counted, never fatal. A canceled ctx stops the scan early and marks the
// summary canceled; the partial results are still written.
func (r *Runner) Run(ctx context.Context, secs []universe.Security) (*model.ScanSummary, error) {
	runID := r.NewRunID()
	sum := model.NewScanSummary(runID, r.now())
	sum.Source = r.Fetcher.Name()
	sum.Period = string(r.Opts.Period)
	sum.Total = len(secs)

	sc := &scan{sum: sum}
	if r.Opts.Delay > 0 {
		sc.limit = rate.NewLimiter(rate.Every(r.Opts.Delay), 1)
	}
	if r.Opts.OutputDir != "" {
		sink, err := output.NewCategoryFiles(r.Opts.OutputDir, r.Classifier.Enabled(), r.Opts.AppendOutput)
		if err != nil {
			return nil, err
		}
		sc.sink = sink
	}
	if r.Health != nil {
		r.Health.ScanStarted(runID)
	}

	r.Logger.Info("scan started", "run_id", runID, "securities", len(secs),
		"source", sum.Source, "period", sum.Period, "concurrency", r.Opts.Concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Opts.Concurrency)
	dispatched := 0
	for _, sec := range secs {
		if gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error { return r.process(gctx, sc, sec) })
	}
	runErr := g.Wait()
	if n := len(secs) - dispatched; n > 0 {
		sum.Counts[model.StatusSkipped] += n
	}

	sum.FinishedAt = r.now()
	sum.Canceled = ctx.Err() != nil
	sum.SortHits()
	sortRows(sc.rows)

	if sc.sink != nil {
		if err := sc.sink.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close category files: %w", err)
		}
	}
	if runErr == nil || errors.Is(runErr, context.Canceled) {
		r.export(sc)
	}
	r.persist(sc)
	r.observe(sum, runErr)

	r.Logger.Info("scan finished", "run_id", runID, "duration", sum.Duration().Round(time.Millisecond),
		"matched", sum.Counts[model.StatusMatched], "no_match", sum.Counts[model.StatusNoMatch],
		"excluded", sum.Counts[model.StatusExcluded], "fetch_error", sum.Counts[model.StatusFetchError],
		"invalid", sum.Counts[model.StatusInvalid], "skipped", sum.Counts[model.StatusSkipped],
		"canceled", sum.Canceled)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return sum, runErr
	}
	return sum, nil
}

// process handles one security. Only output failures are returned.
func (r *Runner) process(ctx context.Context, sc *scan, sec universe.Security) error {
	log := r.symbolLogger(sec)

	if r.Classifier.Exclusion().Excludes(sec.Code, sec.Name) {
		log.Debug("excluded")
		sc.record(model.StatusExcluded, model.Result{Symbol: sec.Code, Name: sec.Name, Excluded: true}, nil)
		return nil
	}

	if sc.limit != nil {
		if err := sc.limit.Wait(ctx); err != nil {
			sc.record(model.StatusSkipped, model.Result{Symbol: sec.Code, Name: sec.Name}, nil)
			return nil
		}
	}

	series, err := r.fetch(ctx, sec)
	if err != nil {
		if ctx.Err() != nil {
			sc.record(model.StatusSkipped, model.Result{Symbol: sec.Code, Name: sec.Name}, nil)
			return nil
		}
		log.Warn("fetch failed", "err", err)
		sc.record(model.StatusFetchError, model.Result{Symbol: sec.Code, Name: sec.Name}, nil)
		return nil
	}
	if err := series.Validate(); err != nil {
		log.Warn("invalid series", "err", err)
		sc.record(model.StatusInvalid, model.Result{Symbol: sec.Code, Name: sec.Name}, nil)
		return nil
	}

	start := time.Now()
	res := r.Classifier.Classify(series)
	if r.Metrics != nil {
		r.Metrics.ClassifyDur.Observe(time.Since(start).Seconds())
	}

	status := model.StatusMatched
	switch {
	case res.Excluded:
		status = model.StatusExcluded
	case res.IsNoMatch():
		status = model.StatusNoMatch
	}
	log.Info("classified", "bars", series.Len(), "categories", res.Categories())

	if sc.sink != nil {
		if err := sc.sink.Write(sec.Code, sec.Name, res); err != nil {
			return err
		}
	}
	sc.record(status, res, output.RowsFor(sc.sum.RunID, series, res))
	return nil
}

func (r *Runner) fetch(ctx context.Context, sec universe.Security) (*model.Series, error) {
	start := time.Now()
	bars, err := r.Fetcher.FetchSeries(ctx, sec.Code, r.Opts.Period, collector.LastDays(r.Opts.Lookback))
	if r.Metrics != nil {
		r.Metrics.FetchDur.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sec.Code, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch %s: %w", sec.Code, collector.ErrNoData)
	}
	return model.NewSeries(sec.Code, sec.Name, bars), nil
}

// Check fetches and classifies a single security, bypassing the output
// files. Exclusion still applies through the classifier.
func (r *Runner) Check(ctx context.Context, sec universe.Security) (*model.Series, model.Result, error) {
	series, err := r.fetch(ctx, sec)
	if err != nil {
		return nil, model.Result{Symbol: sec.Code, Name: sec.Name}, err
	}
	if err := series.Validate(); err != nil {
		return series, model.Result{Symbol: sec.Code, Name: sec.Name}, err
	}
	return series, r.Classifier.Classify(series), nil
}

func (r *Runner) symbolLogger(sec universe.Security) *slog.Logger {
	if r.Loggers != nil {
		return r.Loggers.For(sec.Code, sec.Name)
	}
	return r.Logger.With("symbol", sec.Code, "name", sec.Name)
}

func (r *Runner) export(sc *scan) {
	if r.Opts.ExportFormat == "" {
		return
	}
	exp, err := output.NewExporter(r.Opts.ExportFormat)
	if err != nil {
		r.Logger.Error("export skipped", "err", err)
		return
	}
	name := fmt.Sprintf("scan_%s_%s", sc.sum.StartedAt.Format("20060102_150405"), shortID(sc.sum.RunID))
	path, err := output.ExportFile(exp, sc.rows, filepath.Join(r.Opts.ExportDir, name))
	if err != nil {
		r.Logger.Error("export failed", "err", err)
		return
	}
	sc.sum.ExportPath = path
	r.Logger.Info("scan exported", "path", path, "rows", len(sc.rows))
}

func (r *Runner) persist(sc *scan) {
	if err := r.Recorder.RecordRun(sc.sum); err != nil {
		r.Logger.Error("record run", "err", err)
	}
	if err := r.Recorder.RecordMatches(sc.rows); err != nil {
		r.Logger.Error("record matches", "err", err)
	}
}

func (r *Runner) observe(sum *model.ScanSummary, runErr error) {
	if r.Metrics != nil {
		r.Metrics.ScansTotal.Inc()
		r.Metrics.ScanDur.Observe(sum.Duration().Seconds())
		r.Metrics.LastScanUnix.Set(float64(sum.FinishedAt.Unix()))
		r.Metrics.LastScanSymbol.Set(float64(sum.Total))
		for status, n := range sum.Counts {
			r.Metrics.SymbolsTotal.WithLabelValues(string(status)).Add(float64(n))
		}
		for c, hits := range sum.Hits {
			r.Metrics.MatchesTotal.WithLabelValues(string(c)).Add(float64(len(hits)))
		}
	}
	if r.Health != nil {
		r.Health.ScanFinished(sum.FinishedAt, runErr)
	}
}

// sortRows orders rows by code, then catalog position of the category.
func sortRows(rows []output.Row) {
	pos := make(map[string]int)
	for i, c := range model.Catalog() {
		pos[string(c)] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Code != rows[j].Code {
			return rows[i].Code < rows[j].Code
		}
		return pos[rows[i].Category] < pos[rows[j].Category]
	})
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
