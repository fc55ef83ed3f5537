package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/config"
	"PatternSentinel/internal/logx"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/notifier"
	"PatternSentinel/internal/recorder"
	"PatternSentinel/internal/runner"
	"PatternSentinel/internal/scheduler"
	"PatternSentinel/internal/state"
	"PatternSentinel/internal/strategy"
	"PatternSentinel/internal/universe"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "config file (default $CONFIG_PATH or configs/config.yaml)")
		check   = flag.String("check", "", "classify a single security code and exit")
		daemon  = flag.Bool("daemon", false, "run scheduled scans and Telegram commands until stopped")
	)
	flag.Parse()

	// Load config
	path := *cfgPath
	if path == "" {
		path = "configs/config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fatal(slog.Default(), "load config", err)
	}
	logger := logx.NewDefault(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "config validation", err)
	}
	logger.Info("PatternSentinel starting", "config", path, "catalog_version", model.CatalogVersion)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Init fetcher
	fetcher, cache := newFetcher(cfg, logger)
	if cache != nil {
		defer cache.Close()
	}
	logger.Info("data source", "name", fetcher.Name())

	// Init classifier
	classifier, err := newClassifier(cfg)
	if err != nil {
		fatal(logger, "init classifier", err)
	}

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.SQLitePath), 0o755); err != nil {
			logger.Warn("create database dir", "err", err)
		}
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, logger)
		if err != nil {
			logger.Warn("init sqlite recorder failed, using noop", "err", err)
		} else {
			rec = sr
			defer sr.Close()
		}
	}

	period, _ := cfg.Period()
	r := runner.NewRunner(fetcher, classifier, rec, runner.Options{
		Period:       period,
		Lookback:     cfg.DataSource.LookbackDays,
		Concurrency:  cfg.Runner.Concurrency,
		Delay:        cfg.Runner.Delay,
		OutputDir:    cfg.Output.Dir,
		AppendOutput: cfg.Output.Append,
		ExportFormat: cfg.Output.ExportFormat,
		ExportDir:    cfg.Output.ExportDir,
	}, logger)
	if cfg.Log.Dir != "" {
		r.Loggers = logx.NewSymbolLoggers(cfg.Log.Dir, cfg.Log.Level, logger)
		defer r.Loggers.Close()
	}

	loadUniverse := func() ([]universe.Security, error) { return universe.Load(cfg.Universe.File) }

	tracker, err := state.NewTracker(cfg.State.File, logger)
	if err != nil {
		fatal(logger, "load scan state", err)
	}

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier = notifier.Noop{}
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, logger)
		n = tn
	}

	sched := scheduler.NewScheduler(ctx, r, loadUniverse, tracker, n, rec, logger)
	sched.MaxPerCategory = cfg.Telegram.MaxPerCategory

	switch {
	case *check != "":
		series, res, err := sched.Check(ctx, *check)
		if err != nil {
			fatal(logger, "check", err)
		}
		printCheck(series, res)
	case *daemon:
		deps := map[string]metrics.Pinger{}
		if cache != nil {
			deps["redis"] = cache
		}
		runDaemon(ctx, cfg, sched, r, tn, deps, logger)
	default:
		sum, err := sched.RunNow()
		if err != nil {
			fatal(logger, "scan", err)
		}
		fmt.Printf("scan %s: %d securities, %d matched, output in %s\n",
			sum.RunID, sum.Total, sum.Matched(), cfg.Output.Dir)
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, r *runner.Runner,
	tn *notifier.TelegramNotifier, deps map[string]metrics.Pinger, logger *slog.Logger) {
	health := metrics.NewHealthStatus()
	r.Health = health
	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		r.Metrics = metrics.NewMetrics(reg)
		health.StartLivenessChecker(ctx, deps, 30*time.Second)

		srv := metrics.NewServer(cfg.Metrics.Addr, reg, health, logger)
		srv.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Stop(shutdownCtx)
		}()
	}

	if err := sched.Register(cfg.Schedule.ScanCron); err != nil {
		fatal(logger, "register cron tasks", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logger.Info("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		logger.Info("RUN_ON_START enabled, executing scan now")
		go sched.RunNow()
	}

	logger.Info("PatternSentinel is running. Press Ctrl+C to stop.", "next_scan", sched.NextRun())
	<-ctx.Done()
	logger.Info("shutdown signal received, stopping...")
}

// newFetcher builds the configured back end, wrapped in the Redis cache when
// one is configured and reachable. The cache is returned for closing.
func newFetcher(cfg *config.Config, logger *slog.Logger) (collector.Fetcher, *collector.RedisCache) {
	var f collector.Fetcher
	switch cfg.DataSource.Provider {
	case "yahoo":
		f = collector.NewYahooFetcher(cfg.Proxy)
	case "rest":
		f = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		f = &collector.MockFetcher{Price: 20}
	default:
		f = collector.NewEastMoneyFetcher(cfg.DataSource.BaseURL, cfg.Proxy)
	}

	if cfg.Cache.RedisAddr == "" {
		return f, nil
	}
	rc, err := collector.NewRedisCache(collector.RedisConfig{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
		DB:       cfg.Cache.RedisDB,
	})
	if err != nil {
		logger.Warn("redis cache unavailable, fetching uncached", "err", err)
		return f, nil
	}
	return collector.NewCachedFetcher(f, rc, cfg.Cache.TTL, logger), rc
}

func newClassifier(cfg *config.Config) (*strategy.Classifier, error) {
	cats, err := cfg.EnabledCategories()
	if err != nil {
		return nil, err
	}
	return strategy.NewClassifier(
		strategy.WithParams(cfg.Detectors.Params),
		strategy.WithExclusion(cfg.Exclusion),
		strategy.WithEnabled(cats...),
	)
}

func printCheck(s *model.Series, r model.Result) {
	fmt.Printf("%s %s\n", r.Symbol, r.Name)
	if s != nil && s.Len() > 0 {
		last := s.Last()
		fmt.Printf("  last bar %s close %.2f (%+.2f%%), %d bars\n",
			last.Date.Format("2006-01-02"), last.Close, last.PctChg, s.Len())
	}
	if r.Excluded {
		fmt.Println("  excluded by exclusion policy")
	}
	for _, c := range r.Categories() {
		fmt.Printf("  %-32s %s\n", c, c.Label())
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "err", err)
	os.Exit(1)
}
