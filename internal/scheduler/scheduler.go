package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/notifier"
	"PatternSentinel/internal/recorder"
	"PatternSentinel/internal/runner"
	"PatternSentinel/internal/state"
	"PatternSentinel/internal/universe"
)

// ErrScanRunning is returned when a scan is requested while one is active.
var ErrScanRunning = errors.New("scan already running")

// UniverseFunc loads the securities to scan. It is called once per scan so
// edits to the universe file apply without a restart.
type UniverseFunc func() ([]universe.Security, error)

// Scheduler runs cron-driven scans and answers bot commands.
type Scheduler struct {
	Cron           *cron.Cron
	Runner         *runner.Runner
	Universe       UniverseFunc
	Tracker        *state.Tracker
	Notifier       notifier.Notifier
	Recorder       recorder.Recorder
	Logger         *slog.Logger
	Ctx            context.Context
	MaxPerCategory int

	mu      sync.Mutex
	running bool
	last    *model.ScanSummary
	scanID  cron.EntryID
}

// NewScheduler creates a new Scheduler. n and rec may be nil.
func NewScheduler(ctx context.Context, r *runner.Runner, load UniverseFunc, tr *state.Tracker, n notifier.Notifier, rec recorder.Recorder, logger *slog.Logger) *Scheduler {
	if n == nil {
		n = notifier.Noop{}
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		Cron:           cron.New(cron.WithSeconds()),
		Runner:         r,
		Universe:       load,
		Tracker:        tr,
		Notifier:       n,
		Recorder:       rec,
		Logger:         logger,
		Ctx:            ctx,
		MaxPerCategory: 30,
	}
}

// Register adds the scan task on scanCron (6-field, seconds first).
func (s *Scheduler) Register(scanCron string) error {
	id, err := s.Cron.AddFunc(scanCron, s.scanTask)
	if err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	s.scanID = id
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to return.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// NextRun is the next scheduled scan, zero when none is registered.
func (s *Scheduler) NextRun() time.Time {
	if s.scanID == 0 {
		return time.Time{}
	}
	return s.Cron.Entry(s.scanID).Next
}

// Last returns the most recent finished scan, or nil.
func (s *Scheduler) Last() *model.ScanSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Running reports whether a scan is in progress.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow executes one scan immediately and reports it (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() (*model.ScanSummary, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrScanRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	secs, err := s.Universe()
	if err != nil {
		s.trySend(fmt.Sprintf("❌ 股票列表加载失败: %v", err))
		return nil, fmt.Errorf("load universe: %w", err)
	}

	sum, err := s.Runner.Run(s.Ctx, secs)
	if err != nil {
		s.trySend(fmt.Sprintf("❌ 扫描失败: %v", err))
		return sum, err
	}

	var fresh map[model.Category][]model.Hit
	if s.Tracker != nil {
		fresh = s.Tracker.Advance(sum)
	}
	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()

	s.trySend(notifier.FormatScanReport(sum, fresh, s.MaxPerCategory))
	return sum, nil
}

func (s *Scheduler) scanTask() {
	s.Logger.Info("running scan task")
	if _, err := s.RunNow(); err != nil {
		if errors.Is(err, ErrScanRunning) {
			s.Logger.Warn("scan skipped, previous scan still running")
			return
		}
		s.Logger.Error("scan task", "err", err)
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	switch fields[0] {
	case "/scan", "扫描":
		if s.Running() {
			return "⏳ 扫描进行中，请稍候"
		}
		go s.scanTask()
		return "🚀 扫描已开始，完成后发送报告"
	case "/status", "状态":
		return notifier.FormatStatus(s.Last(), s.Running(), s.NextRun())
	case "/check", "检查":
		if len(fields) < 2 {
			return "用法: /check &lt;代码&gt;"
		}
		return s.check(ctx, fields[1])
	case "/history", "历史":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			s.Logger.Error("recent runs", "err", err)
			return fmt.Sprintf("❌ 查询失败: %v", err)
		}
		return notifier.FormatHistory(runs)
	case "/categories", "形态":
		return notifier.FormatCategories(s.Runner.Classifier.Enabled())
	default:
		return notifier.FormatHelp()
	}
}

// Check classifies one security by code, taking its name from the universe
// when listed there.
func (s *Scheduler) Check(ctx context.Context, code string) (*model.Series, model.Result, error) {
	sec := universe.Security{Code: code, Name: code}
	if secs, err := s.Universe(); err == nil {
		if found, ok := universe.Find(secs, code); ok {
			sec = found
		}
	}
	return s.Runner.Check(ctx, sec)
}

func (s *Scheduler) check(ctx context.Context, code string) string {
	series, res, err := s.Check(ctx, code)
	if err != nil {
		return fmt.Sprintf("❌ %s 检查失败: %v", code, err)
	}
	return notifier.FormatCheckResult(series, res)
}

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

func (s *Scheduler) trySend(text string) {
	var err error
	if rs, ok := s.Notifier.(retrySender); ok {
		err = rs.SendWithRetry(s.Ctx, text, 3)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.Logger.Error("send notification", "err", err)
	}
}
