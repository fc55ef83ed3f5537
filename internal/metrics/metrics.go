package metrics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the scanner.
type Metrics struct {
	ScansTotal     prometheus.Counter
	SymbolsTotal   *prometheus.CounterVec // labels: status
	MatchesTotal   *prometheus.CounterVec // labels: category
	FetchDur       prometheus.Histogram
	ClassifyDur    prometheus.Histogram
	ScanDur        prometheus.Histogram
	LastScanUnix   prometheus.Gauge
	LastScanSymbol prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// registers with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_scans_total",
			Help: "Completed universe scans",
		}),
		SymbolsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_symbols_total",
			Help: "Securities processed, by outcome (matched, no_match, excluded, fetch_error, invalid)",
		}, []string{"status"}),
		MatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_matches_total",
			Help: "Category matches emitted",
		}, []string{"category"}),
		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_fetch_duration_seconds",
			Help:    "Market data fetch latency per security",
			Buckets: prometheus.DefBuckets,
		}),
		ClassifyDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_classify_duration_seconds",
			Help:    "Classification latency per security",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		ScanDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_scan_duration_seconds",
			Help:    "Wall time of a full universe scan",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		LastScanUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_last_scan_timestamp_seconds",
			Help: "Finish time of the last scan",
		}),
		LastScanSymbol: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_last_scan_symbols",
			Help: "Securities in the last scan's universe",
		}),
	}

	reg.MustRegister(
		m.ScansTotal,
		m.SymbolsTotal,
		m.MatchesTotal,
		m.FetchDur,
		m.ClassifyDur,
		m.ScanDur,
		m.LastScanUnix,
		m.LastScanSymbol,
	)
	return m
}

// Pinger is a dependency the health endpoint probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus tracks scanner liveness for /healthz.
type HealthStatus struct {
	mu sync.RWMutex

	Scanning    bool
	LastRunID   string
	LastScanAt  time.Time
	LastError   string
	Deps        map[string]bool
	LastCheckAt time.Time
	StartedAt   time.Time
}

// NewHealthStatus returns a health status with no scan yet.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now(), Deps: make(map[string]bool)}
}

// ScanStarted marks a scan in progress.
func (h *HealthStatus) ScanStarted(runID string) {
	h.mu.Lock()
	h.Scanning = true
	h.LastRunID = runID
	h.mu.Unlock()
}

// ScanFinished records the end of a scan; err is nil on success.
func (h *HealthStatus) ScanFinished(at time.Time, err error) {
	h.mu.Lock()
	h.Scanning = false
	h.LastScanAt = at
	h.LastError = ""
	if err != nil {
		h.LastError = err.Error()
	}
	h.mu.Unlock()
}

// Check pings every dependency once.
func (h *HealthStatus) Check(ctx context.Context, deps map[string]Pinger) {
	results := make(map[string]bool, len(deps))
	for name, p := range deps {
		results[name] = p.Ping(ctx) == nil
	}
	h.mu.Lock()
	for name, ok := range results {
		h.Deps[name] = ok
	}
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker probes deps every interval until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, deps map[string]Pinger, interval time.Duration) {
	if len(deps) == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				h.Check(probeCtx, deps)
				cancel()
			}
		}
	}()
}

// ServeHTTP handles /healthz. Any failing dependency or a failed last scan
// reports degraded with 503.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if h.LastError != "" {
		overall = "degraded"
		code = http.StatusServiceUnavailable
	}
	deps := make(map[string]bool, len(h.Deps))
	for name, ok := range h.Deps {
		deps[name] = ok
		if !ok {
			overall = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	lastScan := ""
	if !h.LastScanAt.IsZero() {
		lastScan = h.LastScanAt.Format(time.RFC3339)
	}
	status := struct {
		Status     string          `json:"status"`
		Uptime     string          `json:"uptime"`
		Scanning   bool            `json:"scanning"`
		LastRunID  string          `json:"last_run_id"`
		LastScanAt string          `json:"last_scan_at"`
		LastError  string          `json:"last_error,omitempty"`
		Deps       map[string]bool `json:"deps"`
	}{
		Status:     overall,
		Uptime:     time.Since(h.StartedAt).Round(time.Second).String(),
		Scanning:   h.Scanning,
		LastRunID:  h.LastRunID,
		LastScanAt: lastScan,
		LastError:  h.LastError,
		Deps:       deps,
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server exposes /metrics and /healthz.
type Server struct {
	addr   string
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the server. gatherer selects the registry served on
// /metrics; nil serves the default one.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.Handle("/healthz", health)

	return &Server{
		addr:   addr,
		logger: logger,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the server's mux.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.logger.Info("metrics server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("metrics server error", "err", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
