package state

import (
	"log/slog"
	"sync"

	"PatternSentinel/internal/model"
)

// Tracker remembers the previous scan's hits so a new scan can report
// which securities entered each category. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	state    *State
	filePath string
	logger   *slog.Logger
}

// NewTracker loads the state file, or starts empty when it does not exist.
// An empty filePath keeps the state in memory only.
func NewTracker(filePath string, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st := &State{Hits: make(map[model.Category][]string)}
	if filePath != "" {
		var err error
		if st, err = LoadState(filePath); err != nil {
			return nil, err
		}
	}
	return &Tracker{state: st, filePath: filePath, logger: logger}, nil
}

// GetState returns a copy of the current state.
func (t *Tracker) GetState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := *t.state
	cp.Hits = make(map[model.Category][]string, len(t.state.Hits))
	for c, codes := range t.state.Hits {
		cp.Hits[c] = append([]string(nil), codes...)
	}
	return cp
}

// Advance replaces the remembered hits with the summary's and returns the
// hits absent from the previous scan. The first scan ever reports nothing
// as new. Canceled scans are not remembered.
func (t *Tracker) Advance(sum *model.ScanSummary) map[model.Category][]model.Hit {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sum.Canceled {
		return nil
	}
	fresh := make(map[model.Category][]model.Hit)
	first := t.state.Runs == 0
	next := make(map[model.Category][]string, len(sum.Hits))
	for c, hits := range sum.Hits {
		prev := make(map[string]bool, len(t.state.Hits[c]))
		for _, code := range t.state.Hits[c] {
			prev[code] = true
		}
		codes := make([]string, 0, len(hits))
		for _, h := range hits {
			codes = append(codes, h.Code)
			if !first && !prev[h.Code] {
				fresh[c] = append(fresh[c], h)
			}
		}
		next[c] = codes
	}

	t.state.Hits = next
	t.state.LastRunID = sum.RunID
	t.state.LastScanAt = sum.FinishedAt
	t.state.Runs++

	if err := t.save(); err != nil {
		t.logger.Error("failed to save scan state", "err", err)
	}
	return fresh
}

func (t *Tracker) save() error {
	if t.filePath == "" {
		return nil
	}
	return SaveState(t.filePath, t.state)
}
