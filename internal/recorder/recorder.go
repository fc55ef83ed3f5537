package recorder

import (
	"time"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
)

// RunRecord is one stored scan.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Source     string
	Period     string
	Total      int
	Counts     map[model.ScanStatus]int
}

// Recorder persists scan history for later analysis.
type Recorder interface {
	RecordRun(sum *model.ScanSummary) error
	RecordMatches(rows []output.Row) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
