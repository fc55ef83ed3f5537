package recorder

import (
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(_ *model.ScanSummary) error  { return nil }
func (n *NoopRecorder) RecordMatches(_ []output.Row) error    { return nil }
func (n *NoopRecorder) RecentRuns(_ int) ([]RunRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                          { return nil }
