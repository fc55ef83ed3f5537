package model

import (
	"sort"
	"time"
)

// ScanStatus is the outcome of one security within a scan.
type ScanStatus string

const (
	StatusMatched    ScanStatus = "matched"
	StatusNoMatch    ScanStatus = "no_match"
	StatusExcluded   ScanStatus = "excluded"
	StatusFetchError ScanStatus = "fetch_error"
	StatusInvalid    ScanStatus = "invalid"
	StatusSkipped    ScanStatus = "skipped" // not processed before cancellation
)

// Statuses lists every status in report order.
func Statuses() []ScanStatus {
	return []ScanStatus{StatusMatched, StatusNoMatch, StatusExcluded, StatusFetchError, StatusInvalid, StatusSkipped}
}

// Hit is a security listed under a category.
type Hit struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ScanSummary describes one finished universe scan.
type ScanSummary struct {
	RunID      string             `json:"run_id"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Source     string             `json:"source"`
	Period     string             `json:"period"`
	Total      int                `json:"total"`
	Counts     map[ScanStatus]int `json:"counts"`
	Hits       map[Category][]Hit `json:"hits"`
	ExportPath string             `json:"export_path,omitempty"`
	Canceled   bool               `json:"canceled,omitempty"`
}

// NewScanSummary returns an empty summary ready for counting.
func NewScanSummary(runID string, started time.Time) *ScanSummary {
	return &ScanSummary{
		RunID:     runID,
		StartedAt: started,
		Counts:    make(map[ScanStatus]int),
		Hits:      make(map[Category][]Hit),
	}
}

// Duration is the scan's wall time.
func (s *ScanSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Matched is the number of securities with at least one category.
func (s *ScanSummary) Matched() int { return s.Counts[StatusMatched] }

// SortHits orders every category's hits by code so reports are stable
// regardless of worker completion order.
func (s *ScanSummary) SortHits() {
	for _, hits := range s.Hits {
		sort.Slice(hits, func(i, j int) bool { return hits[i].Code < hits[j].Code })
	}
}

// HitCategories returns the categories with hits in catalog order.
func (s *ScanSummary) HitCategories() []Category {
	var out []Category
	for _, c := range Catalog() {
		if len(s.Hits[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}
