package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"PatternSentinel/internal/model"
	"PatternSentinel/internal/output"
)

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	base := time.Date(2024, 5, 6, 15, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b"} {
		sum := model.NewScanSummary(id, base.Add(time.Duration(i)*time.Hour))
		sum.FinishedAt = sum.StartedAt.Add(2 * time.Minute)
		sum.Source = "mock"
		sum.Period = "daily"
		sum.Total = 10
		sum.Counts[model.StatusMatched] = 3 + i
		sum.Counts[model.StatusExcluded] = 1
		if err := r.RecordRun(sum); err != nil {
			t.Fatal(err)
		}
	}
	rows := []output.Row{
		{RunID: "run-b", Code: "600519", Name: "贵州茅台", Category: "MACD_GOLDEN_CROSS", Label: "最近3天MACD金叉", Date: "2024-05-06", Close: 1700},
		{RunID: "run-b", Code: "000001", Name: "平安银行", Category: "DOUBLE_BOTTOM", Label: "双底结构", Date: "2024-05-06", Close: 10.5},
	}
	if err := r.RecordMatches(rows); err != nil {
		t.Fatal(err)
	}

	runs, err := r.RecentRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-b" {
		t.Fatalf("runs = %+v", runs)
	}
	if runs[0].Counts[model.StatusMatched] != 4 || runs[0].Total != 10 {
		t.Errorf("run-b = %+v", runs[0])
	}

	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM scan_matches WHERE run_id = ?`, "run-b").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored matches = %d", n)
	}
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	if err := r.RecordRun(model.NewScanSummary("x", time.Now())); err != nil {
		t.Error(err)
	}
	if runs, err := r.RecentRuns(3); err != nil || runs != nil {
		t.Errorf("RecentRuns = %v, %v", runs, err)
	}
}
