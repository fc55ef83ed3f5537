package output

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"

	"PatternSentinel/internal/model"
)

func result(code, name string, cats ...model.Category) model.Result {
	r := model.Result{Symbol: code, Name: name}
	for _, c := range cats {
		r.Matches = append(r.Matches, model.Match{Category: c, Index: -1})
	}
	return r
}

func TestCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	cats := []model.Category{model.NoMatch, model.ThreeLimitUp, model.MacdGoldenCross, model.DoubleBottom}
	cf, err := NewCategoryFiles(dir, cats, false)
	if err != nil {
		t.Fatal(err)
	}
	writes := []model.Result{
		result("600519", "贵州茅台", model.MacdGoldenCross),
		result("000001", "平安银行", model.ThreeLimitUp, model.MacdGoldenCross),
		result("000002", "万科A"),
		result("300750", "宁德时代", model.IsUpwardTrend), // no file opened for it
	}
	for _, r := range writes {
		if err := cf.Write(r.Symbol, r.Name, r); err != nil {
			t.Fatal(err)
		}
	}
	counts := cf.Counts()
	if counts[model.MacdGoldenCross] != 2 || counts[model.ThreeLimitUp] != 1 {
		t.Errorf("counts = %v", counts)
	}
	if err := cf.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, model.MacdGoldenCross.Label()+".txt"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "600519 贵州茅台\n000001 平安银行\n" {
		t.Errorf("golden cross file = %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, model.DoubleBottom.Label()+".txt")); !os.IsNotExist(err) {
		t.Errorf("empty category file should be removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, model.NoMatch.Label()+".txt")); !os.IsNotExist(err) {
		t.Error("NoMatch must not get a file")
	}
}

func TestCategoryFiles_EachRunStartsFresh(t *testing.T) {
	dir := t.TempDir()
	cats := []model.Category{model.ThreeLimitUp}
	path := filepath.Join(dir, model.ThreeLimitUp.Label()+".txt")

	cf, err := NewCategoryFiles(dir, cats, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := cf.Write("600519", "贵州茅台", result("600519", "贵州茅台", model.ThreeLimitUp)); err != nil {
		t.Fatal(err)
	}
	if err := cf.Close(); err != nil {
		t.Fatal(err)
	}

	// A run with a different hit replaces the old line.
	cf, err = NewCategoryFiles(dir, cats, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := cf.Write("000001", "平安银行", result("000001", "平安银行", model.ThreeLimitUp)); err != nil {
		t.Fatal(err)
	}
	if err := cf.Close(); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if got := string(data); got != "000001 平安银行\n" {
		t.Errorf("file = %q, want only the latest run", got)
	}

	// A run without hits leaves no file behind.
	cf, err = NewCategoryFiles(dir, cats, false)
	if err != nil {
		t.Fatal(err)
	}
	if err := cf.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file from an earlier run should be removed, stat err = %v", err)
	}
}

func TestCategoryFiles_AppendMode(t *testing.T) {
	dir := t.TempDir()
	cats := []model.Category{model.ThreeLimitUp}
	for i := 0; i < 2; i++ {
		cf, err := NewCategoryFiles(dir, cats, true)
		if err != nil {
			t.Fatal(err)
		}
		if err := cf.Write("000001", "平安银行", result("000001", "平安银行", model.ThreeLimitUp)); err != nil {
			t.Fatal(err)
		}
		cf.Close()
	}
	data, _ := os.ReadFile(filepath.Join(dir, model.ThreeLimitUp.Label()+".txt"))
	if strings.Count(string(data), "000001") != 2 {
		t.Errorf("file = %q, want two appended lines", data)
	}
}

func sampleSeries() *model.Series {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 5)
	for i := range bars {
		bars[i] = model.Bar{Date: start.AddDate(0, 0, i), Close: 10 + float64(i)}
	}
	return model.NewSeries("600519", "贵州茅台", bars)
}

func TestRowsFor(t *testing.T) {
	s := sampleSeries()
	r := model.Result{Symbol: "600519", Name: "贵州茅台", Matches: []model.Match{
		{Category: model.MacdGoldenCross, Index: 2},
		{Category: model.IsUpwardTrend, Index: -1},
	}}
	rows := RowsFor("run-1", s, r)
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0].Close != 12 || rows[0].Date != "2024-03-03" {
		t.Errorf("pinned row = %+v", rows[0])
	}
	if rows[1].Close != 14 || rows[1].Label != model.IsUpwardTrend.Label() {
		t.Errorf("unpinned row = %+v", rows[1])
	}
	if RowsFor("run-1", s, result("600519", "贵州茅台")) != nil {
		t.Error("no-match result should produce no rows")
	}
}

func TestNewExporter(t *testing.T) {
	for _, f := range []string{"csv", " JSON ", "parquet"} {
		if _, err := NewExporter(f); err != nil {
			t.Errorf("NewExporter(%q): %v", f, err)
		}
	}
	if _, err := NewExporter("xlsx"); err == nil {
		t.Error("expected error for xlsx")
	}
}

func exportRows() []Row {
	return RowsFor("run-1", sampleSeries(), model.Result{Symbol: "600519", Name: "贵州茅台", Matches: []model.Match{
		{Category: model.DoubleBottom, Index: 4},
	}})
}

func TestExportFile_CSV(t *testing.T) {
	path, err := ExportFile(CSVExporter{}, exportRows(), filepath.Join(t.TempDir(), "scan"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(path) != ".csv" {
		t.Errorf("path = %s", path)
	}
	f, _ := os.Open(path)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[1][3] != "DOUBLE_BOTTOM" || recs[1][6] != "14" {
		t.Errorf("records = %v", recs)
	}
}

func TestExportFile_JSON(t *testing.T) {
	path, err := ExportFile(JSONExporter{}, exportRows(), filepath.Join(t.TempDir(), "out", "scan.json"))
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].RunID != "run-1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestExportFile_Parquet(t *testing.T) {
	path, err := ExportFile(ParquetExporter{}, exportRows(), filepath.Join(t.TempDir(), "scan"))
	if err != nil {
		t.Fatal(err)
	}
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Code != "600519" || rows[0].Date != "2024-03-05" {
		t.Errorf("rows = %+v", rows)
	}
}
