package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"PatternSentinel/internal/model"
)

// Row is one matched (security, category) pair of a scan, flattened for
// tabular export.
type Row struct {
	RunID    string  `json:"run_id" parquet:"run_id"`
	Code     string  `json:"code" parquet:"code"`
	Name     string  `json:"name" parquet:"name"`
	Category string  `json:"category" parquet:"category"`
	Label    string  `json:"label" parquet:"label"`
	Date     string  `json:"date" parquet:"date"`
	Close    float64 `json:"close" parquet:"close"`
}

// RowsFor flattens a result. The close and date come from the bar the
// detector pinned, or the last bar when it pinned none.
func RowsFor(runID string, s *model.Series, r model.Result) []Row {
	if r.IsNoMatch() || s == nil || s.Len() == 0 {
		return nil
	}
	rows := make([]Row, 0, len(r.Matches))
	for _, m := range r.Matches {
		bar := s.Last()
		if m.Index >= 0 && m.Index < s.Len() {
			bar = s.Bars[m.Index]
		}
		rows = append(rows, Row{
			RunID:    runID,
			Code:     r.Symbol,
			Name:     r.Name,
			Category: string(m.Category),
			Label:    m.Category.Label(),
			Date:     bar.Date.Format("2006-01-02"),
			Close:    bar.Close,
		})
	}
	return rows
}

// Exporter writes scan rows to a file in one format.
type Exporter interface {
	Export(rows []Row, path string) error
	Extension() string
}

// NewExporter returns the exporter of format (csv, json, parquet).
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}, nil
	case "json":
		return JSONExporter{}, nil
	case "parquet":
		return ParquetExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (use csv, json, parquet)", format)
	}
}

// ExportFile writes rows to path, adding the exporter's extension when
// path has none, and returns the final path.
func ExportFile(e Exporter, rows []Row, path string) (string, error) {
	if filepath.Ext(path) == "" {
		path += "." + e.Extension()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create export dir: %w", err)
		}
	}
	if rows == nil {
		rows = []Row{}
	}
	if err := e.Export(rows, path); err != nil {
		return "", fmt.Errorf("export %s: %w", path, err)
	}
	return path, nil
}

// CSVExporter writes a header row followed by one line per row.
type CSVExporter struct{}

func (CSVExporter) Extension() string { return "csv" }

func (CSVExporter) Export(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write([]string{"run_id", "code", "name", "category", "label", "date", "close"}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{
			r.RunID,
			r.Code,
			r.Name,
			r.Category,
			r.Label,
			r.Date,
			strconv.FormatFloat(r.Close, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// JSONExporter writes an indented JSON array.
type JSONExporter struct{}

func (JSONExporter) Extension() string { return "json" }

func (JSONExporter) Export(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// ParquetExporter writes a parquet file with the Row schema.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string { return "parquet" }

func (ParquetExporter) Export(rows []Row, path string) error {
	return parquet.WriteFile(path, rows)
}
