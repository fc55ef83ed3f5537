package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"PatternSentinel/internal/model"
)

// Security is one entry of the scan universe.
type Security struct {
	Code string `json:"ts_code"`
	Name string `json:"name"`
}

// Load reads the universe file. Two layouts are accepted: an array of
// {"ts_code","name"} records, and the column layout pandas writes by
// default ({"ts_code":{"0":...},"name":{"0":...}}), ordered by row key.
func Load(path string) ([]Security, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read universe: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("universe %s: invalid JSON", path)
	}
	root := gjson.ParseBytes(data)

	var out []Security
	switch {
	case root.IsArray():
		root.ForEach(func(_, v gjson.Result) bool {
			if code := v.Get("ts_code").String(); code != "" {
				out = append(out, Security{Code: code, Name: v.Get("name").String()})
			}
			return true
		})
	case root.Get("ts_code").IsObject():
		names := root.Get("name")
		type row struct {
			key int
			sec Security
		}
		var rows []row
		root.Get("ts_code").ForEach(func(k, v gjson.Result) bool {
			idx, err := strconv.Atoi(k.String())
			if err != nil {
				idx = len(rows)
			}
			rows = append(rows, row{idx, Security{Code: v.String(), Name: names.Get(k.String()).String()}})
			return true
		})
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].key < rows[j].key })
		for _, r := range rows {
			out = append(out, r.sec)
		}
	default:
		return nil, fmt.Errorf("universe %s: expected a record array or ts_code/name columns", path)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("universe %s: no securities", path)
	}
	return out, nil
}

// Save writes the universe as a record array.
func Save(path string, secs []Security) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(secs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Find looks a security up by code. Exchange markers are ignored, so
// "600519", "600519.SH" and "sh.600519" name the same entry.
func Find(secs []Security, code string) (Security, bool) {
	want := model.BareCode(code)
	for _, s := range secs {
		if model.BareCode(s.Code) == want {
			return s, true
		}
	}
	return Security{}, false
}
