package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"PatternSentinel/internal/model"
)

// State is what the scanner remembers between runs.
type State struct {
	LastRunID  string                      `json:"last_run_id"`
	LastScanAt time.Time                   `json:"last_scan_at"`
	Hits       map[model.Category][]string `json:"hits"`
	Runs       int                         `json:"runs"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// LoadState reads the state from a JSON file. Returns a zero state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Hits: make(map[model.Category][]string)}, nil
		}
		return nil, err
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.Hits == nil {
		st.Hits = make(map[model.Category][]string)
	}
	return &st, nil
}

// SaveState writes the state through a temp file and rename.
func SaveState(filePath string, st *State) error {
	st.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
