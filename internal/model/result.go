package model

import "time"

// Match records one detector hit. Index is the bar at which the condition
// held, -1 when the detector does not pin one.
type Match struct {
	Category Category  `json:"category"`
	Index    int       `json:"index"`
	Date     time.Time `json:"date"`
}

// Result is the classification outcome for one series. Matches never
// contains NoMatch; an empty Matches means the series matched nothing.
type Result struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Matches  []Match `json:"matches"`
	Excluded bool    `json:"excluded"`
}

// Categories returns the matched categories in classification order, or
// the single NoMatch sentinel.
func (r Result) Categories() []Category {
	if len(r.Matches) == 0 {
		return []Category{NoMatch}
	}
	out := make([]Category, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = m.Category
	}
	return out
}

// IsNoMatch reports whether the result is the sentinel.
func (r Result) IsNoMatch() bool { return len(r.Matches) == 0 }

// Has reports whether c is among the result's categories.
func (r Result) Has(c Category) bool {
	for _, rc := range r.Categories() {
		if rc == c {
			return true
		}
	}
	return false
}
