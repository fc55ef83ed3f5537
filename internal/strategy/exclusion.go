package strategy

import (
	"strings"

	"PatternSentinel/internal/model"
)

// Exclusion decides which securities skip pattern detection entirely.
type Exclusion struct {
	// NameKeywords match case-insensitively anywhere in the security name.
	NameKeywords []string `yaml:"name_keywords"`
	// CodePrefixes match the bare code, without exchange marker.
	CodePrefixes []string `yaml:"code_prefixes"`
	// MinBars is the shortest history worth classifying.
	MinBars int `yaml:"min_bars"`
}

// DefaultExclusion drops special-treatment (ST) names, Beijing exchange
// codes (8xxxxx) and STAR market codes (688xxx).
func DefaultExclusion() Exclusion {
	return Exclusion{
		NameKeywords: []string{"ST"},
		CodePrefixes: []string{"8", "688"},
		MinBars:      7,
	}
}

// Excludes reports whether the security is filtered by name or code.
func (e Exclusion) Excludes(symbol, name string) bool {
	upper := strings.ToUpper(name)
	for _, kw := range e.NameKeywords {
		if kw != "" && strings.Contains(upper, strings.ToUpper(kw)) {
			return true
		}
	}
	code := model.BareCode(symbol)
	for _, prefix := range e.CodePrefixes {
		if prefix != "" && strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}
