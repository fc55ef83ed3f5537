package strategy

import (
	"PatternSentinel/internal/calculator"
	"PatternSentinel/internal/model"
)

// Classifier runs the enabled detectors over a series. It holds no mutable
// state, so one instance may serve any number of goroutines.
type Classifier struct {
	params    Params
	exclusion Exclusion
	detectors []Detector
}

// Option configures a Classifier.
type Option func(*Classifier) error

// WithParams replaces the default thresholds.
func WithParams(p Params) Option {
	return func(c *Classifier) error {
		if err := p.Validate(); err != nil {
			return err
		}
		c.params = p
		return nil
	}
}

// WithExclusion replaces the default exclusion policy.
func WithExclusion(e Exclusion) Option {
	return func(c *Classifier) error {
		c.exclusion = e
		return nil
	}
}

// WithEnabled restricts classification to the given categories. An empty
// list keeps the defaults.
func WithEnabled(cats ...model.Category) Option {
	return func(c *Classifier) error {
		if len(cats) == 0 {
			return nil
		}
		ds, err := selectDetectors(cats)
		if err != nil {
			return err
		}
		c.detectors = ds
		return nil
	}
}

// NewClassifier builds a classifier from the defaults plus opts.
func NewClassifier(opts ...Option) (*Classifier, error) {
	ds, _ := selectDetectors(DefaultEnabled())
	c := &Classifier{
		params:    DefaultParams(),
		exclusion: DefaultExclusion(),
		detectors: ds,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Enabled returns the active categories in classification order.
func (c *Classifier) Enabled() []model.Category {
	out := make([]model.Category, len(c.detectors))
	for i, d := range c.detectors {
		out[i] = d.Category
	}
	return out
}

// Params returns the thresholds in use.
func (c *Classifier) Params() Params { return c.params }

// Exclusion returns the exclusion policy in use.
func (c *Classifier) Exclusion() Exclusion { return c.exclusion }

// Classify returns every enabled category s exhibits, or the no-match
// sentinel. Excluded securities and series shorter than the exclusion's
// MinBars are no-match without running any detector.
func (c *Classifier) Classify(s *model.Series) model.Result {
	res := model.Result{Symbol: s.Symbol, Name: s.Name}
	if c.exclusion.Excludes(s.Symbol, s.Name) {
		res.Excluded = true
		return res
	}
	if s.Len() == 0 || s.Len() < c.exclusion.MinBars {
		return res
	}

	ind := calculator.Compute(s, c.params.MACD)
	for _, d := range c.detectors {
		ok, idx := d.Detect(ind, &c.params)
		if !ok {
			continue
		}
		m := model.Match{Category: d.Category, Index: idx}
		if idx >= 0 && idx < s.Len() {
			m.Date = s.Bars[idx].Date
		}
		res.Matches = append(res.Matches, m)
	}
	return res
}

var defaultClassifier, _ = NewClassifier()

// Classify runs the default detectors and thresholds under exclusions.
func Classify(s *model.Series, exclusions Exclusion) model.Result {
	c := *defaultClassifier
	c.exclusion = exclusions
	return c.Classify(s)
}
