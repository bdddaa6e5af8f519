// Package profile holds scoring configurations: the per-category weight tables,
// the category taxonomy, factor predicates, and the policies that go with them.
package profile

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxPoints is the highest point value any answer can earn. It fixes the
// per-question denominator.
const MaxPoints = 5

// DefaultThreshold is the eligibility cut-off used when a profile omits one.
const DefaultThreshold = 70.0

// Imputation selects how missing answers are handled before scoring.
type Imputation string

// Missing-value policies.
const (
	ImputeNone        Imputation = "none"
	ImputeMeanMode    Imputation = "mean_mode"
	ImputeExcludeRows Imputation = "exclude_rows"
)

// Denominator selects which questions count toward the maximum score.
type Denominator string

// Denominator policies. DenominatorRecognized only counts questions whose
// answer is in the weight table; DenominatorAll counts every category question.
const (
	DenominatorRecognized Denominator = "recognized"
	DenominatorAll        Denominator = "all"
)

// MatchKind is how a factor pattern is compared to a normalized answer.
type MatchKind string

// Factor match kinds.
const (
	MatchContains MatchKind = "contains"
	MatchEquals   MatchKind = "equals"
	MatchPrefix   MatchKind = "prefix"
)

// WeightTable maps question -> answer text -> points.
type WeightTable map[string]map[string]int

// Weight returns the points for an exact answer text. ok is false when the
// answer is not a recognized value for the question.
func (w WeightTable) Weight(question, answer string) (points int, ok bool) {
	answers, found := w[question]
	if !found {
		return 0, false
	}
	points, ok = answers[answer]
	return points, ok
}

// Factor is a named predicate over one answer column, used to explain which
// conditions drive ineligibility.
type Factor struct {
	Label   string    `yaml:"label" json:"label"`
	Column  string    `yaml:"column" json:"column"`
	Match   MatchKind `yaml:"match" json:"match"`
	Pattern string    `yaml:"pattern" json:"pattern"`
}

// Category is one group of questions scored together.
type Category struct {
	Key       string      `yaml:"key" json:"key"`
	Name      string      `yaml:"name" json:"name"`
	Questions []string    `yaml:"questions" json:"questions"`
	Weights   WeightTable `yaml:"weights" json:"weights"`
	Factors   []Factor    `yaml:"factors,omitempty" json:"factors,omitempty"`
}

// Profile is a complete scoring configuration.
type Profile struct {
	Name        string      `yaml:"name" json:"name"`
	Version     string      `yaml:"version,omitempty" json:"version,omitempty"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Threshold   float64     `yaml:"threshold" json:"threshold"`
	Imputation  Imputation  `yaml:"imputation" json:"imputation"`
	Denominator Denominator `yaml:"denominator" json:"denominator"`
	Categories  []Category  `yaml:"categories" json:"categories"`
}

// Category returns the category with the given key.
func (p *Profile) Category(key string) (*Category, bool) {
	for i := range p.Categories {
		if p.Categories[i].Key == key {
			return &p.Categories[i], true
		}
	}
	return nil, false
}

// Questions returns the ordered question keys of a category.
func (p *Profile) Questions(category string) ([]string, error) {
	c, ok := p.Category(category)
	if !ok {
		return nil, eris.Errorf("profile: unknown category %q", category)
	}
	return c.Questions, nil
}

// CategoryKeys returns category keys in definition order.
func (p *Profile) CategoryKeys() []string {
	keys := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		keys[i] = c.Key
	}
	return keys
}

// applyDefaults fills unset policy fields. The threshold defaults only when
// the key was absent; an explicit 0 is kept.
func (p *Profile) applyDefaults(hasThreshold bool) {
	if !hasThreshold {
		p.Threshold = DefaultThreshold
	}
	if p.Imputation == "" {
		p.Imputation = ImputeNone
	}
	if p.Denominator == "" {
		p.Denominator = DenominatorRecognized
	}
	for i := range p.Categories {
		for j := range p.Categories[i].Factors {
			if p.Categories[i].Factors[j].Match == "" {
				p.Categories[i].Factors[j].Match = MatchContains
			}
		}
	}
}

// ValidImputation reports whether s names a known missing-value policy.
func ValidImputation(s Imputation) bool {
	switch s {
	case ImputeNone, ImputeMeanMode, ImputeExcludeRows:
		return true
	}
	return false
}

// Validate checks that a profile is internally consistent.
func Validate(p *Profile) error {
	var errs []string

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, "name is required")
	}
	if p.Threshold < 0 || p.Threshold > 100 || math.IsNaN(p.Threshold) {
		errs = append(errs, "threshold must be between 0 and 100")
	}
	if !ValidImputation(p.Imputation) {
		errs = append(errs, fmt.Sprintf("unknown imputation %q", p.Imputation))
	}
	switch p.Denominator {
	case DenominatorRecognized, DenominatorAll:
	default:
		errs = append(errs, fmt.Sprintf("unknown denominator %q", p.Denominator))
	}
	if len(p.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	}

	seenCat := make(map[string]bool)
	for _, c := range p.Categories {
		if c.Key == "" {
			errs = append(errs, "category key is required")
			continue
		}
		if seenCat[c.Key] {
			errs = append(errs, fmt.Sprintf("duplicate category %q", c.Key))
		}
		seenCat[c.Key] = true
		errs = append(errs, validateCategory(c)...)
	}

	if len(errs) > 0 {
		return eris.Errorf("profile: %s: validation failed: %s", p.Name, strings.Join(errs, "; "))
	}
	return nil
}

func validateCategory(c Category) []string {
	var errs []string
	if len(c.Questions) == 0 {
		errs = append(errs, fmt.Sprintf("%s: no questions", c.Key))
	}

	listed := make(map[string]bool, len(c.Questions))
	for _, q := range c.Questions {
		if listed[q] {
			errs = append(errs, fmt.Sprintf("%s: duplicate question %q", c.Key, q))
		}
		listed[q] = true
	}

	for q, answers := range c.Weights {
		if !listed[q] {
			errs = append(errs, fmt.Sprintf("%s: weighted question %q is not in the question list", c.Key, q))
		}
		for ans, pts := range answers {
			if pts < 1 || pts > MaxPoints {
				errs = append(errs, fmt.Sprintf("%s: %s=%q has %d points, want 1..%d", c.Key, q, ans, pts, MaxPoints))
			}
		}
	}

	for _, f := range c.Factors {
		if f.Label == "" || f.Column == "" || f.Pattern == "" {
			errs = append(errs, fmt.Sprintf("%s: factor needs label, column and pattern", c.Key))
		}
		switch f.Match {
		case MatchContains, MatchEquals, MatchPrefix:
		default:
			errs = append(errs, fmt.Sprintf("%s: factor %q has unknown match %q", c.Key, f.Label, f.Match))
		}
	}
	return errs
}
