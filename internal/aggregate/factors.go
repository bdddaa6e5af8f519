package aggregate

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// FactorCount is how many records matched one factor predicate.
type FactorCount struct {
	Label   string  `json:"label"`
	Column  string  `json:"column"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"` // of the whole population
}

// Normalize prepares answer text and patterns for comparison: NFC composed,
// trimmed, inner whitespace collapsed, case folded.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// Matches evaluates one factor against a record.
func Matches(f profile.Factor, rec model.Record) bool {
	v := rec.Get(f.Column)
	if v.IsMissing() {
		return false
	}
	answer := Normalize(v.String())
	pattern := Normalize(f.Pattern)
	switch f.Match {
	case profile.MatchEquals:
		return answer == pattern
	case profile.MatchPrefix:
		return strings.HasPrefix(answer, pattern)
	default:
		return strings.Contains(answer, pattern)
	}
}

// Factors counts factor matches over the whole population. Percentages are of
// len(records). Factors with no matches are omitted; the rest are ordered by
// count, highest first, with ties kept in definition order.
func Factors(records []model.ScoredRecord, factors []profile.Factor) []FactorCount {
	if len(records) == 0 {
		return nil
	}
	var out []FactorCount
	for _, f := range factors {
		n := 0
		for _, r := range records {
			if Matches(f, r.Record) {
				n++
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, FactorCount{
			Label:   f.Label,
			Column:  f.Column,
			Count:   n,
			Percent: float64(n) / float64(len(records)) * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
