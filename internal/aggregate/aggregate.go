// Package aggregate summarizes scored populations: eligibility percentages per
// category and counts of the conditions behind ineligibility.
package aggregate

import (
	"errors"
	"math"
	"sort"

	"github.com/sells-group/kelayakan-cli/internal/model"
)

// ErrNoData marks a category with no records left to summarize.
var ErrNoData = errors.New("aggregate: no data")

// Summary is the eligibility breakdown of one category.
type Summary struct {
	Category           string  `json:"category"`
	Name               string  `json:"name,omitempty"`
	Total              int     `json:"total"`
	Eligible           int     `json:"eligible"`
	NotEligible        int     `json:"not_eligible"`
	PercentEligible    float64 `json:"percent_eligible"`
	PercentNotEligible float64 `json:"percent_not_eligible"`
	MinScore           float64 `json:"min_score"`
	MaxScore           float64 `json:"max_score"`
	MeanScore          float64 `json:"mean_score"`
	NoData             bool    `json:"no_data"`
}

// Err returns ErrNoData for an empty population, nil otherwise.
func (s Summary) Err() error {
	if s.NoData {
		return ErrNoData
	}
	return nil
}

// Summarize counts labels over records. An empty population yields a summary
// with NoData set and every percentage left at zero.
func Summarize(category string, records []model.ScoredRecord) Summary {
	s := Summary{Category: category, Total: len(records)}
	if len(records) == 0 {
		s.NoData = true
		return s
	}

	s.MinScore = math.Inf(1)
	s.MaxScore = math.Inf(-1)
	var sum float64
	for _, r := range records {
		if r.Label == model.Eligible {
			s.Eligible++
		} else {
			s.NotEligible++
		}
		sum += r.Score
		s.MinScore = math.Min(s.MinScore, r.Score)
		s.MaxScore = math.Max(s.MaxScore, r.Score)
	}

	n := float64(s.Total)
	s.PercentNotEligible = float64(s.NotEligible) / n * 100
	s.PercentEligible = float64(s.Eligible) / n * 100
	s.MeanScore = sum / n
	return s
}

// Rank orders summaries by percent not eligible, highest first. Summaries
// without data sort last. Equal percentages keep their input order.
func Rank(summaries []Summary) []Summary {
	out := make([]Summary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NoData != out[j].NoData {
			return !out[i].NoData
		}
		return out[i].PercentNotEligible > out[j].PercentNotEligible
	})
	return out
}
