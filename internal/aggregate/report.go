package aggregate

import (
	"github.com/sells-group/kelayakan-cli/internal/profile"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

// CategoryReport pairs a category summary with its factor breakdown.
type CategoryReport struct {
	Summary Summary       `json:"summary"`
	Factors []FactorCount `json:"factors,omitempty"`
}

// Report is the aggregate view of one scoring run.
type Report struct {
	RunID      string           `json:"run_id"`
	Profile    string           `json:"profile"`
	Threshold  float64          `json:"threshold"`
	Categories []CategoryReport `json:"categories"`
	Ranking    []Summary        `json:"ranking"`
	Skipped    []scorer.Skipped `json:"skipped,omitempty"`
}

// Build summarizes every scored category of run using the factor lists of prof.
func Build(run *scorer.RunResult, prof *profile.Profile) Report {
	rep := Report{
		RunID:     run.RunID,
		Profile:   run.Profile,
		Threshold: run.Threshold,
		Skipped:   run.Skipped,
	}

	summaries := make([]Summary, 0, len(run.Categories))
	for _, cr := range run.Categories {
		s := Summarize(cr.Category, cr.Records)
		s.Name = cr.Name
		summaries = append(summaries, s)

		var factors []profile.Factor
		if cat, ok := prof.Category(cr.Category); ok {
			factors = cat.Factors
		}
		rep.Categories = append(rep.Categories, CategoryReport{
			Summary: s,
			Factors: Factors(cr.Records, factors),
		})
	}
	rep.Ranking = Rank(summaries)
	return rep
}
