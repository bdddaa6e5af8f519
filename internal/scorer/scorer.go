// Package scorer computes per-category suitability scores for survey records
// and labels them against an eligibility threshold.
package scorer

import (
	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// Breakdown is the raw point tally behind a score.
type Breakdown struct {
	Total      int     `json:"total"`
	Max        int     `json:"max"`
	Recognized int     `json:"recognized"`
	Score      float64 `json:"score"`
}

// ScoreRow scores one record over an ordered question list.
//
// A recognized answer adds its points to Total and MaxPoints to Max. Missing or
// unrecognized answers add nothing to Total; under DenominatorAll they still
// add MaxPoints to Max, under DenominatorRecognized they are left out of Max.
// Score is Total/Max*100, or 0 when Max is 0. It is not rounded.
func ScoreRow(rec model.Record, questions []string, weights profile.WeightTable, denom profile.Denominator) Breakdown {
	var b Breakdown
	for _, q := range questions {
		v := rec.Get(q)
		if !v.IsMissing() {
			if pts, ok := weights.Weight(q, v.String()); ok {
				b.Total += pts
				b.Max += profile.MaxPoints
				b.Recognized++
				continue
			}
		}
		if denom == profile.DenominatorAll {
			b.Max += profile.MaxPoints
		}
	}
	if b.Max > 0 {
		b.Score = float64(b.Total) / float64(b.Max) * 100
	}
	return b
}

// Classify labels a score. The threshold is inclusive.
func Classify(score, threshold float64) model.Label {
	if score >= threshold {
		return model.Eligible
	}
	return model.NotEligible
}
