package report

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/preprocess"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

// Output is the JSON document for one scoring run: the aggregate report plus
// every scored record per category.
type Output struct {
	aggregate.Report
	Results []CategoryOutput `json:"results"`
}

// CategoryOutput is the scored table of one category.
type CategoryOutput struct {
	Category string            `json:"category"`
	Prepare  preprocess.Report `json:"prepare"`
	Records  []RecordOutput    `json:"records"`
}

// RecordOutput is one scored row. Score is rounded to two decimals.
type RecordOutput struct {
	Row     int          `json:"row"` // 1-based data row in the source table
	Answers model.Record `json:"answers"`
	Total   int          `json:"total"`
	Max     int          `json:"max"`
	Score   float64      `json:"score"`
	Label   model.Label  `json:"label"`
}

// NewOutput assembles the JSON document for a run and its report.
func NewOutput(run *scorer.RunResult, rep aggregate.Report) Output {
	out := Output{Report: rep, Results: make([]CategoryOutput, 0, len(run.Categories))}
	for _, cr := range run.Categories {
		co := CategoryOutput{
			Category: cr.Category,
			Prepare:  cr.Prepare,
			Records:  make([]RecordOutput, 0, len(cr.Records)),
		}
		for _, r := range cr.Records {
			answers := make(model.Record, len(cr.Questions))
			for _, q := range cr.Questions {
				answers[q] = r.Record.Get(q)
			}
			co.Records = append(co.Records, RecordOutput{
				Row:     r.Row + 1,
				Answers: answers,
				Total:   r.Total,
				Max:     r.Max,
				Score:   Round2(r.Score),
				Label:   r.Label,
			})
		}
		out.Results = append(out.Results, co)
	}
	return out
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "report: encode JSON")
}
