// Package preprocess cleans a survey dataset before scoring: duplicate rows are
// dropped and missing answers are either imputed or excluded.
package preprocess

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// ColumnMissing counts missing cells in one column.
type ColumnMissing struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Percent float64 `json:"percent"`
}

// Fill records how one column was imputed.
type Fill struct {
	Column string      `json:"column"`
	Method string      `json:"method"` // "mean" or "mode"
	Value  model.Value `json:"value"`
	Cells  int         `json:"cells"`
}

// Report summarizes what Prepare did to a dataset.
type Report struct {
	Policy     profile.Imputation `json:"policy"`
	Input      int                `json:"input"`
	Duplicates int                `json:"duplicates"`
	Excluded   int                `json:"excluded"`
	Output     int                `json:"output"`
	Missing    []ColumnMissing    `json:"missing,omitempty"`
	Fills      []Fill             `json:"fills,omitempty"`
	Unfillable []string           `json:"unfillable,omitempty"`
	Rows       []int              `json:"-"`
}

// MissingReport lists columns with at least one missing cell, highest percent
// first. Columns with equal percent keep dataset column order.
func MissingReport(ds *model.Dataset) []ColumnMissing {
	if ds.Len() == 0 {
		return nil
	}
	var out []ColumnMissing
	for _, col := range ds.Columns {
		n := 0
		for _, rec := range ds.Records {
			if rec.Get(col).IsMissing() {
				n++
			}
		}
		if n > 0 {
			out = append(out, ColumnMissing{
				Column:  col,
				Missing: n,
				Percent: float64(n) / float64(ds.Len()) * 100,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percent > out[j].Percent })
	return out
}

// Deduplicate drops records identical to an earlier record across every
// column. The first occurrence is kept.
func Deduplicate(ds *model.Dataset) (*model.Dataset, int) {
	keep := uniqueRows(ds)
	return pick(ds, keep), ds.Len() - len(keep)
}

// uniqueRows returns the indexes of first occurrences.
func uniqueRows(ds *model.Dataset) []int {
	seen := make(map[string]bool, ds.Len())
	keep := make([]int, 0, ds.Len())
	for i, rec := range ds.Records {
		k := recordKey(ds.Columns, rec)
		if seen[k] {
			continue
		}
		seen[k] = true
		keep = append(keep, i)
	}
	return keep
}

func pick(ds *model.Dataset, rows []int) *model.Dataset {
	records := make([]model.Record, len(rows))
	for i, r := range rows {
		records[i] = ds.Records[r]
	}
	return ds.Subset(records)
}

func recordKey(cols []string, rec model.Record) string {
	var b strings.Builder
	for _, c := range cols {
		v := rec.Get(c)
		b.WriteString(v.Kind.String())
		b.WriteByte(':')
		b.WriteString(v.String())
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Impute fills missing cells column by column. Columns whose answers are all
// numbers get the column mean; any other column gets its most frequent answer,
// with ties going to the lexicographically smallest answer text. Columns with
// no answers at all cannot be filled and are returned in unfillable.
// Source records are not modified.
func Impute(ds *model.Dataset) (out *model.Dataset, fills []Fill, unfillable []string) {
	records := make([]model.Record, ds.Len())
	for i, rec := range ds.Records {
		records[i] = rec.Clone()
	}

	for _, col := range ds.Columns {
		fill, ok := columnFill(ds, col)
		if !ok {
			unfillable = append(unfillable, col)
			continue
		}
		for _, rec := range records {
			if rec.Get(col).IsMissing() {
				rec[col] = fill.Value
				fill.Cells++
			}
		}
		if fill.Cells > 0 {
			fills = append(fills, fill)
		}
	}
	return ds.Subset(records), fills, unfillable
}

func columnFill(ds *model.Dataset, col string) (Fill, bool) {
	var (
		sum     float64
		n       int
		numeric = true
		counts  = make(map[string]int)
		firstOf = make(map[string]model.Value)
	)
	for _, rec := range ds.Records {
		v := rec.Get(col)
		if v.IsMissing() {
			continue
		}
		n++
		if v.Kind == model.Number {
			sum += v.Num
		} else {
			numeric = false
		}
		s := v.String()
		counts[s]++
		if _, ok := firstOf[s]; !ok {
			firstOf[s] = v
		}
	}
	if n == 0 {
		return Fill{}, false
	}
	if numeric {
		return Fill{Column: col, Method: "mean", Value: model.NumberValue(sum / float64(n))}, true
	}

	var best string
	bestN := -1
	for s, c := range counts {
		if c > bestN || (c == bestN && s < best) {
			best, bestN = s, c
		}
	}
	return Fill{Column: col, Method: "mode", Value: firstOf[best]}, true
}

// ExcludeIncomplete drops records missing an answer in any of columns.
func ExcludeIncomplete(ds *model.Dataset, columns []string) (*model.Dataset, int) {
	keep := completeRows(ds, allRows(ds.Len()), columns)
	return pick(ds, keep), ds.Len() - len(keep)
}

// completeRows filters rows down to those answered in every column.
func completeRows(ds *model.Dataset, rows []int, columns []string) []int {
	keep := make([]int, 0, len(rows))
	for _, r := range rows {
		complete := true
		for _, c := range columns {
			if ds.Records[r].Get(c).IsMissing() {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	return keep
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// Prepare deduplicates ds and applies the missing-value policy over columns.
// With ImputeMeanMode, rows still incomplete after imputation (unfillable
// columns) are excluded as well. ImputeNone only deduplicates. Report.Rows
// maps each output record back to its source row.
func Prepare(ds *model.Dataset, policy profile.Imputation, columns []string) (*model.Dataset, Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, Report{}, eris.Wrap(err, "preprocess: validate input")
	}

	rep := Report{Policy: policy, Input: ds.Len(), Missing: MissingReport(ds)}

	rows := uniqueRows(ds)
	rep.Duplicates = ds.Len() - len(rows)
	out := pick(ds, rows)

	switch policy {
	case profile.ImputeNone:
	case profile.ImputeExcludeRows:
		keep := completeRows(out, allRows(out.Len()), columns)
		rep.Excluded = out.Len() - len(keep)
		out, rows = pick(out, keep), remap(rows, keep)
	case profile.ImputeMeanMode:
		out, rep.Fills, rep.Unfillable = Impute(out)
		keep := completeRows(out, allRows(out.Len()), columns)
		rep.Excluded = out.Len() - len(keep)
		out, rows = pick(out, keep), remap(rows, keep)
	default:
		return nil, rep, eris.Errorf("preprocess: unknown imputation policy %q", policy)
	}
	rep.Output = out.Len()
	rep.Rows = rows

	zap.L().Debug("preprocess: dataset prepared",
		zap.String("policy", string(policy)),
		zap.Int("input", rep.Input),
		zap.Int("duplicates", rep.Duplicates),
		zap.Int("excluded", rep.Excluded),
		zap.Int("output", rep.Output),
	)
	return out, rep, nil
}

// remap composes index slices: result[i] = rows[keep[i]].
func remap(rows, keep []int) []int {
	out := make([]int, len(keep))
	for i, k := range keep {
		out[i] = rows[k]
	}
	return out
}
