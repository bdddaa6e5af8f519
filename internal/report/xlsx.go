package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

// SummarySheet is the name of the first sheet of an exported workbook.
const SummarySheet = "Ringkasan"

const maxSheetName = 31

// NewWorkbook builds an XLSX workbook: a summary sheet followed by one sheet
// of scored records per category.
func NewWorkbook(run *scorer.RunResult, rep aggregate.Report) (*xlsx.File, error) {
	f := xlsx.NewFile()

	used := map[string]bool{strings.ToLower(SummarySheet): true}

	sum, err := f.AddSheet(SummarySheet)
	if err != nil {
		return nil, eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(sum, "Kategori", "Total", "Layak", "Tidak Layak", "Persentase Tidak Layak")
	for _, s := range rep.Ranking {
		row := sum.AddRow()
		row.AddCell().SetString(displayName(s))
		row.AddCell().SetInt(s.Total)
		row.AddCell().SetInt(s.Eligible)
		row.AddCell().SetInt(s.NotEligible)
		if s.NoData {
			row.AddCell().SetString(NoData)
		} else {
			row.AddCell().SetFloat(Round2(s.PercentNotEligible))
		}
	}

	for i := range run.Categories {
		cr := &run.Categories[i]
		name := cr.Name
		if name == "" {
			name = cr.Category
		}
		sheet, err := f.AddSheet(uniqueSheetName(name, used))
		if err != nil {
			return nil, eris.Wrapf(err, "report: add sheet for %s", cr.Category)
		}
		addStrings(sheet, Header(cr)...)
		for _, r := range cr.Records {
			row := sheet.AddRow()
			for _, q := range cr.Questions {
				v := r.Record.Get(q)
				if v.IsMissing() {
					row.AddCell()
					continue
				}
				row.AddCell().SetString(v.String())
			}
			row.AddCell().SetFloat(Round2(r.Score))
			row.AddCell().SetString(string(r.Label))
		}
	}

	return f, nil
}

// WriteXLSX writes the workbook for a run to w.
func WriteXLSX(w io.Writer, run *scorer.RunResult, rep aggregate.Report) error {
	f, err := NewWorkbook(run, rep)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "report: write workbook")
}

func addStrings(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// uniqueSheetName returns a sheet name not yet in used, compared
// case-insensitively as Excel does, by appending -2, -3, ... within the length
// limit. The chosen name is added to used.
func uniqueSheetName(s string, used map[string]bool) string {
	base := sheetName(s)
	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("-%d", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

// sheetName strips characters Excel rejects and truncates to its length limit.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, s)
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	return s
}
