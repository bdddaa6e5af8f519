package report

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

// Write renders every category of run in the given format. Table and CSV
// output put one block per category, separated by a blank line; JSON and XLSX
// produce a single document.
func Write(w io.Writer, format Format, run *scorer.RunResult, rep aggregate.Report) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, NewOutput(run, rep))
	case FormatXLSX:
		return WriteXLSX(w, run, rep)
	case FormatTable, FormatCSV:
	default:
		return eris.Errorf("report: unsupported format %q", format)
	}

	for i := range run.Categories {
		cr := &run.Categories[i]
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return eris.Wrap(err, "report: write separator")
			}
		}

		var err error
		if format == FormatCSV {
			err = WriteCSV(w, cr)
		} else {
			if _, err = fmt.Fprintf(w, "== %s (%s) ==\n", cr.Name, cr.Category); err != nil {
				return eris.Wrap(err, "report: write title")
			}
			err = WriteTable(w, cr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
