// Package report renders scoring runs as tables, CSV, JSON and XLSX workbooks.
// Scores are rounded to two decimals here and nowhere else.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

// Format is an output encoding for scored records.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatXLSX  Format = "xlsx"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", eris.Errorf("report: unsupported format %q (want table, csv, json or xlsx)", s)
	}
}

// Round2 rounds a score or percentage for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FormatScore renders a score with two decimals.
func FormatScore(v float64) string {
	return strconv.FormatFloat(Round2(v), 'f', 2, 64)
}

// FormatPercent renders a percentage the way the dashboard did, e.g. "42.86%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// Header returns the output columns for a category: its questions followed by
// the score and label columns.
func Header(cr *scorer.CategoryResult) []string {
	h := make([]string, 0, len(cr.Questions)+2)
	h = append(h, cr.Questions...)
	return append(h, model.ColumnScore, model.ColumnLabel)
}

// Rows renders each scored record as strings in Header order.
func Rows(cr *scorer.CategoryResult) [][]string {
	rows := make([][]string, 0, len(cr.Records))
	for _, r := range cr.Records {
		row := make([]string, 0, len(cr.Questions)+2)
		for _, q := range cr.Questions {
			row = append(row, r.Record.Get(q).String())
		}
		row = append(row, FormatScore(r.Score), string(r.Label))
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes one category's scored records with a header row.
func WriteCSV(w io.Writer, cr *scorer.CategoryResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header(cr)); err != nil {
		return eris.Wrap(err, "report: write CSV header")
	}
	for _, row := range Rows(cr) {
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "report: write CSV row")
		}
	}

	cw.Flush()
	return eris.Wrap(cw.Error(), "report: flush CSV")
}

// WriteTable writes one category's scored records as an aligned text table.
func WriteTable(w io.Writer, cr *scorer.CategoryResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := Header(cr)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return eris.Wrap(err, "report: write table header")
	}
	seps := make([]string, len(header))
	for i, h := range header {
		seps[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(tw, strings.Join(seps, "\t")) //nolint:errcheck

	for _, row := range Rows(cr) {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return eris.Wrap(err, "report: write table row")
		}
	}
	return eris.Wrap(tw.Flush(), "report: flush table")
}
