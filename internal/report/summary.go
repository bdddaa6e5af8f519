package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/preprocess"
)

// NoData is printed in place of a percentage for an empty category.
const NoData = "no data"

// PercentOrNoData renders a summary's not-eligible percentage.
func PercentOrNoData(s aggregate.Summary) string {
	if s.NoData {
		return NoData
	}
	return FormatPercent(s.PercentNotEligible)
}

// WriteSummary prints per-category eligibility, factor breakdowns, skipped
// categories and the category ranking.
func WriteSummary(w io.Writer, rep aggregate.Report) error {
	ew := &errWriter{w: w}

	ew.printf("Run:       %s\n", rep.RunID)
	ew.printf("Profile:   %s\n", rep.Profile)
	ew.printf("Threshold: %s\n", FormatScore(rep.Threshold))

	for _, cr := range rep.Categories {
		s := cr.Summary
		ew.printf("\n--- %s (%s) ---\n", displayName(s), s.Category)
		ew.printf("Total:        %d\n", s.Total)
		if s.NoData {
			ew.printf("Tidak Layak:  %s\n", NoData)
			continue
		}
		ew.printf("Layak:        %d (%s)\n", s.Eligible, FormatPercent(s.PercentEligible))
		ew.printf("Tidak Layak:  %d (%s)\n", s.NotEligible, FormatPercent(s.PercentNotEligible))
		ew.printf("Score range:  %s - %s\n", FormatScore(s.MinScore), FormatScore(s.MaxScore))
		ew.printf("Mean score:   %s\n", FormatScore(s.MeanScore))

		if len(cr.Factors) > 0 {
			ew.printf("Factors:\n")
			for _, f := range cr.Factors {
				ew.printf("  %-45s %5d (%s)\n", f.Label, f.Count, FormatPercent(f.Percent))
			}
		}
	}

	if len(rep.Skipped) > 0 {
		ew.printf("\n--- Skipped ---\n")
		for _, sk := range rep.Skipped {
			ew.printf("%s: %s\n", sk.Category, sk.Reason)
		}
	}

	if len(rep.Ranking) > 1 {
		ew.printf("\n--- Ranking (Tidak Layak) ---\n")
		for i, s := range rep.Ranking {
			ew.printf("%d. %-20s %s\n", i+1, displayName(s), PercentOrNoData(s))
		}
	}

	return ew.err
}

// WriteMissing prints the missing-value report: count and percent per column.
func WriteMissing(w io.Writer, rows int, missing []preprocess.ColumnMissing) error {
	if len(missing) == 0 {
		_, err := fmt.Fprintf(w, "No missing values in %d rows.\n", rows)
		return eris.Wrap(err, "report: write missing report")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tMISSING\tPERCENT") //nolint:errcheck
	for _, m := range missing {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", m.Column, m.Missing, FormatPercent(m.Percent)) //nolint:errcheck
	}
	return eris.Wrap(tw.Flush(), "report: write missing report")
}

func displayName(s aggregate.Summary) string {
	if s.Name != "" {
		return s.Name
	}
	return s.Category
}

// errWriter keeps the first write error so a long report reads straight.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
	if e.err != nil {
		e.err = eris.Wrap(e.err, "report: write summary")
	}
}
