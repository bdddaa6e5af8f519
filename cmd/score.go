package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/kelayakan-cli/internal/aggregate"
	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/fetcher"
	"github.com/sells-group/kelayakan-cli/internal/report"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

var scoreCmd = &cobra.Command{
	Use:   "score <file>...",
	Short: "Score survey files and report eligibility per category",
	Long: `Score household survey files (CSV, TSV or XLSX) against a profile.

Each household gets a Skor Kelayakan per category (recognized points over the
maximum attainable, as a percentage) and a Label: Layak when the score reaches
the threshold, Tidak Layak otherwise. A summary per category lists the share
of Tidak Layak households and the conditions most often behind it.

Categories whose questions are absent from a file are skipped; the rest are
still scored.

Examples:
  # Score all categories and print the records table plus summary
  kelayakan score survey.csv

  # Only sanitation, semicolon-separated input, CSV output to a file
  kelayakan score survey.csv --category sanitation --delimiter ";" --format csv --output scored.csv

  # The original dashboard behaviour: mean/mode imputation, penalizing denominator
  kelayakan score survey.xlsx --profile dashboard-legacy

  # Several files at once, one workbook per file
  kelayakan score rw01.xlsx rw02.xlsx --format xlsx --output-dir out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("score"); err != nil {
			return err
		}

		p, err := scoreParamsFromFlags(cmd, args)
		if err != nil {
			return err
		}
		return runScore(ctx, cmd.OutOrStdout(), p)
	},
}

func init() {
	f := scoreCmd.Flags()
	addProfileFlags(f)
	addInputFlags(f)
	f.StringSlice("category", nil, "category keys to score (default: all in the profile)")
	f.Float64("threshold", 0, "eligibility threshold 0-100 (default: the profile's)")
	f.String("imputation", "", "missing-value policy: none, mean_mode or exclude_rows (default: the profile's)")
	f.Int("concurrency", 0, "files and categories scored in parallel (default from config)")
	f.String("format", "table", "records output format: table, csv, json or xlsx")
	f.String("output", "", "write records to this file (default: stdout)")
	f.String("output-dir", "", "write records for each input file into this directory")
	f.Bool("summary-only", false, "print only the summary, not the scored records")

	rootCmd.AddCommand(scoreCmd)
}

// scoreParams is everything runScore needs, resolved from config and flags.
type scoreParams struct {
	Files       []string
	Profile     config.ProfileConfig
	Scoring     config.ScoringConfig
	Input       config.InputConfig
	Categories  []string
	Format      report.Format
	Output      string
	OutputDir   string
	SummaryOnly bool
}

func scoreParamsFromFlags(cmd *cobra.Command, files []string) (scoreParams, error) {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := report.ParseFormat(formatFlag)
	if err != nil {
		return scoreParams{}, err
	}

	p := scoreParams{
		Files:   files,
		Profile: applyProfileOverrides(cmd, cfg.Profile),
		Scoring: applyScoringOverrides(cmd, cfg.Scoring),
		Input:   applyInputOverrides(cmd, cfg.Input),
		Format:  format,
	}
	categories, _ := cmd.Flags().GetStringSlice("category")
	p.Categories = uniqueStrings(categories)
	p.Output, _ = cmd.Flags().GetString("output")
	p.OutputDir, _ = cmd.Flags().GetString("output-dir")
	p.SummaryOnly, _ = cmd.Flags().GetBool("summary-only")
	return p, nil
}

// applyScoringOverrides returns a copy of the base config with CLI flag overrides applied.
func applyScoringOverrides(cmd *cobra.Command, base config.ScoringConfig) config.ScoringConfig {
	c := base
	if cmd.Flags().Changed("threshold") {
		v, _ := cmd.Flags().GetFloat64("threshold")
		c.Threshold = &v
	}
	if v, _ := cmd.Flags().GetString("imputation"); v != "" {
		c.Imputation = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		c.Concurrency = v
	}
	return c
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (p scoreParams) validate() error {
	if len(p.Files) == 0 {
		return eris.New("score: no input files")
	}
	if p.Output != "" && p.OutputDir != "" {
		return eris.New("score: --output and --output-dir are mutually exclusive")
	}
	if p.Output != "" && len(p.Files) > 1 {
		return eris.New("score: use --output-dir with several input files")
	}
	if p.Format == report.FormatXLSX && !p.SummaryOnly && p.Output == "" && p.OutputDir == "" {
		return eris.New("score: xlsx output needs --output or --output-dir")
	}
	return nil
}

type fileRun struct {
	path string
	run  *scorer.RunResult
	rep  aggregate.Report
}

func runScore(ctx context.Context, out io.Writer, p scoreParams) error {
	if err := p.validate(); err != nil {
		return err
	}

	prof, err := loadProfile(p.Profile)
	if err != nil {
		return err
	}
	for _, key := range p.Categories {
		if _, ok := prof.Category(key); !ok {
			return eris.Errorf("score: profile %s has no category %q (have %s)",
				prof.Name, key, strings.Join(prof.CategoryKeys(), ", "))
		}
	}
	keys := p.Categories
	if len(keys) == 0 {
		keys = prof.CategoryKeys()
	}

	opts, err := scorer.OptionsFromConfig(p.Scoring)
	if err != nil {
		return err
	}
	eng, err := scorer.NewEngine(prof, opts)
	if err != nil {
		return err
	}
	fo, err := fetchOptions(p.Input)
	if err != nil {
		return eris.Wrap(err, "score")
	}

	log := zap.L().With(zap.String("command", "score"), zap.String("profile", prof.Name))
	log.Info("score: starting",
		zap.Int("files", len(p.Files)),
		zap.Strings("categories", keys),
		zap.Float64("threshold", eng.Threshold()),
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Scoring.Concurrency))

	results := make([]fileRun, len(p.Files))
	for i, path := range p.Files {
		g.Go(func() error {
			ds, err := fetcher.LoadFile(gCtx, path, fo)
			if err != nil {
				return eris.Wrapf(err, "score: load %s", path)
			}
			run, err := eng.ScoreCategories(gCtx, ds, keys)
			if err != nil {
				return eris.Wrapf(err, "score: %s", path)
			}
			results[i] = fileRun{path: path, run: run, rep: aggregate.Build(run, prof)}

			log.Info("score: file complete",
				zap.String("file", path),
				zap.String("run_id", run.RunID),
				zap.Int("rows", ds.Len()),
				zap.Int("categories", len(run.Categories)),
				zap.Int("skipped", len(run.Skipped)),
				zap.Duration("elapsed", run.Elapsed),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, fr := range results {
		if err := emitScore(out, fr, p); err != nil {
			return err
		}
	}
	return nil
}

// emitScore writes the records of one file and prints its summary.
func emitScore(out io.Writer, fr fileRun, p scoreParams) error {
	toStdout := p.Output == "" && p.OutputDir == ""

	if !p.SummaryOnly {
		if toStdout {
			if err := report.Write(out, p.Format, fr.run, fr.rep); err != nil {
				return err
			}
			if p.Format == report.FormatJSON {
				// The JSON document already carries the summary.
				return nil
			}
			fmt.Fprintln(out) //nolint:errcheck
		} else if err := writeRecordsFile(outputPath(fr.path, p), p.Format, fr); err != nil {
			return err
		}
	}

	if len(p.Files) > 1 {
		fmt.Fprintf(out, "=== %s ===\n", fr.path) //nolint:errcheck
	}
	return report.WriteSummary(out, fr.rep)
}

func outputPath(input string, p scoreParams) string {
	if p.Output != "" {
		return p.Output
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(p.OutputDir, base+".kelayakan."+string(p.Format))
}

func writeRecordsFile(path string, format report.Format, fr fileRun) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "score: create output dir %s", dir)
		}
	}
	w, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "score: create output file %s", path)
	}
	defer w.Close() //nolint:errcheck

	if err := report.Write(w, format, fr.run, fr.rep); err != nil {
		return err
	}
	zap.L().Info("score: records written", zap.String("path", path), zap.String("format", string(format)))
	return nil
}
