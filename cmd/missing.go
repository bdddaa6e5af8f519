package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/fetcher"
	"github.com/sells-group/kelayakan-cli/internal/preprocess"
	"github.com/sells-group/kelayakan-cli/internal/report"
)

var missingCmd = &cobra.Command{
	Use:   "missing <file>",
	Short: "Report missing values per column",
	Long: `Count the blank or absent answers in each column of a survey file.

Only columns with at least one missing value are listed, most-missing first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("score"); err != nil {
			return err
		}
		return runMissing(cmd.Context(), cmd.OutOrStdout(), args[0], applyInputOverrides(cmd, cfg.Input))
	},
}

func init() {
	addInputFlags(missingCmd.Flags())
	rootCmd.AddCommand(missingCmd)
}

func runMissing(ctx context.Context, out io.Writer, path string, in config.InputConfig) error {
	fo, err := fetchOptions(in)
	if err != nil {
		return err
	}
	ds, err := fetcher.LoadFile(ctx, path, fo)
	if err != nil {
		return err
	}

	missing := preprocess.MissingReport(ds)
	zap.L().Debug("missing: report built",
		zap.String("file", path),
		zap.Int("rows", ds.Len()),
		zap.Int("columns_with_missing", len(missing)),
	)
	return report.WriteMissing(out, ds.Len(), missing)
}
