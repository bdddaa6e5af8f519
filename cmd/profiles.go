package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kelayakan-cli/internal/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the built-in scoring profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listProfiles(cmd.OutOrStdout())
	},
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a profile as YAML",
	Long: `Print a profile's weight tables, categories and factors as YAML.

The output can be edited and passed back with --profile-file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pc := applyProfileOverrides(cmd, cfg.Profile)
		if len(args) == 1 {
			pc.Name, pc.Path = args[0], ""
		}
		p, err := loadProfile(pc)
		if err != nil {
			return err
		}
		return showProfile(cmd.OutOrStdout(), p)
	},
}

func init() {
	profilesShowCmd.Flags().String("profile-file", "", "YAML profile file to validate and print")
	profilesCmd.AddCommand(profilesShowCmd)
	rootCmd.AddCommand(profilesCmd)
}

func listProfiles(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTHRESHOLD\tIMPUTATION\tDENOMINATOR\tCATEGORIES") //nolint:errcheck
	for _, name := range profile.BuiltinNames() {
		p, err := profile.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%g\t%s\t%s\t%s\n", //nolint:errcheck
			p.Name, p.Threshold, p.Imputation, p.Denominator, strings.Join(p.CategoryKeys(), ","))
	}
	return eris.Wrap(tw.Flush(), "profiles: write list")
}

func showProfile(out io.Writer, p *profile.Profile) error {
	data, err := profile.Marshal(p)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return eris.Wrap(err, "profiles: write yaml")
}
