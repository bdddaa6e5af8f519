package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/fetcher"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// addInputFlags registers the flags shared by commands that read survey files.
func addInputFlags(f *pflag.FlagSet) {
	f.String("delimiter", "", `CSV delimiter, "tab" for tabs (default: sniffed)`)
	f.String("encoding", "", "CSV character encoding, e.g. windows-1252 (default from config)")
	f.String("sheet", "", "XLSX sheet name (default: first sheet)")
}

// addProfileFlags registers profile selection flags.
func addProfileFlags(f *pflag.FlagSet) {
	f.String("profile", "", "built-in profile name (default from config)")
	f.String("profile-file", "", "YAML profile file, overrides --profile")
}

// applyInputOverrides returns a copy of the base input config with CLI flag overrides applied.
func applyInputOverrides(cmd *cobra.Command, base config.InputConfig) config.InputConfig {
	c := base
	if v, _ := cmd.Flags().GetString("delimiter"); v != "" {
		c.Delimiter = v
	}
	if v, _ := cmd.Flags().GetString("encoding"); v != "" {
		c.Encoding = v
	}
	if v, _ := cmd.Flags().GetString("sheet"); v != "" {
		c.Sheet = v
	}
	return c
}

// applyProfileOverrides returns a copy of the base profile config with CLI flag overrides applied.
func applyProfileOverrides(cmd *cobra.Command, base config.ProfileConfig) config.ProfileConfig {
	c := base
	if v, _ := cmd.Flags().GetString("profile"); v != "" {
		c.Name = v
		c.Path = ""
	}
	if v, _ := cmd.Flags().GetString("profile-file"); v != "" {
		c.Path = v
	}
	return c
}

// fetchOptions converts an input config to loader options.
func fetchOptions(c config.InputConfig) (fetcher.Options, error) {
	delim, err := c.DelimiterRune()
	if err != nil {
		return fetcher.Options{}, err
	}
	return fetcher.Options{Delimiter: delim, Encoding: c.Encoding, Sheet: c.Sheet}, nil
}

func loadProfile(c config.ProfileConfig) (*profile.Profile, error) {
	return profile.Resolve(c.Name, c.Path)
}
