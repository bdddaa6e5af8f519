package scorer

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/kelayakan-cli/internal/config"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// MaxConcurrency bounds the category fan-out.
const MaxConcurrency = 64

// DefaultScoringConfig returns the engine settings used when nothing is configured.
func DefaultScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		Threshold:   nil, // profile's threshold
		Imputation:  "",
		Concurrency: 4,
	}
}

// ValidateConfig checks that a ScoringConfig is internally consistent.
func ValidateConfig(c config.ScoringConfig) error {
	var errs []string

	if t := c.Threshold; t != nil && (*t < 0 || *t > 100) {
		errs = append(errs, fmt.Sprintf("threshold must be between 0 and 100, got %g", *t))
	}
	if c.Concurrency < 0 || c.Concurrency > MaxConcurrency {
		errs = append(errs, fmt.Sprintf("concurrency must be between 0 and %d", MaxConcurrency))
	}
	if c.Imputation != "" && !profile.ValidImputation(profile.Imputation(c.Imputation)) {
		errs = append(errs, fmt.Sprintf("imputation %q is not one of none, mean_mode, exclude_rows", c.Imputation))
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// OptionsFromConfig validates c and converts it to engine options.
func OptionsFromConfig(c config.ScoringConfig) (Options, error) {
	if err := ValidateConfig(c); err != nil {
		return Options{}, err
	}
	return Options{
		Threshold:   c.Threshold,
		Imputation:  profile.Imputation(c.Imputation),
		Concurrency: c.Concurrency,
	}, nil
}
