package scorer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/preprocess"
	"github.com/sells-group/kelayakan-cli/internal/profile"
)

// MissingColumnsError reports a category whose questions are not all present
// in the dataset. The category is skipped; other categories still score.
type MissingColumnsError struct {
	Category string
	Columns  []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("category %s: dataset is missing columns: %s", e.Category, strings.Join(e.Columns, ", "))
}

// CategoryResult is the scored population of one category.
type CategoryResult struct {
	Category   string               `json:"category"`
	Name       string               `json:"name"`
	Questions  []string             `json:"questions"`
	Threshold  float64              `json:"threshold"`
	Prepare    preprocess.Report    `json:"prepare"`
	Records    []model.ScoredRecord `json:"records"`
	Breakdowns []Breakdown          `json:"-"`
}

// Skipped names a category that could not be scored.
type Skipped struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// RunResult holds every category scored in one run, in profile order.
type RunResult struct {
	RunID      string           `json:"run_id"`
	Profile    string           `json:"profile"`
	Threshold  float64          `json:"threshold"`
	Duplicates int              `json:"duplicates"`
	Categories []CategoryResult `json:"categories"`
	Skipped    []Skipped        `json:"skipped,omitempty"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// Options tune an Engine. Nil or zero fields take the profile's settings. A
// non-nil Threshold replaces the profile's, including 0.
type Options struct {
	Threshold   *float64
	Imputation  profile.Imputation
	Concurrency int
}

// Engine scores datasets against one profile. It holds no mutable state and
// is safe for concurrent use.
type Engine struct {
	prof        *profile.Profile
	threshold   float64
	imputation  profile.Imputation
	concurrency int
}

// NewEngine binds a validated profile and options.
func NewEngine(prof *profile.Profile, opts Options) (*Engine, error) {
	if prof == nil {
		return nil, eris.New("scorer: nil profile")
	}
	if err := profile.Validate(prof); err != nil {
		return nil, err
	}

	e := &Engine{
		prof:        prof,
		threshold:   prof.Threshold,
		imputation:  prof.Imputation,
		concurrency: opts.Concurrency,
	}
	if t := opts.Threshold; t != nil {
		if *t < 0 || *t > 100 || math.IsNaN(*t) {
			return nil, eris.Errorf("scorer: threshold %.2f out of range 0..100", *t)
		}
		e.threshold = *t
	}
	if opts.Imputation != "" {
		if !profile.ValidImputation(opts.Imputation) {
			return nil, eris.Errorf("scorer: unknown imputation policy %q", opts.Imputation)
		}
		e.imputation = opts.Imputation
	}
	if e.concurrency <= 0 {
		e.concurrency = 1
	}
	return e, nil
}

// Threshold returns the effective eligibility threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// ScoreCategory preprocesses ds for one category and scores every remaining
// record. A *MissingColumnsError is returned when ds lacks category questions.
func (e *Engine) ScoreCategory(ctx context.Context, ds *model.Dataset, key string) (*CategoryResult, error) {
	questions, err := e.prof.Questions(key)
	if err != nil {
		return nil, eris.Wrap(err, "scorer")
	}
	cat, _ := e.prof.Category(key)
	if err := ds.Validate(); err != nil {
		return nil, eris.Wrap(err, "scorer: validate dataset")
	}
	if missing := ds.MissingColumns(questions); len(missing) > 0 {
		return nil, &MissingColumnsError{Category: key, Columns: missing}
	}

	clean, rep, err := preprocess.Prepare(ds, e.imputation, questions)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: prepare %s", key)
	}

	res := &CategoryResult{
		Category:   key,
		Name:       cat.Name,
		Questions:  questions,
		Threshold:  e.threshold,
		Prepare:    rep,
		Records:    make([]model.ScoredRecord, 0, clean.Len()),
		Breakdowns: make([]Breakdown, 0, clean.Len()),
	}
	for i, rec := range clean.Records {
		if i%256 == 0 && ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "scorer: context cancelled")
		}
		b := ScoreRow(rec, questions, cat.Weights, e.prof.Denominator)
		res.Records = append(res.Records, model.ScoredRecord{
			Row:      rep.Rows[i],
			Category: key,
			Record:   rec,
			Total:    b.Total,
			Max:      b.Max,
			Score:    b.Score,
			Label:    Classify(b.Score, e.threshold),
		})
		res.Breakdowns = append(res.Breakdowns, b)
	}

	zap.L().Debug("scorer: category scored",
		zap.String("category", key),
		zap.Int("records", len(res.Records)),
		zap.Int("excluded", rep.Excluded),
	)
	return res, nil
}

// ScoreAll scores every profile category, fanning out across categories.
// Categories missing columns are recorded in Skipped and do not fail the run.
func (e *Engine) ScoreAll(ctx context.Context, ds *model.Dataset) (*RunResult, error) {
	return e.ScoreCategories(ctx, ds, e.prof.CategoryKeys())
}

// ScoreCategories scores the named categories. Results keep the given order;
// a key named more than once is scored once.
func (e *Engine) ScoreCategories(ctx context.Context, ds *model.Dataset, keys []string) (*RunResult, error) {
	start := time.Now()
	keys = uniqueKeys(keys)
	if err := ds.Validate(); err != nil {
		return nil, eris.Wrap(err, "scorer: validate dataset")
	}
	for _, k := range keys {
		if _, ok := e.prof.Category(k); !ok {
			return nil, eris.Errorf("scorer: unknown category %q", k)
		}
	}

	run := &RunResult{
		RunID:     uuid.NewString(),
		Profile:   e.prof.Name,
		Threshold: e.threshold,
	}
	log := zap.L().With(zap.String("run_id", run.RunID), zap.String("profile", e.prof.Name))

	results := make([]*CategoryResult, len(keys))
	skipped := make([]*Skipped, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var mu sync.Mutex
	for i, key := range keys {
		g.Go(func() error {
			res, err := e.ScoreCategory(gctx, ds, key)
			if err != nil {
				var mcErr *MissingColumnsError
				if errors.As(err, &mcErr) {
					log.Warn("scorer: skipping category",
						zap.String("category", key),
						zap.Strings("missing_columns", mcErr.Columns),
					)
					mu.Lock()
					skipped[i] = &Skipped{Category: key, Reason: mcErr.Error(), Err: mcErr}
					mu.Unlock()
					return nil
				}
				return err
			}
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range keys {
		if results[i] != nil {
			run.Categories = append(run.Categories, *results[i])
		}
		if skipped[i] != nil {
			run.Skipped = append(run.Skipped, *skipped[i])
		}
	}
	_, run.Duplicates = preprocess.Deduplicate(ds)
	run.Elapsed = time.Since(start)

	log.Info("scorer: run complete",
		zap.Int("records", ds.Len()),
		zap.Int("categories_scored", len(run.Categories)),
		zap.Int("categories_skipped", len(run.Skipped)),
		zap.Duration("elapsed", run.Elapsed),
	)
	return run, nil
}

func uniqueKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
