package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kelayakan-cli/internal/model"
	"github.com/sells-group/kelayakan-cli/internal/profile"
	"github.com/sells-group/kelayakan-cli/internal/scorer"
)

func scored(score float64, label model.Label, kv ...string) model.ScoredRecord {
	rec := model.Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		rec[kv[i]] = model.ParseValue(kv[i+1])
	}
	return model.ScoredRecord{Category: "housing", Record: rec, Score: score, Label: label}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	recs := []model.ScoredRecord{
		scored(60, model.NotEligible),
		scored(100, model.Eligible),
		scored(70, model.Eligible),
	}

	s := Summarize("housing", recs)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Eligible)
	assert.Equal(t, 1, s.NotEligible)
	assert.Equal(t, s.Total, s.Eligible+s.NotEligible)
	assert.InDelta(t, 33.333, s.PercentNotEligible, 0.01)
	assert.InDelta(t, 100, s.PercentEligible+s.PercentNotEligible, 0.01)
	assert.InDelta(t, 60, s.MinScore, 1e-9)
	assert.InDelta(t, 100, s.MaxScore, 1e-9)
	assert.InDelta(t, 76.666, s.MeanScore, 0.01)
	assert.False(t, s.NoData)
	assert.NoError(t, s.Err())
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	s := Summarize("behavior", nil)
	assert.True(t, s.NoData)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.PercentNotEligible)
	assert.ErrorIs(t, s.Err(), ErrNoData)
}

func TestRank(t *testing.T) {
	t.Parallel()

	in := []Summary{
		{Category: "housing", PercentNotEligible: 40},
		{Category: "empty", NoData: true},
		{Category: "sanitation", PercentNotEligible: 75},
		{Category: "behavior", PercentNotEligible: 40},
	}

	got := Rank(in)
	var keys []string
	for _, s := range got {
		keys = append(keys, s.Category)
	}
	assert.Equal(t, []string{"sanitation", "housing", "behavior", "empty"}, keys)
	assert.Equal(t, "housing", in[0].Category, "input untouched")
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "tidak ada", Normalize("  Tidak   Ada "))
	assert.Equal(t, Normalize("TIDAK TERANG"), Normalize("tidak terang"))
	// Decomposed e + combining acute folds to the same text as the composed form.
	assert.Equal(t, Normalize("caf\u00e9"), Normalize("cafe\u0301"))
}

func TestMatches(t *testing.T) {
	t.Parallel()

	rec := model.Record{
		"ventilasi": model.TextValue("Ada, luas ventilasi < 10% dari luas lantai"),
		"lantai":    model.TextValue("Tanah"),
		"jamban":    model.MissingValue(),
	}

	tests := []struct {
		name   string
		factor profile.Factor
		want   bool
	}{
		{"contains", profile.Factor{Column: "ventilasi", Match: profile.MatchContains, Pattern: "< 10%"}, true},
		{"contains case folded", profile.Factor{Column: "ventilasi", Match: profile.MatchContains, Pattern: "LUAS VENTILASI"}, true},
		{"equals", profile.Factor{Column: "lantai", Match: profile.MatchEquals, Pattern: " tanah "}, true},
		{"equals is whole answer", profile.Factor{Column: "ventilasi", Match: profile.MatchEquals, Pattern: "ada"}, false},
		{"prefix", profile.Factor{Column: "ventilasi", Match: profile.MatchPrefix, Pattern: "ada,"}, true},
		{"prefix miss", profile.Factor{Column: "ventilasi", Match: profile.MatchPrefix, Pattern: "luas"}, false},
		{"missing answer never matches", profile.Factor{Column: "jamban", Match: profile.MatchContains, Pattern: ""}, false},
		{"absent column", profile.Factor{Column: "dinding", Match: profile.MatchContains, Pattern: "tembok"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Matches(tt.factor, rec))
		})
	}
}

func TestFactors(t *testing.T) {
	t.Parallel()

	recs := []model.ScoredRecord{
		scored(40, model.NotEligible, "langit_langit", "Tidak ada", "ventilasi", "Tidak Ada"),
		scored(60, model.NotEligible, "langit_langit", "Tidak ada", "ventilasi", "Baik"),
		scored(90, model.Eligible, "langit_langit", "Ada", "ventilasi", "Tidak Ada"),
		scored(100, model.Eligible, "langit_langit", "Ada", "ventilasi", "Baik"),
	}
	factors := []profile.Factor{
		{Label: "Lantai tanah", Column: "lantai", Match: profile.MatchEquals, Pattern: "tanah"},
		{Label: "Tidak ada ventilasi", Column: "ventilasi", Match: profile.MatchEquals, Pattern: "tidak ada"},
		{Label: "Tidak ada langit-langit", Column: "langit_langit", Match: profile.MatchEquals, Pattern: "tidak ada"},
		{Label: "Ventilasi baik", Column: "ventilasi", Match: profile.MatchEquals, Pattern: "baik"},
		{Label: "Ada langit-langit", Column: "langit_langit", Match: profile.MatchPrefix, Pattern: "ada"},
	}

	got := Factors(recs, factors)
	require.Len(t, got, 4, "zero-match factor omitted")

	// All tie at 2 of 4; definition order is kept.
	assert.Equal(t, "Tidak ada ventilasi", got[0].Label)
	assert.Equal(t, "Tidak ada langit-langit", got[1].Label)
	assert.Equal(t, "Ventilasi baik", got[2].Label)
	assert.Equal(t, "Ada langit-langit", got[3].Label)
	for _, f := range got {
		assert.Equal(t, 2, f.Count)
		assert.InDelta(t, 50, f.Percent, 1e-9, "percent of total population")
	}
}

func TestFactors_OrderByCount(t *testing.T) {
	t.Parallel()

	recs := []model.ScoredRecord{
		scored(40, model.NotEligible, "lantai", "Tanah", "dinding", "Bukan tembok"),
		scored(40, model.NotEligible, "lantai", "Ubin/keramik/marmer", "dinding", "Bukan tembok"),
		scored(40, model.NotEligible, "lantai", "Ubin/keramik/marmer", "dinding", "Bukan tembok"),
	}
	factors := []profile.Factor{
		{Label: "Lantai tanah", Column: "lantai", Match: profile.MatchEquals, Pattern: "tanah"},
		{Label: "Dinding bukan tembok", Column: "dinding", Match: profile.MatchEquals, Pattern: "bukan tembok"},
	}
	got := Factors(recs, factors)
	require.Len(t, got, 2)
	assert.Equal(t, "Dinding bukan tembok", got[0].Label)
	assert.Equal(t, 3, got[0].Count)
	assert.InDelta(t, 33.333, got[1].Percent, 0.01)
}

func TestFactors_Empty(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Factors(nil, []profile.Factor{{Label: "x", Column: "y", Pattern: "z"}}))
}

func TestBuild(t *testing.T) {
	t.Parallel()

	prof, err := profile.Builtin("rumah-sehat")
	require.NoError(t, err)
	prof.Imputation = profile.ImputeNone

	ds, err := model.NewDataset(
		[]string{"jamban", "sarana_air_bersih", "saluran_pembuangan_air_limbah", "tempat_sampah"},
		[][]string{
			{"Tidak ada", "Tidak ada", "Tidak ada", "Tidak ada"},
			{"Ada, leher angsa dengan septic tank", "Ada, milik sendiri dan memenuhi syarat kesehatan",
				"Ada, dialirkan ke selokan tertutup", "Ada, kedap air dan tertutup"},
		},
	)
	require.NoError(t, err)

	eng, err := scorer.NewEngine(prof, scorer.Options{})
	require.NoError(t, err)
	run, err := eng.ScoreAll(context.Background(), ds)
	require.NoError(t, err)

	rep := Build(run, prof)
	assert.Equal(t, run.RunID, rep.RunID)
	require.Len(t, rep.Categories, 1)
	assert.Len(t, rep.Skipped, 2, "housing and behavior columns are absent")

	san := rep.Categories[0]
	assert.Equal(t, "sanitation", san.Summary.Category)
	assert.Equal(t, "Sanitasi", san.Summary.Name)
	assert.InDelta(t, 50, san.Summary.PercentNotEligible, 1e-9)
	require.NotEmpty(t, san.Factors)
	assert.Equal(t, "Tidak ada sarana air bersih", san.Factors[0].Label)
	assert.Len(t, rep.Ranking, 1)
}
