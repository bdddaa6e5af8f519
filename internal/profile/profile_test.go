package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightTable_Weight(t *testing.T) {
	t.Parallel()

	w := WeightTable{
		"langit_langit": {"Ada": 5, "Tidak ada": 1},
	}

	pts, ok := w.Weight("langit_langit", "Ada")
	assert.True(t, ok)
	assert.Equal(t, 5, pts)

	_, ok = w.Weight("langit_langit", "ada")
	assert.False(t, ok, "lookup is exact")

	_, ok = w.Weight("lantai", "Tanah")
	assert.False(t, ok, "unknown question")
}

func TestBuiltinNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"dashboard-legacy", "rumah-sehat"}, BuiltinNames())
}

func TestBuiltin_RumahSehat(t *testing.T) {
	t.Parallel()

	p, err := Builtin("rumah-sehat")
	require.NoError(t, err)

	assert.Equal(t, "rumah-sehat", p.Name)
	assert.InDelta(t, 70, p.Threshold, 0.001)
	assert.Equal(t, ImputeExcludeRows, p.Imputation)
	assert.Equal(t, DenominatorRecognized, p.Denominator)
	assert.Equal(t, []string{"housing", "sanitation", "behavior"}, p.CategoryKeys())

	qs, err := p.Questions("housing")
	require.NoError(t, err)
	assert.Len(t, qs, 8)
	assert.Equal(t, "langit_langit", qs[0])

	housing, ok := p.Category("housing")
	require.True(t, ok)
	pts, ok := housing.Weights.Weight("lantai", "Tanah")
	assert.True(t, ok)
	assert.Equal(t, 1, pts)
	assert.NotEmpty(t, housing.Factors)
}

func TestBuiltin_DashboardLegacy(t *testing.T) {
	t.Parallel()

	p, err := Builtin("dashboard-legacy")
	require.NoError(t, err)

	assert.Equal(t, ImputeMeanMode, p.Imputation)
	assert.Equal(t, DenominatorAll, p.Denominator)

	housing, ok := p.Category("housing")
	require.True(t, ok)
	assert.Len(t, housing.Questions, 9)
	assert.Contains(t, housing.Questions, "status_rumah")
	_, weighted := housing.Weights["status_rumah"]
	assert.False(t, weighted)
}

func TestBuiltin_ReturnsFreshCopy(t *testing.T) {
	t.Parallel()

	a, err := Builtin("rumah-sehat")
	require.NoError(t, err)
	a.Threshold = 10

	b, err := Builtin("rumah-sehat")
	require.NoError(t, err)
	assert.InDelta(t, 70, b.Threshold, 0.001)
}

func TestBuiltin_Unknown(t *testing.T) {
	t.Parallel()

	_, err := Builtin("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown built-in profile "nope"`)
}

func TestQuestions_UnknownCategory(t *testing.T) {
	t.Parallel()

	p, err := Builtin("rumah-sehat")
	require.NoError(t, err)
	_, err = p.Questions("kitchen")
	assert.Error(t, err)
}

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	data := []byte(`
profile:
  name: minimal
  categories:
    - key: housing
      questions: [langit_langit, lantai]
      weights:
        langit_langit: {"Ada": 5, "Tidak ada": 1}
        lantai: {"Ubin/keramik/marmer": 5, "Tanah": 1}
      factors:
        - label: Lantai tanah
          column: lantai
          pattern: tanah
`)
	p, err := Parse(data)
	require.NoError(t, err)
	assert.InDelta(t, DefaultThreshold, p.Threshold, 0.001)
	assert.Equal(t, ImputeNone, p.Imputation)
	assert.Equal(t, DenominatorRecognized, p.Denominator)
	assert.Equal(t, MatchContains, p.Categories[0].Factors[0].Match)
}

func TestParse_ExplicitZeroThreshold(t *testing.T) {
	t.Parallel()

	data := []byte(`
profile:
  name: open
  threshold: 0
  categories:
    - key: housing
      questions: [lantai]
      weights:
        lantai: {"Ubin/keramik/marmer": 5, "Tanah": 1}
`)
	p, err := Parse(data)
	require.NoError(t, err)
	assert.Zero(t, p.Threshold)

	out, err := Marshal(p)
	require.NoError(t, err)
	back, err := Parse(out)
	require.NoError(t, err)
	assert.Zero(t, back.Threshold)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "bad yaml",
			yaml: "profile: [",
			want: "parse yaml",
		},
		{
			name: "no categories",
			yaml: "profile:\n  name: x\n",
			want: "at least one category is required",
		},
		{
			name: "weight out of range",
			yaml: `
profile:
  name: x
  categories:
    - key: housing
      questions: [lantai]
      weights:
        lantai: {"Tanah": 6}
`,
			want: "has 6 points, want 1..5",
		},
		{
			name: "weighted question not listed",
			yaml: `
profile:
  name: x
  categories:
    - key: housing
      questions: [lantai]
      weights:
        jamban: {"Ada": 5}
`,
			want: `weighted question "jamban" is not in the question list`,
		},
		{
			name: "bad threshold",
			yaml: `
profile:
  name: x
  threshold: 120
  categories:
    - key: housing
      questions: [lantai]
`,
			want: "threshold must be between 0 and 100",
		},
		{
			name: "unknown imputation",
			yaml: `
profile:
  name: x
  imputation: median
  categories:
    - key: housing
      questions: [lantai]
`,
			want: `unknown imputation "median"`,
		},
		{
			name: "duplicate category",
			yaml: `
profile:
  name: x
  categories:
    - key: housing
      questions: [lantai]
    - key: housing
      questions: [dinding]
`,
			want: `duplicate category "housing"`,
		},
		{
			name: "unknown match kind",
			yaml: `
profile:
  name: x
  categories:
    - key: housing
      questions: [lantai]
      factors:
        - label: Lantai tanah
          column: lantai
          match: regex
          pattern: tanah
`,
			want: `unknown match "regex"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	orig, err := Builtin("dashboard-legacy")
	require.NoError(t, err)

	data, err := Marshal(orig)
	require.NoError(t, err)

	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, orig, again)
}

func TestLoadAndResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profile:
  name: custom
  threshold: 60
  categories:
    - key: sanitation
      questions: [jamban]
      weights:
        jamban: {"Ada": 5, "Tidak ada": 1}
`), 0o644))

	p, err := Resolve("rumah-sehat", path)
	require.NoError(t, err)
	assert.Equal(t, "custom", p.Name)
	assert.InDelta(t, 60, p.Threshold, 0.001)

	p, err = Resolve("rumah-sehat", "")
	require.NoError(t, err)
	assert.Equal(t, "rumah-sehat", p.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile: read")
}
