package fetcher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/kelayakan-cli/internal/model"
)

func collectRows(t *testing.T, rowCh <-chan []string, errCh <-chan error) ([][]string, error) {
	t.Helper()
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	// Drain error channel
	for err := range errCh {
		if err != nil {
			return rows, err
		}
	}
	return rows, nil
}

func TestStreamCSV_Basic(t *testing.T) {
	input := "a,b,c\n1,2,3\n4,5,6\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
	assert.Equal(t, []string{"4", "5", "6"}, rows[2])
}

func TestStreamCSV_ExplicitDelimiter(t *testing.T) {
	input := "a|b|c\n1|2|3\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: '|'})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestStreamCSV_SniffedDelimiter(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"semicolon", "a;b;c\n1;2;3\n"},
		{"tab", "a\tb\tc\n1\t2\t3\n"},
		{"pipe", "a|b|c\n1|2|3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(tt.input), CSVOptions{})
			rows, err := collectRows(t, rowCh, errCh)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, []string{"a", "b", "c"}, rows[0])
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		sample string
		want   rune
	}{
		{"a,b,c\n1,2,3", ','},
		{"a;b;c", ';'},
		{"a\tb", '\t'},
		{`"x;y;z",b,c`, ','},
		{"single", ','},
		{"", ','},
		{"a;b\nc,d,e,f,g", ';'},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SniffDelimiter([]byte(tt.sample)), "sample %q", tt.sample)
	}
}

func TestStreamCSV_Encoding(t *testing.T) {
	input := "nama,lantai\n" + "Jos\xe9,Tanah\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Encoding: "windows-1252"})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "José", rows[1][0])
}

func TestStreamCSV_UnknownEncoding(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader("a\n1\n"), CSVOptions{Encoding: "klingon-8"})
	_, err := collectRows(t, rowCh, errCh)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported encoding")
}

func TestStreamCSV_Empty(t *testing.T) {
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(""), CSVOptions{})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStreamCSV_LazyQuotes(t *testing.T) {
	// Malformed CSV with quotes in unquoted field
	input := `a,b,c
1,"hello "world",3
`
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		LazyQuotes: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
}

func TestStreamCSV_TrimSpace(t *testing.T) {
	input := " a , b , c \n 1 , 2 , 3 \n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		TrimSpace: true,
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, rows[1])
}

func TestStreamCSV_Comment(t *testing.T) {
	input := "# exported from survey form\na,b\n1,2\n# another comment\n3,4\n"
	rowCh, errCh := StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		Comment: '#',
	})
	rows, err := collectRows(t, rowCh, errCh)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"a", "b"}, rows[0])
	assert.Equal(t, []string{"3", "4"}, rows[2])
}

func TestStreamCSV_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()
	time.Sleep(5 * time.Millisecond)

	input := "a,b,c\n1,2,3\n"
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(input), CSVOptions{})

	for range rowCh {
	}
	var gotErr error
	for err := range errCh {
		if err != nil {
			gotErr = err
		}
	}
	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "context")
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	input := "\ufefflangit_langit;lantai;jamban\nAda;Tanah;\nTidak ada;Ubin/keramik/marmer;Tidak ada\n\n"
	ds, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"langit_langit", "lantai", "jamban"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, model.TextValue("Tanah"), ds.Records[0].Get("lantai"))
	assert.True(t, ds.Records[0].Get("jamban").IsMissing())
}

func TestReadCSV_TrailingEmptyCells(t *testing.T) {
	t.Parallel()

	input := "a,b,\n1,2,\n3,4,,\n"
	ds, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
	assert.Equal(t, 2, ds.Len())
}

func TestReadCSV_DelimiterOnlyRowIsMissing(t *testing.T) {
	t.Parallel()

	input := "a,b\n1,2\n,\n\n"
	ds, err := ReadCSV(context.Background(), strings.NewReader(input), CSVOptions{})
	require.NoError(t, err)

	require.Equal(t, 2, ds.Len(), "delimited blank row kept, empty line dropped")
	assert.True(t, ds.Records[1].Get("a").IsMissing())
	assert.True(t, ds.Records[1].Get("b").IsMissing())
}

func TestReadCSV_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"wide row", "a,b\n1,2,3\n"},
		{"duplicate column", "a,a\n1,2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadCSV(context.Background(), strings.NewReader(tt.input), CSVOptions{})
			require.Error(t, err)
			var mErr *model.MalformedInputError
			assert.ErrorAs(t, err, &mErr)
		})
	}
}
