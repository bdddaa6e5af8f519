package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/kelayakan-cli/internal/model"
)

// Options selects how a survey file is read.
type Options struct {
	Delimiter rune   // CSV only; 0 sniffs
	Encoding  string // CSV only; empty means UTF-8
	Sheet     string // XLSX only; empty reads the first sheet
}

// StdinPath is the path that reads CSV from standard input.
const StdinPath = "-"

// LoadFile reads a survey table from path. The format follows the extension:
// .xlsx is read as a workbook, .csv, .tsv and .txt as delimited text.
func LoadFile(ctx context.Context, path string, opts Options) (*model.Dataset, error) {
	if path == StdinPath {
		return ReadCSV(ctx, os.Stdin, opts.csv())
	}

	var (
		ds  *model.Dataset
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx":
		ds, err = LoadXLSX(path, XLSXOptions{SheetName: opts.Sheet})
	case ".csv", ".tsv", ".txt":
		ds, err = loadCSVFile(ctx, path, opts)
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	zap.L().Debug("fetcher: loaded dataset",
		zap.String("path", path),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("rows", ds.Len()),
	)
	return ds, nil
}

// Load reads a survey table from r in the named format ("csv" or "xlsx").
func Load(ctx context.Context, r io.Reader, format string, opts Options) (*model.Dataset, error) {
	switch strings.ToLower(format) {
	case "", "csv":
		return ReadCSV(ctx, r, opts.csv())
	case "xlsx":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read workbook")
		}
		rows, err := ReadXLSXBytes(data, XLSXOptions{SheetName: opts.Sheet})
		if err != nil {
			return nil, err
		}
		return sheetDataset(rows)
	default:
		return nil, eris.Errorf("fetcher: unsupported format %q", format)
	}
}

func loadCSVFile(ctx context.Context, path string, opts Options) (*model.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: open file")
	}
	defer f.Close() //nolint:errcheck

	co := opts.csv()
	if co.Delimiter == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		co.Delimiter = '\t'
	}
	return ReadCSV(ctx, f, co)
}

func (o Options) csv() CSVOptions {
	return CSVOptions{
		Delimiter:  o.Delimiter,
		Encoding:   o.Encoding,
		LazyQuotes: true,
	}
}
