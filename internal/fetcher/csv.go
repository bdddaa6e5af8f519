// Package fetcher reads survey tables from CSV and XLSX files into datasets.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/kelayakan-cli/internal/model"
)

// sniffSize is how much of the input is inspected to guess the delimiter.
const sniffSize = 4096

// Delimiters tried by SniffDelimiter, in preference order on ties.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune   // 0 sniffs from the header line
	Encoding   string // charset label such as "windows-1252"; empty means UTF-8
	Comment    rune   // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads a CSV file and sends rows, header included, to a channel.
// Caller must consume the returned row channel. Errors are sent on the error
// channel. Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		src, err := decodeReader(r, opts.Encoding)
		if err != nil {
			errCh <- err
			return
		}

		br := bufio.NewReaderSize(src, sniffSize)
		delim := opts.Delimiter
		if delim == 0 {
			sample, _ := br.Peek(sniffSize)
			delim = SniffDelimiter(sample)
		}

		reader := csv.NewReader(br)
		reader.Comma = delim
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // ragged rows are checked by the dataset

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV parses a whole CSV stream into a dataset. The first row is the header.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*model.Dataset, error) {
	rowCh, errCh := StreamCSV(ctx, r, opts)

	var header []string
	var rows [][]string
	for row := range rowCh {
		if header == nil {
			header = row
			continue
		}
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}

	return toDataset(header, rows, true)
}

// SniffDelimiter guesses the field separator from the first line of sample,
// ignoring separators inside quoted fields. It falls back to a comma.
func SniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}

	best, bestN := ',', 0
	for _, c := range delimiterCandidates {
		if n := countUnquoted(line, c); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}

func countUnquoted(line []byte, c rune) int {
	n := 0
	quoted := false
	for _, r := range string(line) {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}

func decodeReader(r io.Reader, label string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported encoding %q", label)
	}
	return enc.NewDecoder().Reader(r), nil
}

// toDataset drops blank rows and trailing empty cells past the header width
// before handing the table to the model. With keepDelimited, a row of empty
// delimited cells (such as ",,") stays as an all-missing record and only
// single-cell blank lines are dropped.
func toDataset(header []string, rows [][]string, keepDelimited bool) (*model.Dataset, error) {
	if header == nil {
		return nil, &model.MalformedInputError{Reason: "empty input"}
	}
	for len(header) > 1 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	width := len(header)
	kept := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isBlank(row) && (!keepDelimited || len(row) <= 1) {
			continue
		}
		for len(row) > width && strings.TrimSpace(row[len(row)-1]) == "" {
			row = row[:len(row)-1]
		}
		kept = append(kept, row)
	}
	return model.NewDataset(header, kept)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
