package model

import (
	"fmt"
	"strings"
)

// MalformedInputError reports a source table that cannot be treated as a
// row/column structure.
type MalformedInputError struct {
	Reason string
	Row    int // 1-based data row, 0 when the problem is in the header
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed input: row %d: %s", e.Row, e.Reason)
	}
	return "malformed input: " + e.Reason
}

// Record is one respondent household, keyed by question.
type Record map[string]Value

// Get returns the answer for key. A key absent from the record reads as missing.
func (r Record) Get(key string) Value {
	v, ok := r[key]
	if !ok {
		return MissingValue()
	}
	return v
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Dataset is a column-addressable table of records.
type Dataset struct {
	Columns []string `json:"columns"`
	Records []Record `json:"records"`
}

// NewDataset builds a dataset from a header row and raw string rows. Rows
// shorter than the header are padded with missing values; rows wider than the
// header are rejected.
func NewDataset(header []string, rows [][]string) (*Dataset, error) {
	if len(header) == 0 {
		return nil, &MalformedInputError{Reason: "no header row"}
	}

	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == "" {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("column %d has a blank name", i+1)}
		}
		if seen[name] {
			return nil, &MalformedInputError{Reason: fmt.Sprintf("duplicate column %q", name)}
		}
		seen[name] = true
		cols[i] = name
	}

	ds := &Dataset{Columns: cols, Records: make([]Record, 0, len(rows))}
	for i, row := range rows {
		if len(row) > len(cols) {
			return nil, &MalformedInputError{
				Row:    i + 1,
				Reason: fmt.Sprintf("has %d cells, header has %d", len(row), len(cols)),
			}
		}
		rec := make(Record, len(cols))
		for j, col := range cols {
			if j < len(row) {
				rec[col] = ParseValue(row[j])
			} else {
				rec[col] = MissingValue()
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.Records) }

// MissingColumns returns the names in want that the dataset lacks, in want order.
func (d *Dataset) MissingColumns(want []string) []string {
	have := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		have[c] = true
	}
	var missing []string
	for _, w := range want {
		if !have[w] {
			missing = append(missing, w)
		}
	}
	return missing
}

// Validate checks that every record only carries known columns. Datasets
// built by NewDataset always pass; hand-assembled ones (API payloads) may not.
func (d *Dataset) Validate() error {
	if d == nil {
		return &MalformedInputError{Reason: "nil dataset"}
	}
	if len(d.Columns) == 0 {
		return &MalformedInputError{Reason: "no columns"}
	}
	known := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if strings.TrimSpace(c) == "" {
			return &MalformedInputError{Reason: "blank column name"}
		}
		if known[c] {
			return &MalformedInputError{Reason: fmt.Sprintf("duplicate column %q", c)}
		}
		known[c] = true
	}
	for i, rec := range d.Records {
		if rec == nil {
			return &MalformedInputError{Row: i + 1, Reason: "empty record"}
		}
		for k := range rec {
			if !known[k] {
				return &MalformedInputError{Row: i + 1, Reason: fmt.Sprintf("unknown column %q", k)}
			}
		}
	}
	return nil
}

// Subset returns a dataset sharing the given records and the same columns.
func (d *Dataset) Subset(records []Record) *Dataset {
	return &Dataset{Columns: d.Columns, Records: records}
}
