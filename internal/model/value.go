// Package model defines the survey records, datasets, and scored results shared
// across the scoring engine.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind identifies what a survey cell holds.
type Kind int

// Cell kinds.
const (
	Missing Kind = iota
	Text
	Number
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Number:
		return "number"
	default:
		return "missing"
	}
}

// missingTokens are cell contents treated as no answer (compared case-insensitively).
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
}

// Value is a single answer: free text, a number, or missing. Text holds the
// trimmed answer as written, for numbers too; it is empty only for missing
// values and computed numbers such as imputed means.
type Value struct {
	Kind Kind
	Text string
	Num  float64
}

// TextValue returns a categorical answer.
func TextValue(s string) Value { return Value{Kind: Text, Text: s} }

// NumberValue returns a numeric answer.
func NumberValue(f float64) Value { return Value{Kind: Number, Num: f} }

// MissingValue returns an empty answer.
func MissingValue() Value { return Value{} }

// ParseValue classifies a raw cell. Surrounding whitespace is trimmed before
// classification; text answers keep their inner spacing and case.
func ParseValue(cell string) Value {
	s := strings.TrimSpace(cell)
	if missingTokens[strings.ToLower(s)] {
		return MissingValue()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Value{Kind: Number, Text: s, Num: f}
	}
	return TextValue(s)
}

// IsMissing reports whether the value holds no answer.
func (v Value) IsMissing() bool { return v.Kind == Missing }

// String returns the answer text used for weight lookups: the text as written,
// so "01" and "1.0" stay distinct. Computed numbers are formatted in their
// shortest exact form; missing values are empty.
func (v Value) String() string {
	switch v.Kind {
	case Text:
		return v.Text
	case Number:
		if v.Text != "" {
			return v.Text
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes missing as null, numbers as JSON numbers and text as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Text:
		return json.Marshal(v.Text)
	case Number:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, a number, or a string. Strings go through
// ParseValue so "" and "NA" read as missing.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = MissingValue()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = ParseValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return &MalformedInputError{Reason: "answer must be a string, number or null: " + string(data)}
	}
	*v = Value{Kind: Number, Text: string(data), Num: f}
	return nil
}
