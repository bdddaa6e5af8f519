package model

// Output column names added to each scored table.
const (
	ColumnScore = "Skor Kelayakan"
	ColumnLabel = "Label"
)

// Label is the eligibility outcome for a scored record.
type Label string

// Eligibility labels.
const (
	Eligible    Label = "Layak"
	NotEligible Label = "Tidak Layak"
)

// ScoredRecord is a record scored against one category. It is never mutated
// after the scorer creates it.
type ScoredRecord struct {
	Row      int     `json:"row"` // index into the source dataset
	Category string  `json:"category"`
	Record   Record  `json:"record"`
	Total    int     `json:"total"`
	Max      int     `json:"max"`
	Score    float64 `json:"score"`
	Label    Label   `json:"label"`
}
