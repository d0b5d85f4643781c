package validation

import (
	"encoding/json"
	"time"
)

// ClassShare describes one class's share of a fold partition
type ClassShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// FoldVerdict represents the outcome of checking a single fold
type FoldVerdict struct {
	FoldIndex         int                `json:"fold_index"`
	Valid             bool               `json:"valid"`
	Errors            []string           `json:"errors"`
	Warnings          []string           `json:"warnings"`
	TrainRange        [2]time.Time       `json:"train_range"`
	TestRange         [2]time.Time       `json:"test_range"`
	DaysGap           int                `json:"days_gap"`
	TrainDistribution map[int]ClassShare `json:"train_distribution"`
	TestDistribution  map[int]ClassShare `json:"test_distribution"`
	Divergence        float64            `json:"divergence"`
}

// ValidationReport aggregates fold verdicts for one cross-validation run
type ValidationReport struct {
	TotalFolds   int           `json:"total_folds"`
	ValidFolds   int           `json:"valid_folds"`
	InvalidFolds int           `json:"invalid_folds"`
	AllValid     bool          `json:"all_valid"`
	Verdicts     []FoldVerdict `json:"verdicts"`
}

// AllWarnings returns every non-fatal warning across all folds
func (r ValidationReport) AllWarnings() []string {
	warnings := []string{}
	for _, v := range r.Verdicts {
		warnings = append(warnings, v.Warnings...)
	}
	return warnings
}

// ToJSON exports the report for persistence or rendering by the caller
func (r ValidationReport) ToJSON() string {
	data, _ := json.Marshal(r)
	return string(data)
}
