package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ykato27/keiba-engine/internal/betting"
	"github.com/ykato27/keiba-engine/internal/validation"
)

// ExportValidationCSV writes one row per fold for spreadsheets
func ExportValidationCSV(r validation.ValidationReport, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("fold_index,valid,train_start,train_end,test_start,test_end,days_gap,divergence,errors,warnings\n")
	for _, v := range r.Verdicts {
		builder.WriteString(fmt.Sprintf("%d,%t,%s,%s,%s,%s,%d,%.4f,%s,%s\n",
			v.FoldIndex,
			v.Valid,
			v.TrainRange[0].Format("2006-01-02"),
			v.TrainRange[1].Format("2006-01-02"),
			v.TestRange[0].Format("2006-01-02"),
			v.TestRange[1].Format("2006-01-02"),
			v.DaysGap,
			v.Divergence,
			csvField(strings.Join(v.Errors, "; ")),
			csvField(strings.Join(v.Warnings, "; ")),
		))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

// ExportPlanCSV writes one row per recommended stake
func ExportPlanCSV(plan betting.AllocationPlan, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("candidate_id,candidate_name,probability,price,expected_value,kelly_fraction,safe_fraction,stake,flags\n")
	for _, entry := range plan.Entries {
		builder.WriteString(fmt.Sprintf("%s,%s,%.6f,%.2f,%.6f,%.6f,%.6f,%.2f,%s\n",
			entry.CandidateID,
			csvField(entry.CandidateName),
			entry.Probability,
			entry.Price,
			entry.ExpectedValue,
			entry.KellyFraction,
			entry.SafeFraction,
			entry.RecommendedStake,
			strings.Join(entry.Flags, ";"),
		))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}

// ExportJSON writes any report type that already knows how to marshal itself
func ExportJSON(payload string, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, []byte(payload), 0o644)
}

// csvField guards free-text fields containing commas
func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
	}
	return s
}
