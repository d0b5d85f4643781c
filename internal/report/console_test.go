package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykato27/keiba-engine/internal/betting"
	"github.com/ykato27/keiba-engine/internal/evaluation"
	"github.com/ykato27/keiba-engine/internal/validation"
)

func sampleValidationReport() validation.ValidationReport {
	trainStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return validation.ValidationReport{
		TotalFolds: 2,
		ValidFolds: 1,
		Verdicts: []validation.FoldVerdict{
			{
				FoldIndex:  0,
				Valid:      true,
				TrainRange: [2]time.Time{trainStart, trainStart.AddDate(0, 0, 30)},
				TestRange:  [2]time.Time{trainStart.AddDate(0, 1, 5), trainStart.AddDate(0, 1, 15)},
				DaysGap:    5,
				Divergence: 0.02,
			},
			{
				FoldIndex: 1,
				Valid:     false,
				Errors:    []string{"temporal violation in fold 1: overlap"},
			},
		},
	}
}

func TestWriteValidationReport(t *testing.T) {
	var buf bytes.Buffer
	WriteValidationReport(&buf, sampleValidationReport())

	out := buf.String()
	assert.Contains(t, out, "2025-01-01")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "overlap")
	assert.Contains(t, out, "1/2 valid")
}

func TestWriteClassMetrics(t *testing.T) {
	m := evaluation.ClassMetrics{
		PerClass: map[int]evaluation.ClassScore{
			0: {Precision: 0.8, Recall: 0.7, F1: 0.75, Support: 10},
			1: {NoSupport: true},
		},
		Accuracy:     0.72,
		MacroF1:      0.4,
		TotalRecords: 10,
	}

	var buf bytes.Buffer
	WriteClassMetrics(&buf, m, map[int]string{0: "win"})

	out := buf.String()
	assert.Contains(t, out, "win")
	assert.Contains(t, out, "class 1")
	assert.Contains(t, out, "no support")
	assert.Contains(t, out, "0.7200")
}

func TestWriteAllocationPlan(t *testing.T) {
	plan := betting.AllocationPlan{
		Entries: []betting.AllocationEntry{
			{
				CandidateID:      uuid.New(),
				CandidateName:    "Orfevre",
				Probability:      0.35,
				Price:            3.5,
				KellyFraction:    0.09,
				SafeFraction:     0.0225,
				RecommendedStake: 225.00,
				ExpectedValue:    0.225,
				Flags:            []string{},
			},
		},
		TotalStake:      225.00,
		PortfolioScaled: true,
		ScaleRatio:      0.8,
	}
	summary := betting.Summary{
		Count:            1,
		MeanEVPct:        22.5,
		TotalExpectedROI: 22.5,
		Status:           "1 candidate(s) satisfy the Kelly preconditions",
	}

	var buf bytes.Buffer
	WriteAllocationPlan(&buf, plan, summary)

	out := buf.String()
	assert.Contains(t, out, "Orfevre")
	assert.Contains(t, out, "225.00")
	assert.Contains(t, out, "portfolio cap applied")
	assert.Contains(t, out, "satisfy the Kelly preconditions")
}

func TestExportValidationCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "folds.csv")
	require.NoError(t, ExportValidationCSV(sampleValidationReport(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "fold_index")
	assert.Contains(t, lines[2], "temporal violation in fold 1")
}

func TestExportPlanCSV(t *testing.T) {
	plan := betting.AllocationPlan{
		Entries: []betting.AllocationEntry{
			{CandidateID: uuid.New(), CandidateName: "Kitasan, Black", RecommendedStake: 100},
		},
	}
	path := filepath.Join(t.TempDir(), "plan.csv")
	require.NoError(t, ExportPlanCSV(plan, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Comma in the name is quoted, not split
	assert.Contains(t, string(data), "\"Kitasan, Black\"")
}
