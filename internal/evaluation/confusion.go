package evaluation

import "github.com/ykato27/keiba-engine/internal/models"

// ConfusionMatrix holds raw counts plus row-normalized (recall view) and
// column-normalized (precision view) forms. Rows are observed classes,
// columns are predicted classes.
type ConfusionMatrix struct {
	Labels           []int       `json:"labels"`
	Counts           [][]int     `json:"counts"`
	RowNormalized    [][]float64 `json:"row_normalized"`
	ColumnNormalized [][]float64 `json:"column_normalized"`
}

// RowTotal returns how many records were observed as the given class
func (cm ConfusionMatrix) RowTotal(class int) int {
	if class < 0 || class >= len(cm.Counts) {
		return 0
	}
	total := 0
	for _, c := range cm.Counts[class] {
		total += c
	}
	return total
}

// ColumnTotal returns how many records were predicted as the given class
func (cm ConfusionMatrix) ColumnTotal(class int) int {
	if class < 0 || class >= len(cm.Labels) {
		return 0
	}
	total := 0
	for _, row := range cm.Counts {
		total += row[class]
	}
	return total
}

func buildConfusionMatrix(records []models.PredictionRecord, numClasses int) ConfusionMatrix {
	labels := make([]int, numClasses)
	counts := make([][]int, numClasses)
	for i := range counts {
		labels[i] = i
		counts[i] = make([]int, numClasses)
	}

	for _, r := range records {
		observed := *r.ObservedClass
		predicted := r.PredictedClass()
		if observed < 0 || observed >= numClasses {
			continue
		}
		counts[observed][predicted]++
	}

	cm := ConfusionMatrix{Labels: labels, Counts: counts}
	cm.RowNormalized = normalizeRows(counts)
	cm.ColumnNormalized = normalizeColumns(counts)
	return cm
}

func normalizeRows(counts [][]int) [][]float64 {
	normalized := make([][]float64, len(counts))
	for i, row := range counts {
		normalized[i] = make([]float64, len(row))
		total := 0
		for _, c := range row {
			total += c
		}
		if total == 0 {
			continue
		}
		for j, c := range row {
			normalized[i][j] = float64(c) / float64(total)
		}
	}
	return normalized
}

func normalizeColumns(counts [][]int) [][]float64 {
	normalized := make([][]float64, len(counts))
	for i := range counts {
		normalized[i] = make([]float64, len(counts[i]))
	}
	for j := 0; j < len(counts); j++ {
		total := 0
		for i := 0; i < len(counts); i++ {
			total += counts[i][j]
		}
		if total == 0 {
			continue
		}
		for i := 0; i < len(counts); i++ {
			normalized[i][j] = float64(counts[i][j]) / float64(total)
		}
	}
	return normalized
}
