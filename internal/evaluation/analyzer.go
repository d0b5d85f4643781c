// Package evaluation computes per-class predictive quality statistics from
// settled prediction batches.
package evaluation

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
)

// logLossEpsilon clips probabilities away from 0 and 1 so log loss stays finite
const logLossEpsilon = 1e-15

// ClassScore holds per-class precision, recall, F1 and support. NoSupport is
// set when the class never occurs in the observed batch; callers must check it
// before trusting the zeroed scores.
type ClassScore struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
	NoSupport bool    `json:"no_support"`
}

// ClassShare describes one class's share of the observed batch
type ClassShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SkippedRecord accounts for an input left out of the evaluation
type SkippedRecord struct {
	CandidateID uuid.UUID `json:"candidate_id"`
	Reason      string    `json:"reason"`
}

// ClassMetrics is the full evaluation of one settled batch. Derived and
// read-only: recomputed per batch, never mutated.
type ClassMetrics struct {
	PerClass          map[int]ClassScore `json:"per_class"`
	Confusion         ConfusionMatrix    `json:"confusion"`
	LogLoss           float64            `json:"log_loss"`
	Accuracy          float64            `json:"accuracy"`
	MacroPrecision    float64            `json:"precision_macro"`
	MacroRecall       float64            `json:"recall_macro"`
	MacroF1           float64            `json:"f1_macro"`
	WeightedPrecision float64            `json:"precision_weighted"`
	WeightedRecall    float64            `json:"recall_weighted"`
	WeightedF1        float64            `json:"f1_weighted"`
	ClassDistribution map[int]ClassShare `json:"class_distribution"`
	TotalRecords      int                `json:"total_records"`
	Skipped           []SkippedRecord    `json:"skipped,omitempty"`
}

// ToJSON exports metrics for persistence or rendering by the caller
func (m ClassMetrics) ToJSON() string {
	data, _ := json.Marshal(m)
	return string(data)
}

// Analyzer computes class metrics over settled prediction records
type Analyzer struct {
	numClasses int
	logger     *logrus.Logger
}

// NewAnalyzer creates an analyzer for a fixed K-class problem
func NewAnalyzer(numClasses int, logger *logrus.Logger) *Analyzer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Analyzer{numClasses: numClasses, logger: logger}
}

// Compute evaluates a settled batch. The predicted class is the argmax of
// each probability vector. Records without an observed class or with a
// wrong-length vector are skipped, never batch-fatal: they show up in the
// result's Skipped list so every input is accounted for.
func (a *Analyzer) Compute(records []models.PredictionRecord) (ClassMetrics, error) {
	if len(records) == 0 {
		return ClassMetrics{}, models.ErrEmptyBatch
	}

	evaluable := make([]models.PredictionRecord, 0, len(records))
	skipped := []SkippedRecord{}
	for _, r := range records {
		switch {
		case r.ObservedClass == nil:
			skipped = append(skipped, SkippedRecord{CandidateID: r.CandidateID, Reason: models.ErrMissingObserved.Error()})
		case len(r.ClassProbabilities) != a.numClasses:
			err := &models.InputShapeError{
				CandidateID: r.CandidateID,
				Field:       "class_probabilities",
				Reason:      "wrong vector length",
			}
			skipped = append(skipped, SkippedRecord{CandidateID: r.CandidateID, Reason: err.Error()})
		default:
			evaluable = append(evaluable, r)
		}
	}
	if len(evaluable) == 0 {
		return ClassMetrics{Skipped: skipped}, models.ErrEmptyBatch
	}

	confusion := buildConfusionMatrix(evaluable, a.numClasses)
	perClass := calculateClassScores(confusion)

	result := ClassMetrics{
		PerClass:          perClass,
		Confusion:         confusion,
		LogLoss:           calculateLogLoss(evaluable),
		Accuracy:          calculateAccuracy(confusion),
		ClassDistribution: calculateDistribution(evaluable, a.numClasses),
		TotalRecords:      len(evaluable),
		Skipped:           skipped,
	}
	result.MacroPrecision, result.MacroRecall, result.MacroF1 = macroAverage(perClass)
	result.WeightedPrecision, result.WeightedRecall, result.WeightedF1 = weightedAverage(perClass, len(evaluable))

	metrics.EvaluationsTotal.Inc()
	metrics.LastEvaluationLogLoss.Set(result.LogLoss)

	a.logger.WithFields(logrus.Fields{
		"records":  len(evaluable),
		"skipped":  len(skipped),
		"accuracy": result.Accuracy,
		"f1_macro": result.MacroF1,
		"log_loss": result.LogLoss,
	}).Debug("Class metrics computed")

	return result, nil
}

// calculateClassScores derives precision/recall/F1/support from a confusion
// matrix, with zero-support classes flagged instead of dividing by zero.
func calculateClassScores(cm ConfusionMatrix) map[int]ClassScore {
	scores := make(map[int]ClassScore, len(cm.Labels))
	for _, class := range cm.Labels {
		truePos := cm.Counts[class][class]
		support := cm.RowTotal(class)
		predicted := cm.ColumnTotal(class)

		score := ClassScore{Support: support}
		if support == 0 {
			score.NoSupport = true
			scores[class] = score
			continue
		}
		if predicted > 0 {
			score.Precision = float64(truePos) / float64(predicted)
		}
		score.Recall = float64(truePos) / float64(support)
		if score.Precision+score.Recall > 0 {
			score.F1 = 2 * score.Precision * score.Recall / (score.Precision + score.Recall)
		}
		scores[class] = score
	}
	return scores
}

func calculateAccuracy(cm ConfusionMatrix) float64 {
	total := 0
	correct := 0
	for _, class := range cm.Labels {
		correct += cm.Counts[class][class]
		total += cm.RowTotal(class)
	}
	if total == 0 {
		return 0
	}
	return float64(correct) / float64(total)
}

func calculateLogLoss(records []models.PredictionRecord) float64 {
	loss := 0.0
	for _, r := range records {
		observed := *r.ObservedClass
		p := 0.0
		if observed >= 0 && observed < len(r.ClassProbabilities) {
			p = r.ClassProbabilities[observed]
		}
		p = math.Min(1-logLossEpsilon, math.Max(logLossEpsilon, p))
		loss -= math.Log(p)
	}
	return loss / float64(len(records))
}

func calculateDistribution(records []models.PredictionRecord, numClasses int) map[int]ClassShare {
	counts := make(map[int]int, numClasses)
	for _, r := range records {
		counts[*r.ObservedClass]++
	}
	distribution := make(map[int]ClassShare, len(counts))
	for class, count := range counts {
		distribution[class] = ClassShare{
			Count:      count,
			Percentage: float64(count) / float64(len(records)) * 100,
		}
	}
	return distribution
}

func macroAverage(perClass map[int]ClassScore) (float64, float64, float64) {
	if len(perClass) == 0 {
		return 0, 0, 0
	}
	var precision, recall, f1 float64
	for _, class := range sortedClasses(perClass) {
		score := perClass[class]
		precision += score.Precision
		recall += score.Recall
		f1 += score.F1
	}
	n := float64(len(perClass))
	return precision / n, recall / n, f1 / n
}

func weightedAverage(perClass map[int]ClassScore, total int) (float64, float64, float64) {
	if total == 0 {
		return 0, 0, 0
	}
	var precision, recall, f1 float64
	for _, class := range sortedClasses(perClass) {
		score := perClass[class]
		w := float64(score.Support) / float64(total)
		precision += score.Precision * w
		recall += score.Recall * w
		f1 += score.F1 * w
	}
	return precision, recall, f1
}

func sortedClasses(perClass map[int]ClassScore) []int {
	classes := make([]int, 0, len(perClass))
	for class := range perClass {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}
