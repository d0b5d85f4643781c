// Package validation certifies that temporal cross-validation folds carry no
// future information into their training partitions.
package validation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
)

// DefaultSkewThreshold is the total variation distance above which a fold is flagged
const DefaultSkewThreshold = 0.15

// Checker validates temporal folds against leakage and skew rules
type Checker struct {
	skewThreshold float64
	logger        *logrus.Logger
}

// NewChecker creates a fold integrity checker. A non-positive threshold falls
// back to DefaultSkewThreshold.
func NewChecker(skewThreshold float64, logger *logrus.Logger) *Checker {
	if skewThreshold <= 0 {
		skewThreshold = DefaultSkewThreshold
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Checker{skewThreshold: skewThreshold, logger: logger}
}

// ValidateFold runs all integrity checks on a single fold. Temporal overlap
// and index collisions are fatal; class coverage gaps and distribution skew
// only warn.
func (c *Checker) ValidateFold(fold models.TemporalFold) FoldVerdict {
	verdict := FoldVerdict{
		FoldIndex:  fold.Index,
		Valid:      true,
		Errors:     []string{},
		Warnings:   []string{},
		TrainRange: [2]time.Time{fold.TrainStart, fold.TrainEnd},
		TestRange:  [2]time.Time{fold.TestStart, fold.TestEnd},
	}

	c.checkTemporalSeparation(fold, &verdict)
	c.checkDisjointness(fold, &verdict)
	c.checkClassCoverage(fold, &verdict)
	c.checkDistributionSkew(fold, &verdict)

	metrics.FoldsValidatedTotal.Inc()
	if !verdict.Valid {
		metrics.FoldViolationsTotal.Inc()
	}

	c.logger.WithFields(logrus.Fields{
		"fold":       fold.Index,
		"valid":      verdict.Valid,
		"warnings":   len(verdict.Warnings),
		"days_gap":   verdict.DaysGap,
		"divergence": verdict.Divergence,
	}).Debug("Fold validated")

	return verdict
}

// ValidateAll checks every fold concurrently and merges verdicts by fold
// index, so output order never depends on scheduling. The overall report is
// fatal iff any single fold is fatal.
func (c *Checker) ValidateAll(folds []models.TemporalFold) ValidationReport {
	verdicts := make([]FoldVerdict, len(folds))

	var wg sync.WaitGroup
	for i := range folds {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			verdicts[i] = c.ValidateFold(folds[i])
		}(i)
	}
	wg.Wait()

	sort.SliceStable(verdicts, func(i, j int) bool {
		return verdicts[i].FoldIndex < verdicts[j].FoldIndex
	})

	report := ValidationReport{
		TotalFolds: len(folds),
		AllValid:   true,
		Verdicts:   verdicts,
	}
	for _, v := range verdicts {
		if v.Valid {
			report.ValidFolds++
		} else {
			report.InvalidFolds++
			report.AllValid = false
		}
	}

	c.logger.WithFields(logrus.Fields{
		"total_folds":   report.TotalFolds,
		"valid_folds":   report.ValidFolds,
		"invalid_folds": report.InvalidFolds,
		"all_valid":     report.AllValid,
	}).Info("Fold set validated")

	return report
}

func (c *Checker) checkTemporalSeparation(fold models.TemporalFold, verdict *FoldVerdict) {
	if !fold.TrainEnd.Before(fold.TestStart) {
		err := &models.TemporalViolationError{
			FoldIndex: fold.Index,
			Message: fmt.Sprintf("declared train range ends %s, test range starts %s",
				fold.TrainEnd.Format("2006-01-02"), fold.TestStart.Format("2006-01-02")),
		}
		verdict.Errors = append(verdict.Errors, err.Error())
		verdict.Valid = false
	}

	_, trainMax, hasTrain := fold.TrainTimestampRange()
	testMin, _, hasTest := fold.TestTimestampRange()
	if !hasTrain || !hasTest {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("fold %d has an empty partition, temporal check skipped", fold.Index))
		return
	}

	if !trainMax.Before(testMin) {
		err := &models.TemporalViolationError{
			FoldIndex: fold.Index,
			Message: fmt.Sprintf("max train timestamp %s >= min test timestamp %s",
				trainMax.Format("2006-01-02"), testMin.Format("2006-01-02")),
		}
		verdict.Errors = append(verdict.Errors, err.Error())
		verdict.Valid = false
		return
	}

	verdict.DaysGap = int(testMin.Sub(trainMax).Hours() / 24)
	if verdict.DaysGap == 0 {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("fold %d train and test partitions are less than a day apart", fold.Index))
	}
}

func (c *Checker) checkDisjointness(fold models.TemporalFold, verdict *FoldVerdict) {
	seen := make(map[string]struct{}, len(fold.TrainSamples))
	for _, s := range fold.TrainSamples {
		seen[s.ID.String()] = struct{}{}
	}
	shared := 0
	for _, s := range fold.TestSamples {
		if _, ok := seen[s.ID.String()]; ok {
			shared++
		}
	}
	if shared > 0 {
		err := &models.TemporalViolationError{
			FoldIndex: fold.Index,
			Message:   fmt.Sprintf("%d sample(s) appear in both train and test partitions", shared),
		}
		verdict.Errors = append(verdict.Errors, err.Error())
		verdict.Valid = false
	}
}

func (c *Checker) checkClassCoverage(fold models.TemporalFold, verdict *FoldVerdict) {
	trainCounts := fold.TrainClasses()
	testCounts := fold.TestClasses()
	verdict.TrainDistribution = buildDistribution(trainCounts, len(fold.TrainSamples))
	verdict.TestDistribution = buildDistribution(testCounts, len(fold.TestSamples))

	missing := []int{}
	for class := range testCounts {
		if _, ok := trainCounts[class]; !ok {
			missing = append(missing, class)
		}
	}
	sort.Ints(missing)
	for _, class := range missing {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("fold %d test partition contains class %d never seen in training", fold.Index, class))
	}
}

func (c *Checker) checkDistributionSkew(fold models.TemporalFold, verdict *FoldVerdict) {
	trainProps := classProportions(fold.TrainClasses())
	testProps := classProportions(fold.TestClasses())
	if len(trainProps) == 0 || len(testProps) == 0 {
		return
	}

	verdict.Divergence = totalVariationDistance(trainProps, testProps)
	if verdict.Divergence > c.skewThreshold {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("fold %d class distribution skew %.3f exceeds threshold %.3f",
				fold.Index, verdict.Divergence, c.skewThreshold))
	}
}

func buildDistribution(counts map[int]int, total int) map[int]ClassShare {
	distribution := make(map[int]ClassShare, len(counts))
	for class, count := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(count) / float64(total) * 100
		}
		distribution[class] = ClassShare{Count: count, Percentage: pct}
	}
	return distribution
}
