package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykato27/keiba-engine/internal/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func makeSamples(start time.Time, days int, classes []int) []models.Sample {
	samples := make([]models.Sample, 0, days*len(classes))
	for d := 0; d < days; d++ {
		for _, class := range classes {
			samples = append(samples, models.Sample{
				ID:        uuid.New(),
				Timestamp: start.AddDate(0, 0, d),
				Class:     class,
			})
		}
	}
	return samples
}

func cleanFold(index int) models.TemporalFold {
	trainStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	testStart := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	return models.TemporalFold{
		Index:        index,
		TrainStart:   trainStart,
		TrainEnd:     trainStart.AddDate(0, 0, 20),
		TestStart:    testStart,
		TestEnd:      testStart.AddDate(0, 0, 10),
		TrainSamples: makeSamples(trainStart, 20, []int{0, 1, 2}),
		TestSamples:  makeSamples(testStart, 10, []int{0, 1, 2}),
	}
}

func TestValidateFoldClean(t *testing.T) {
	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(cleanFold(0))

	assert.True(t, verdict.Valid)
	assert.Empty(t, verdict.Errors)
	assert.Empty(t, verdict.Warnings)
	assert.Equal(t, 12, verdict.DaysGap)
	assert.InDelta(t, 0.0, verdict.Divergence, 1e-9)
}

func TestValidateFoldDeclaredOverlapIsFatal(t *testing.T) {
	fold := cleanFold(0)
	fold.TrainEnd = fold.TestStart.AddDate(0, 0, 5)

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.False(t, verdict.Valid)
	require.NotEmpty(t, verdict.Errors)
	assert.Contains(t, verdict.Errors[0], "declared train range")
}

func TestValidateFoldObservedOverlapIsFatal(t *testing.T) {
	fold := cleanFold(0)
	// One train sample timestamped inside the test window
	fold.TrainSamples = append(fold.TrainSamples, models.Sample{
		ID:        uuid.New(),
		Timestamp: fold.TestStart.AddDate(0, 0, 3),
		Class:     0,
	})

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.False(t, verdict.Valid)
	found := false
	for _, e := range verdict.Errors {
		if strings.Contains(e, "max train timestamp") {
			found = true
		}
	}
	assert.True(t, found, "expected an observed-range violation, got %v", verdict.Errors)
}

func TestValidateFoldSharedSamplesAreFatal(t *testing.T) {
	fold := cleanFold(0)
	shared := fold.TrainSamples[0]
	shared.Timestamp = fold.TestStart
	fold.TestSamples = append(fold.TestSamples, shared)

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.False(t, verdict.Valid)
	found := false
	for _, e := range verdict.Errors {
		if strings.Contains(e, "both train and test") {
			found = true
		}
	}
	assert.True(t, found, "expected a disjointness violation, got %v", verdict.Errors)
}

func TestValidateFoldMissingClassOnlyWarns(t *testing.T) {
	fold := cleanFold(0)
	fold.TrainSamples = makeSamples(fold.TrainStart, 20, []int{0, 1})
	fold.TestSamples = makeSamples(fold.TestStart, 10, []int{0, 1, 2})

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.True(t, verdict.Valid)
	found := false
	for _, w := range verdict.Warnings {
		if strings.Contains(w, "class 2 never seen in training") {
			found = true
		}
	}
	assert.True(t, found, "expected a coverage warning, got %v", verdict.Warnings)
}

func TestValidateFoldSkewWarning(t *testing.T) {
	fold := cleanFold(0)
	// Train is uniform over three classes, test is all class 0: TVD = 2/3
	fold.TestSamples = makeSamples(fold.TestStart, 10, []int{0})

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.True(t, verdict.Valid)
	assert.InDelta(t, 2.0/3.0, verdict.Divergence, 1e-9)
	found := false
	for _, w := range verdict.Warnings {
		if strings.Contains(w, "distribution skew") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateFoldSubDayGapWarns(t *testing.T) {
	fold := cleanFold(0)
	lastTrain := fold.TrainStart.AddDate(0, 0, 19)
	fold.TrainEnd = lastTrain
	fold.TestStart = lastTrain.Add(6 * time.Hour)
	fold.TestEnd = fold.TestStart.AddDate(0, 0, 10)
	fold.TestSamples = makeSamples(fold.TestStart, 10, []int{0, 1, 2})

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.True(t, verdict.Valid)
	assert.Equal(t, 0, verdict.DaysGap)
	found := false
	for _, w := range verdict.Warnings {
		if strings.Contains(w, "less than a day apart") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateFoldEmptyPartitionWarns(t *testing.T) {
	fold := cleanFold(0)
	fold.TestSamples = nil

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	verdict := checker.ValidateFold(fold)

	assert.True(t, verdict.Valid)
	found := false
	for _, w := range verdict.Warnings {
		if strings.Contains(w, "empty partition") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateAllOrdersByFoldIndex(t *testing.T) {
	// Deliberately out of order to exercise the merge
	folds := []models.TemporalFold{cleanFold(2), cleanFold(0), cleanFold(1)}

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	report := checker.ValidateAll(folds)

	require.Len(t, report.Verdicts, 3)
	for i, verdict := range report.Verdicts {
		assert.Equal(t, i, verdict.FoldIndex)
	}
	assert.True(t, report.AllValid)
	assert.Equal(t, 3, report.ValidFolds)
}

func TestValidateAllSingleBadFoldFailsReport(t *testing.T) {
	bad := cleanFold(1)
	bad.TrainEnd = bad.TestStart.AddDate(0, 0, 1)
	bad.TrainSamples = append(bad.TrainSamples, models.Sample{
		ID:        uuid.New(),
		Timestamp: bad.TestStart,
		Class:     0,
	})
	folds := []models.TemporalFold{cleanFold(0), bad, cleanFold(2)}

	checker := NewChecker(DefaultSkewThreshold, quietLogger())
	report := checker.ValidateAll(folds)

	assert.False(t, report.AllValid)
	assert.Equal(t, 2, report.ValidFolds)
	assert.Equal(t, 1, report.InvalidFolds)
	assert.True(t, report.Verdicts[0].Valid)
	assert.False(t, report.Verdicts[1].Valid)
	assert.True(t, report.Verdicts[2].Valid)
}
