package betting

import (
	"strings"
	"testing"

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

func record(t *testing.T, winProbability, price float64) models.PredictionRecord {
	t.Helper()
	rest := (1 - winProbability) / 2
	r, err := models.NewPredictionRecord(uuid.New(), uuid.New(), "",
		[]float64{winProbability, rest, rest}, price, 3)
	require.NoError(t, err)
	return r
}

func TestExpectedValue(t *testing.T) {
	// probability 0.35 at price 3.5: (2.5)(0.35) - 0.65 = 0.225
	assert.InDelta(t, 0.225, ExpectedValue(0.35, 3.5), 1e-9)

	// probability 0.20 at price 2.0: (1.0)(0.20) - 0.80 = -0.60
	assert.InDelta(t, -0.60, ExpectedValue(0.20, 2.0), 1e-9)

	// break-even: probability exactly 1/price
	assert.InDelta(t, 0.0, ExpectedValue(0.25, 4.0), 1e-9)
}

func TestValidateSingleAccepts(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	ev, verdict := v.ValidateSingle(0.35, 3.5)
	assert.True(t, verdict.Valid)
	assert.InDelta(t, 0.225, ev, 1e-9)
	assert.Empty(t, verdict.Warnings)
}

func TestValidateSingleRejects(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	tests := []struct {
		name        string
		probability float64
		price       float64
		wantReason  models.RejectionReason
	}{
		{"negative ev", 0.20, 2.0, models.ReasonNonPositiveEV},
		{"zero ev", 0.25, 4.0, models.ReasonNonPositiveEV},
		{"zero probability", 0.0, 2.0, models.ReasonInvalidProbability},
		{"probability of one", 1.0, 2.0, models.ReasonInvalidProbability},
		{"price at one", 0.5, 1.0, models.ReasonInvalidPrice},
		{"price below one", 0.5, 0.9, models.ReasonInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verdict := v.ValidateSingle(tt.probability, tt.price)
			assert.False(t, verdict.Valid)
			assert.Equal(t, tt.wantReason, verdict.Reason)
		})
	}
}

func TestValidateSingleWarnings(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	// Tiny probability at a huge price: positive EV but three warnings
	ev, verdict := v.ValidateSingle(0.005, 500)
	require.True(t, verdict.Valid)
	assert.Greater(t, ev, 0.0)
	joined := strings.Join(verdict.Warnings, " | ")
	assert.Contains(t, joined, "very low")
	assert.Contains(t, joined, "unusually high")

	// Short price with thin edge
	_, verdict = v.ValidateSingle(0.95, 1.06)
	require.True(t, verdict.Valid)
	joined = strings.Join(verdict.Warnings, " | ")
	assert.Contains(t, joined, "little return")
	assert.Contains(t, joined, "comfort threshold")
}

func TestFilterPositiveEV(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	good := record(t, 0.35, 3.5)
	bad := record(t, 0.20, 2.0)
	accepted, rejected := v.FilterPositiveEV([]models.PredictionRecord{good, bad})

	require.Len(t, accepted, 1)
	require.Len(t, rejected, 1)
	assert.Equal(t, good.CandidateID, accepted[0].CandidateID)
	assert.Equal(t, models.ReasonNonPositiveEV, rejected[0].Reason)
	assert.Contains(t, rejected[0].Detail, "not positive")

	// Every input is accounted for exactly once
	assert.Equal(t, 2, len(accepted)+len(rejected))
}

func TestPortfolioSummary(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	accepted := []models.PredictionRecord{
		record(t, 0.35, 3.5), // ev 0.225
		record(t, 0.55, 2.0), // ev 0.10
		record(t, 0.30, 4.0), // ev 0.20
	}

	summary := v.PortfolioSummary(accepted)
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 10.0, summary.MinEVPct, 1e-6)
	assert.InDelta(t, 22.5, summary.MaxEVPct, 1e-6)
	assert.InDelta(t, 20.0, summary.MedianEVPct, 1e-6)
	assert.InDelta(t, 17.5, summary.MeanEVPct, 1e-6)
	assert.Contains(t, summary.Status, "3 candidate(s)")
}

func TestPortfolioSummaryEmpty(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())
	summary := v.PortfolioSummary(nil)
	assert.Equal(t, 0, summary.Count)
	assert.Contains(t, summary.Status, "do not bet")
}

func TestClassifyPortfolio(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	assert.Contains(t, v.ClassifyPortfolio(10, 0), "do not bet")
	assert.Contains(t, v.ClassifyPortfolio(10, 2), "warning")
	assert.Contains(t, v.ClassifyPortfolio(10, 3), "healthy")
	assert.Contains(t, v.ClassifyPortfolio(10, 10), "healthy")
}

func TestSummaryWithStakes(t *testing.T) {
	v := NewValidator(0, DefaultMinEVThreshold, quietLogger())

	high := record(t, 0.35, 3.5) // ev 0.225
	low := record(t, 0.55, 2.0)  // ev 0.10
	accepted := []models.PredictionRecord{high, low}

	plan := AllocationPlan{Entries: []AllocationEntry{
		{CandidateID: high.CandidateID, RecommendedStake: 300},
		{CandidateID: low.CandidateID, RecommendedStake: 100},
	}}

	summary := v.SummaryWithStakes(accepted, plan)
	// (0.225*300 + 0.10*100) / 400 = 0.19375
	assert.InDelta(t, 19.375, summary.TotalExpectedROI, 1e-6)
}
