// Package betting screens model predictions against market prices and turns
// the survivors into bounded stake recommendations under one bankroll.
package betting

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
)

// DefaultMinEVThreshold is the expected value below which an accepted bet
// still earns a thin-edge warning.
const DefaultMinEVThreshold = 0.01

// Verdict is the outcome of a single precondition check
type Verdict struct {
	Valid    bool                   `json:"valid"`
	Reason   models.RejectionReason `json:"reason,omitempty"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Rejection pairs a rejected record with why it was turned away
type Rejection struct {
	Record models.PredictionRecord `json:"record"`
	Reason models.RejectionReason  `json:"reason"`
	Detail string                  `json:"detail"`
}

// Summary reports expected-value statistics over an accepted set
type Summary struct {
	Count            int     `json:"count"`
	MeanEVPct        float64 `json:"mean_ev_pct"`
	MedianEVPct      float64 `json:"median_ev_pct"`
	MinEVPct         float64 `json:"min_ev_pct"`
	MaxEVPct         float64 `json:"max_ev_pct"`
	TotalExpectedROI float64 `json:"total_expected_roi_pct"`
	Status           string  `json:"status"`
}

// Validator checks the Kelly preconditions: valid probability, valid price,
// strictly positive expected value.
type Validator struct {
	winClass       int
	minEVThreshold float64
	logger         *logrus.Logger
}

// NewValidator creates a precondition validator. winClass selects which entry
// of the probability vector settles the bet (0 = win in the three-class
// win/place/other scheme).
func NewValidator(winClass int, minEVThreshold float64, logger *logrus.Logger) *Validator {
	if minEVThreshold <= 0 {
		minEVThreshold = DefaultMinEVThreshold
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Validator{winClass: winClass, minEVThreshold: minEVThreshold, logger: logger}
}

// ExpectedValue is the net expected return per unit staked on a binary
// win/lose settlement at the given decimal price.
func ExpectedValue(probability, price float64) float64 {
	return (price-1)*probability - (1 - probability)
}

// ValidateSingle checks one probability/price pair. The expected value is
// returned even when the verdict fails so callers can report it.
func (v *Validator) ValidateSingle(probability, price float64) (float64, Verdict) {
	verdict := Verdict{Valid: true}

	if probability <= 0 || probability >= 1 {
		verdict.Valid = false
		verdict.Reason = models.ReasonInvalidProbability
		return 0, verdict
	}
	if price <= 1 {
		verdict.Valid = false
		verdict.Reason = models.ReasonInvalidPrice
		return 0, verdict
	}

	ev := ExpectedValue(probability, price)
	if ev <= 0 {
		verdict.Valid = false
		verdict.Reason = models.ReasonNonPositiveEV
		return ev, verdict
	}

	if probability < 0.01 {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("win probability %.2f%% is very low", probability*100))
	}
	if price <= 1.1 {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("price %.2f leaves little return", price))
	}
	if price > 100 {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("price %.2f is unusually high, check for data entry errors", price))
	}
	if ev < v.minEVThreshold {
		verdict.Warnings = append(verdict.Warnings,
			fmt.Sprintf("expected value %.3f%% is below the %.2f%% comfort threshold", ev*100, v.minEVThreshold*100))
	}

	return ev, verdict
}

// FilterPositiveEV splits records into accepted and rejected sets. Every
// input ends up in exactly one of the two; nothing is silently dropped.
func (v *Validator) FilterPositiveEV(records []models.PredictionRecord) ([]models.PredictionRecord, []Rejection) {
	accepted := []models.PredictionRecord{}
	rejected := []Rejection{}

	for _, record := range records {
		probability := record.WinProbability(v.winClass)
		ev, verdict := v.ValidateSingle(probability, record.MarketPrice)
		if !verdict.Valid {
			rejected = append(rejected, Rejection{
				Record: record,
				Reason: verdict.Reason,
				Detail: rejectionDetail(verdict.Reason, probability, record.MarketPrice, ev),
			})
			metrics.RecordRejection(string(verdict.Reason))
			continue
		}
		accepted = append(accepted, record)
		metrics.RecordsAcceptedTotal.Inc()
	}

	v.logger.WithFields(logrus.Fields{
		"total":    len(records),
		"accepted": len(accepted),
		"rejected": len(rejected),
	}).Debug("Precondition filter applied")

	return accepted, rejected
}

// PortfolioSummary reports EV statistics over an accepted set, before staking.
func (v *Validator) PortfolioSummary(accepted []models.PredictionRecord) Summary {
	return v.summarize(accepted, nil)
}

// SummaryWithStakes recomputes the portfolio summary with the total expected
// ROI weighted by the stakes an allocation plan assigned. Call after Allocate
// for final reporting.
func (v *Validator) SummaryWithStakes(accepted []models.PredictionRecord, plan AllocationPlan) Summary {
	stakes := make(map[string]float64, len(plan.Entries))
	for _, entry := range plan.Entries {
		stakes[entry.CandidateID.String()] = entry.RecommendedStake
	}
	return v.summarize(accepted, stakes)
}

func (v *Validator) summarize(accepted []models.PredictionRecord, stakes map[string]float64) Summary {
	summary := Summary{Count: len(accepted)}
	if len(accepted) == 0 {
		summary.Status = "no candidates passed precondition validation, do not bet"
		return summary
	}

	evs := make([]float64, 0, len(accepted))
	totalStake := 0.0
	weightedEV := 0.0
	for _, record := range accepted {
		ev := ExpectedValue(record.WinProbability(v.winClass), record.MarketPrice)
		evs = append(evs, ev)
		if stakes != nil {
			stake := stakes[record.CandidateID.String()]
			totalStake += stake
			weightedEV += ev * stake
		}
	}

	sort.Float64s(evs)
	summary.MinEVPct = evs[0] * 100
	summary.MaxEVPct = evs[len(evs)-1] * 100
	summary.MeanEVPct = mean(evs) * 100
	summary.MedianEVPct = median(evs) * 100

	if stakes != nil && totalStake > 0 {
		summary.TotalExpectedROI = weightedEV / totalStake * 100
	} else {
		summary.TotalExpectedROI = sum(evs) * 100
	}

	summary.Status = fmt.Sprintf("%d candidate(s) satisfy the Kelly preconditions", len(accepted))
	return summary
}

// ClassifyPortfolio grades the batch by how many reviewed candidates carry a
// positive edge: none at all, a thin minority (under 30%), or healthy.
func (v *Validator) ClassifyPortfolio(totalReviewed, accepted int) string {
	if accepted == 0 || totalReviewed == 0 {
		return "no candidates passed precondition validation, do not bet"
	}
	share := float64(accepted) / float64(totalReviewed)
	if share < 0.30 {
		return fmt.Sprintf("warning: only %.0f%% of reviewed candidates carry positive expected value", share*100)
	}
	return fmt.Sprintf("healthy: %d of %d reviewed candidates carry positive expected value", accepted, totalReviewed)
}

func rejectionDetail(reason models.RejectionReason, probability, price, ev float64) string {
	switch reason {
	case models.ReasonInvalidProbability:
		return fmt.Sprintf("probability %.4f outside (0,1)", probability)
	case models.ReasonInvalidPrice:
		return fmt.Sprintf("price %.2f must exceed 1", price)
	case models.ReasonNonPositiveEV:
		return fmt.Sprintf("expected value %.2f%% is not positive", ev*100)
	default:
		return string(reason)
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
