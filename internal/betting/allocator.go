package betting

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ykato27/keiba-engine/internal/metrics"
	"github.com/ykato27/keiba-engine/internal/models"
)

// Default allocation parameters
const (
	DefaultSafetyFactor    = 0.25
	DefaultPerCandidateCap = 0.10
	DefaultPortfolioCap    = 0.50
)

// Rationale flags attached to allocation entries
const (
	FlagPortfolioScaled = "portfolio_scaled"
	FlagCandidateCapped = "candidate_capped"
	FlagRemainderAward  = "remainder_award"
)

// AllocationConfig parameterizes one allocation run
type AllocationConfig struct {
	Bankroll        float64 `json:"bankroll"`
	SafetyFactor    float64 `json:"safety_factor"`
	PerCandidateCap float64 `json:"per_candidate_cap"`
	PortfolioCap    float64 `json:"portfolio_cap"`
}

// Validate rejects configurations the allocator cannot honor
func (c AllocationConfig) Validate() error {
	if c.Bankroll <= 0 {
		return &models.ConfigurationError{Parameter: "bankroll", Value: c.Bankroll, Message: "must be positive"}
	}
	if c.SafetyFactor <= 0 || c.SafetyFactor > 1 {
		return &models.ConfigurationError{Parameter: "safety_factor", Value: c.SafetyFactor, Message: "must be in (0,1]"}
	}
	if c.PerCandidateCap <= 0 || c.PerCandidateCap > 1 {
		return &models.ConfigurationError{Parameter: "per_candidate_cap", Value: c.PerCandidateCap, Message: "must be in (0,1]"}
	}
	if c.PortfolioCap <= 0 || c.PortfolioCap > 1 {
		return &models.ConfigurationError{Parameter: "portfolio_cap", Value: c.PortfolioCap, Message: "must be in (0,1]"}
	}
	return nil
}

// AllocationEntry is one candidate's stake recommendation
type AllocationEntry struct {
	CandidateID      uuid.UUID `json:"candidate_id"`
	CandidateName    string    `json:"candidate_name"`
	Probability      float64   `json:"probability"`
	Price            float64   `json:"price"`
	KellyFraction    float64   `json:"kelly_fraction"`
	SafeFraction     float64   `json:"safe_fraction"`
	RecommendedStake float64   `json:"recommended_stake"`
	ExpectedValue    float64   `json:"expected_value"`
	Flags            []string  `json:"flags"`
}

// AllocationPlan is the full stake plan for one batch, ordered by expected
// value descending with candidate ID as the tie-break.
type AllocationPlan struct {
	Entries         []AllocationEntry `json:"entries"`
	Rejections      []Rejection       `json:"rejections"`
	TotalStake      float64           `json:"total_stake"`
	PortfolioScaled bool              `json:"portfolio_scaled"`
	ScaleRatio      float64           `json:"scale_ratio"`
}

// ToJSON exports the plan for persistence or rendering by the caller
func (p AllocationPlan) ToJSON() string {
	data, _ := json.Marshal(p)
	return string(data)
}

// Allocator sizes stakes with fractional Kelly under per-candidate and
// portfolio caps. Pure: one call, one plan, no retained state.
type Allocator struct {
	winClass int
	logger   *logrus.Logger
}

// NewAllocator creates a portfolio allocator reading win probabilities from
// the given class index.
func NewAllocator(winClass int, logger *logrus.Logger) *Allocator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Allocator{winClass: winClass, logger: logger}
}

// KellyFraction is the bankroll fraction maximizing long-run log growth for a
// single favorable bet: ((price-1)*p - (1-p)) / (price-1).
func KellyFraction(probability, price float64) float64 {
	if price <= 1 {
		return 0
	}
	return ExpectedValue(probability, price) / (price - 1)
}

// Allocate turns accepted records into a bounded stake plan. Records are
// expected to be pre-filtered to positive EV; any that are not are rejected
// individually without failing the batch. Invalid configuration aborts the
// whole call.
func (a *Allocator) Allocate(accepted []models.PredictionRecord, cfg AllocationConfig) (AllocationPlan, error) {
	if err := cfg.Validate(); err != nil {
		return AllocationPlan{}, err
	}

	plan := AllocationPlan{Entries: []AllocationEntry{}, Rejections: []Rejection{}, ScaleRatio: 1.0}

	for _, record := range accepted {
		probability := record.WinProbability(a.winClass)
		ev := ExpectedValue(probability, record.MarketPrice)
		kelly := KellyFraction(probability, record.MarketPrice)
		if kelly <= 0 {
			plan.Rejections = append(plan.Rejections, Rejection{
				Record: record,
				Reason: models.ReasonNonPositiveEV,
				Detail: rejectionDetail(models.ReasonNonPositiveEV, probability, record.MarketPrice, ev),
			})
			metrics.RecordRejection(string(models.ReasonNonPositiveEV))
			continue
		}

		entry := AllocationEntry{
			CandidateID:   record.CandidateID,
			CandidateName: record.CandidateName,
			Probability:   probability,
			Price:         record.MarketPrice,
			KellyFraction: kelly,
			ExpectedValue: ev,
			Flags:         []string{},
		}

		entry.SafeFraction = kelly * cfg.SafetyFactor
		if entry.SafeFraction > cfg.PerCandidateCap {
			entry.SafeFraction = cfg.PerCandidateCap
			entry.Flags = append(entry.Flags, FlagCandidateCapped)
		}
		entry.RecommendedStake = cfg.Bankroll * entry.SafeFraction
		plan.Entries = append(plan.Entries, entry)
	}

	sortEntries(plan.Entries)
	applyPortfolioCap(&plan, cfg)
	roundStakes(&plan, cfg)

	for _, entry := range plan.Entries {
		plan.TotalStake += entry.RecommendedStake
	}

	metrics.RecordPlan(plan.TotalStake, len(plan.Entries), plan.PortfolioScaled)

	a.logger.WithFields(logrus.Fields{
		"candidates":  len(plan.Entries),
		"rejections":  len(plan.Rejections),
		"total_stake": plan.TotalStake,
		"scaled":      plan.PortfolioScaled,
		"scale_ratio": plan.ScaleRatio,
	}).Info("Allocation plan produced")

	return plan, nil
}

// applyPortfolioCap proportionally shrinks every stake when the raw sum
// exceeds the portfolio budget, preserving relative sizing.
func applyPortfolioCap(plan *AllocationPlan, cfg AllocationConfig) {
	budget := cfg.Bankroll * cfg.PortfolioCap
	rawSum := 0.0
	for _, entry := range plan.Entries {
		rawSum += entry.RecommendedStake
	}
	if rawSum <= budget {
		return
	}

	plan.PortfolioScaled = true
	plan.ScaleRatio = budget / rawSum
	for i := range plan.Entries {
		plan.Entries[i].RecommendedStake *= plan.ScaleRatio
		plan.Entries[i].Flags = append(plan.Entries[i].Flags, FlagPortfolioScaled)
	}
}

// roundStakes rounds every stake down to whole cents and hands the leftover
// cents to the highest-EV candidates first, keeping both caps intact.
func roundStakes(plan *AllocationPlan, cfg AllocationConfig) {
	if len(plan.Entries) == 0 {
		return
	}

	cent := decimal.New(1, -2)
	remainder := decimal.Zero
	for i := range plan.Entries {
		exact := decimal.NewFromFloat(plan.Entries[i].RecommendedStake)
		floored := exact.Div(cent).Floor().Mul(cent)
		remainder = remainder.Add(exact.Sub(floored))
		plan.Entries[i].RecommendedStake, _ = floored.Float64()
	}

	// Entries are already sorted by EV descending.
	candidateCap := decimal.NewFromFloat(cfg.Bankroll * cfg.PerCandidateCap)
	for i := range plan.Entries {
		if remainder.LessThan(cent) {
			break
		}
		stake := decimal.NewFromFloat(plan.Entries[i].RecommendedStake)
		headroom := candidateCap.Sub(stake)
		if headroom.LessThan(cent) {
			continue
		}
		award := remainder.Div(cent).Floor().Mul(cent)
		if award.GreaterThan(headroom) {
			award = headroom.Div(cent).Floor().Mul(cent)
		}
		plan.Entries[i].RecommendedStake, _ = stake.Add(award).Float64()
		plan.Entries[i].Flags = append(plan.Entries[i].Flags, FlagRemainderAward)
		remainder = remainder.Sub(award)
	}
}

func sortEntries(entries []AllocationEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ExpectedValue != entries[j].ExpectedValue {
			return entries[i].ExpectedValue > entries[j].ExpectedValue
		}
		return entries[i].CandidateID.String() < entries[j].CandidateID.String()
	})
}
