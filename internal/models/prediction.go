package models

import (
	"math"

	"github.com/google/uuid"
)

// ProbabilitySumTolerance is the allowed deviation of a probability vector from 1.0
const ProbabilitySumTolerance = 1e-6

// PredictionRecord represents a model prediction for one candidate in one event.
// Records are value objects: construct once via NewPredictionRecord, never mutate.
type PredictionRecord struct {
	EventID            uuid.UUID `json:"event_id" validate:"required"`
	CandidateID        uuid.UUID `json:"candidate_id" validate:"required"`
	CandidateName      string    `json:"candidate_name"`
	ClassProbabilities []float64 `json:"class_probabilities" validate:"required,min=1"`
	ObservedClass      *int      `json:"observed_class,omitempty"`
	MarketPrice        float64   `json:"market_price" validate:"required,gt=1"`
}

// NewPredictionRecord validates and constructs an immutable prediction record.
// The probability vector must have numClasses entries, each strictly inside
// (0,1), summing to 1 within ProbabilitySumTolerance; the price must exceed 1.
func NewPredictionRecord(eventID, candidateID uuid.UUID, name string, probabilities []float64, price float64, numClasses int) (PredictionRecord, error) {
	if len(probabilities) != numClasses {
		return PredictionRecord{}, &InputShapeError{
			CandidateID: candidateID,
			Field:       "class_probabilities",
			Reason:      "wrong vector length",
		}
	}

	sum := 0.0
	for _, p := range probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return PredictionRecord{}, &InputShapeError{
				CandidateID: candidateID,
				Field:       "class_probabilities",
				Reason:      "non-numeric probability",
			}
		}
		if p <= 0 || p >= 1 {
			return PredictionRecord{}, &RangeError{
				CandidateID: candidateID,
				Field:       "class_probabilities",
				Value:       p,
				Constraint:  "strictly inside (0,1)",
			}
		}
		sum += p
	}
	if math.Abs(sum-1.0) > ProbabilitySumTolerance {
		return PredictionRecord{}, &InputShapeError{
			CandidateID: candidateID,
			Field:       "class_probabilities",
			Reason:      "probabilities do not sum to 1",
		}
	}

	if price <= 1 {
		return PredictionRecord{}, &RangeError{
			CandidateID: candidateID,
			Field:       "market_price",
			Value:       price,
			Constraint:  "greater than 1",
		}
	}

	copied := make([]float64, len(probabilities))
	copy(copied, probabilities)

	return PredictionRecord{
		EventID:            eventID,
		CandidateID:        candidateID,
		CandidateName:      name,
		ClassProbabilities: copied,
		MarketPrice:        price,
	}, nil
}

// WithObservedClass returns a settled copy of the record. The original is untouched.
func (r PredictionRecord) WithObservedClass(class int) PredictionRecord {
	settled := r
	settled.ObservedClass = &class
	return settled
}

// WinProbability returns the probability assigned to the given class index
func (r PredictionRecord) WinProbability(winClass int) float64 {
	if winClass < 0 || winClass >= len(r.ClassProbabilities) {
		return 0
	}
	return r.ClassProbabilities[winClass]
}

// PredictedClass returns the argmax class of the probability vector.
// Ties resolve to the lowest class index so repeated runs agree.
func (r PredictionRecord) PredictedClass() int {
	best := 0
	for i, p := range r.ClassProbabilities {
		if p > r.ClassProbabilities[best] {
			best = i
		}
	}
	return best
}
