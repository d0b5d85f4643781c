package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Custom errors
var (
	ErrEmptyBatch        = errors.New("input batch is empty")
	ErrNoAcceptedRecords = errors.New("no records passed precondition validation")
	ErrMissingObserved   = errors.New("record has no observed class")
)

// RejectionReason identifies why a record failed precondition validation
type RejectionReason string

const (
	ReasonInvalidProbability RejectionReason = "invalid_probability"
	ReasonInvalidPrice       RejectionReason = "invalid_price"
	ReasonNonPositiveEV      RejectionReason = "non_positive_ev"
	ReasonInvalidVector      RejectionReason = "invalid_vector"
)

// InputShapeError indicates a malformed probability vector. Per-record, never batch-fatal.
type InputShapeError struct {
	CandidateID uuid.UUID
	Field       string
	Reason      string
}

func (e *InputShapeError) Error() string {
	return fmt.Sprintf("input shape error [%s] on %s: %s", e.CandidateID, e.Field, e.Reason)
}

// RangeError indicates a numeric value outside its valid range. Per-record, never batch-fatal.
type RangeError struct {
	CandidateID uuid.UUID
	Field       string
	Value       float64
	Constraint  string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("range error [%s]: %s = %v, must be %s", e.CandidateID, e.Field, e.Value, e.Constraint)
}

// TemporalViolationError indicates fold overlap or a non-monotonic split.
// Batch-fatal: the associated model's cross-validated metrics cannot be trusted.
type TemporalViolationError struct {
	FoldIndex int
	Message   string
}

func (e *TemporalViolationError) Error() string {
	return fmt.Sprintf("temporal violation in fold %d: %s", e.FoldIndex, e.Message)
}

// ConfigurationError indicates invalid allocator configuration. Batch-fatal.
type ConfigurationError struct {
	Parameter string
	Value     float64
	Message   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s = %v (%s)", e.Parameter, e.Value, e.Message)
}
