// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
)

// AuditLogger provides a dedicated audit trail for batch dispositions, so
// every fold and every candidate reviewed leaves a record.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogFoldVerdict logs the outcome of one fold integrity check.
func (al *AuditLogger) LogFoldVerdict(foldIndex int, valid bool, errors, warnings []string) {
	al.WithFields(logrus.Fields{
		"fold_index": foldIndex,
		"valid":      valid,
		"errors":     errors,
		"warnings":   warnings,
	}).Info("Fold verdict recorded")
}

// LogCandidateDisposition logs whether a candidate was accepted, rejected or errored.
func (al *AuditLogger) LogCandidateDisposition(candidateID, disposition, reason string, expectedValue float64) {
	al.WithFields(logrus.Fields{
		"candidate_id":   candidateID,
		"disposition":    disposition,
		"reason":         reason,
		"expected_value": expectedValue,
	}).Info("Candidate disposition recorded")
}

// LogAllocation logs a produced stake recommendation.
func (al *AuditLogger) LogAllocation(candidateID string, stake, kellyFraction, safeFraction float64, flags []string) {
	al.WithFields(logrus.Fields{
		"candidate_id":   candidateID,
		"stake":          stake,
		"kelly_fraction": kellyFraction,
		"safe_fraction":  safeFraction,
		"flags":          flags,
	}).Info("Allocation recorded")
}

// LogBatchSummary logs the aggregate outcome of one engine invocation.
func (al *AuditLogger) LogBatchSummary(batchKind string, total, accepted, rejected int, fatal bool) {
	al.WithFields(logrus.Fields{
		"batch_kind": batchKind,
		"total":      total,
		"accepted":   accepted,
		"rejected":   rejected,
		"fatal":      fatal,
	}).Info("Batch summary recorded")
}
