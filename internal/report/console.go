// Package report renders engine outputs for terminals and spreadsheets. The
// core computation packages never write anywhere; rendering lives here and is
// only wired into the CLIs.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/ykato27/keiba-engine/internal/betting"
	"github.com/ykato27/keiba-engine/internal/evaluation"
	"github.com/ykato27/keiba-engine/internal/validation"
)

// WriteValidationReport renders per-fold verdicts as a table plus a summary line
func WriteValidationReport(w io.Writer, r validation.ValidationReport) {
	table := tablewriter.NewWriter(w)
	table.Header("Fold", "Train Range", "Test Range", "Gap (days)", "TVD", "Verdict", "Notes")

	for _, v := range r.Verdicts {
		notes := []string{}
		notes = append(notes, v.Errors...)
		notes = append(notes, v.Warnings...)

		verdict := "OK"
		if !v.Valid {
			verdict = "FAIL"
		} else if len(v.Warnings) > 0 {
			verdict = "WARN"
		}

		table.Append(
			fmt.Sprintf("%d", v.FoldIndex),
			formatRange(v.TrainRange),
			formatRange(v.TestRange),
			fmt.Sprintf("%d", v.DaysGap),
			fmt.Sprintf("%.3f", v.Divergence),
			verdict,
			strings.Join(notes, "; "),
		)
	}
	table.Render()

	status := "PASS"
	if !r.AllValid {
		status = "FAIL"
	}
	fmt.Fprintf(w, "Folds: %d/%d valid, overall %s\n", r.ValidFolds, r.TotalFolds, status)
}

// WriteClassMetrics renders per-class scores and headline aggregates
func WriteClassMetrics(w io.Writer, m evaluation.ClassMetrics, classNames map[int]string) {
	table := tablewriter.NewWriter(w)
	table.Header("Class", "Precision", "Recall", "F1", "Support", "Flags")

	for _, class := range sortedKeys(m.PerClass) {
		score := m.PerClass[class]
		flags := ""
		if score.NoSupport {
			flags = "no support"
		}
		table.Append(
			className(class, classNames),
			fmt.Sprintf("%.4f", score.Precision),
			fmt.Sprintf("%.4f", score.Recall),
			fmt.Sprintf("%.4f", score.F1),
			fmt.Sprintf("%d", score.Support),
			flags,
		)
	}
	table.Render()

	for _, skipped := range m.Skipped {
		fmt.Fprintf(w, "skipped %s: %s\n", skipped.CandidateID, skipped.Reason)
	}
	fmt.Fprintf(w, "Accuracy %.4f | F1 macro %.4f | F1 weighted %.4f | Log loss %.4f | Records %d\n",
		m.Accuracy, m.MacroF1, m.WeightedF1, m.LogLoss, m.TotalRecords)
}

// WriteAllocationPlan renders the stake plan with its portfolio summary
func WriteAllocationPlan(w io.Writer, plan betting.AllocationPlan, summary betting.Summary) {
	table := tablewriter.NewWriter(w)
	table.Header("Candidate", "Prob", "Price", "EV %", "Kelly", "Safe", "Stake", "Flags")

	for _, entry := range plan.Entries {
		name := entry.CandidateName
		if name == "" {
			name = entry.CandidateID.String()[:8]
		}
		table.Append(
			name,
			fmt.Sprintf("%.2f%%", entry.Probability*100),
			fmt.Sprintf("%.2f", entry.Price),
			fmt.Sprintf("%.2f", entry.ExpectedValue*100),
			fmt.Sprintf("%.4f", entry.KellyFraction),
			fmt.Sprintf("%.4f", entry.SafeFraction),
			fmt.Sprintf("%.2f", entry.RecommendedStake),
			strings.Join(entry.Flags, ","),
		)
	}
	table.Render()

	for _, rejection := range plan.Rejections {
		fmt.Fprintf(w, "rejected %s: %s (%s)\n",
			rejection.Record.CandidateName, rejection.Reason, rejection.Detail)
	}

	fmt.Fprintf(w, "Total stake %.2f", plan.TotalStake)
	if plan.PortfolioScaled {
		fmt.Fprintf(w, " (portfolio cap applied, ratio %.4f)", plan.ScaleRatio)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "EV mean %.2f%% median %.2f%% min %.2f%% max %.2f%% | expected ROI %.2f%%\n",
		summary.MeanEVPct, summary.MedianEVPct, summary.MinEVPct, summary.MaxEVPct, summary.TotalExpectedROI)
	fmt.Fprintln(w, summary.Status)
}

func formatRange(r [2]time.Time) string {
	if r[0].IsZero() && r[1].IsZero() {
		return "-"
	}
	return r[0].Format("2006-01-02") + " .. " + r[1].Format("2006-01-02")
}

func className(class int, names map[int]string) string {
	if name, ok := names[class]; ok {
		return name
	}
	return fmt.Sprintf("class %d", class)
}

func sortedKeys(perClass map[int]evaluation.ClassScore) []int {
	keys := make([]int, 0, len(perClass))
	for k := range perClass {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
