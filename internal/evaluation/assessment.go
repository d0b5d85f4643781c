package evaluation

import (
	"fmt"
	"math"
)

// Default thresholds for the advisory assessment
const (
	DefaultImbalanceMultiplier = 3.0
	DefaultPrimaryRecallFloor  = 0.3
	classF1SpreadLimit         = 0.2
)

// Assessment carries advisory strengths and weaknesses. These annotate a
// metrics batch for reporting; they are never failures.
type Assessment struct {
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
}

// AssessmentConfig tunes the strengths/weaknesses thresholds
type AssessmentConfig struct {
	ImbalanceMultiplier float64
	PrimaryClass        int
	PrimaryRecallFloor  float64
}

// StrengthsWeaknesses flags class imbalance, weak primary-class recall and
// uneven per-class performance on an evaluated batch.
func StrengthsWeaknesses(m ClassMetrics, cfg AssessmentConfig) Assessment {
	if cfg.ImbalanceMultiplier <= 0 {
		cfg.ImbalanceMultiplier = DefaultImbalanceMultiplier
	}
	if cfg.PrimaryRecallFloor <= 0 {
		cfg.PrimaryRecallFloor = DefaultPrimaryRecallFloor
	}

	assessment := Assessment{Strengths: []string{}, Weaknesses: []string{}}

	if ratio, ok := supportRatio(m.PerClass); ok && ratio > cfg.ImbalanceMultiplier {
		assessment.Weaknesses = append(assessment.Weaknesses,
			fmt.Sprintf("class imbalance: largest/smallest support ratio %.1f exceeds %.1f", ratio, cfg.ImbalanceMultiplier))
	}

	if primary, ok := m.PerClass[cfg.PrimaryClass]; ok && !primary.NoSupport {
		if primary.Recall < cfg.PrimaryRecallFloor {
			assessment.Weaknesses = append(assessment.Weaknesses,
				fmt.Sprintf("low recall on primary class %d: %.3f below floor %.3f", cfg.PrimaryClass, primary.Recall, cfg.PrimaryRecallFloor))
		} else {
			assessment.Strengths = append(assessment.Strengths,
				fmt.Sprintf("primary class %d recall %.3f meets floor %.3f", cfg.PrimaryClass, primary.Recall, cfg.PrimaryRecallFloor))
		}
	}

	if spread, ok := f1Spread(m.PerClass); ok && spread > classF1SpreadLimit {
		assessment.Weaknesses = append(assessment.Weaknesses,
			fmt.Sprintf("uneven class performance: F1 spread %.2f exceeds %.2f", spread, classF1SpreadLimit))
	}

	if m.MacroF1 >= 0.5 {
		assessment.Strengths = append(assessment.Strengths,
			fmt.Sprintf("macro F1 %.3f indicates usable overall accuracy", m.MacroF1))
	}

	return assessment
}

func supportRatio(perClass map[int]ClassScore) (float64, bool) {
	smallest := math.MaxInt
	largest := 0
	for _, score := range perClass {
		if score.NoSupport {
			continue
		}
		if score.Support < smallest {
			smallest = score.Support
		}
		if score.Support > largest {
			largest = score.Support
		}
	}
	if smallest == math.MaxInt || smallest == 0 {
		return 0, false
	}
	return float64(largest) / float64(smallest), true
}

func f1Spread(perClass map[int]ClassScore) (float64, bool) {
	min := math.MaxFloat64
	max := -1.0
	for _, score := range perClass {
		if score.NoSupport {
			continue
		}
		if score.F1 < min {
			min = score.F1
		}
		if score.F1 > max {
			max = score.F1
		}
	}
	if max < 0 {
		return 0, false
	}
	return max - min, true
}
