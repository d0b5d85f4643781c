package validation

import "math"

// classProportions converts class counts to proportions of the partition
func classProportions(counts map[int]int) map[int]float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	proportions := make(map[int]float64, len(counts))
	if total == 0 {
		return proportions
	}
	for class, c := range counts {
		proportions[class] = float64(c) / float64(total)
	}
	return proportions
}

// totalVariationDistance computes the bounded divergence between two class
// distributions: half the L1 distance, always in [0,1].
func totalVariationDistance(train, test map[int]float64) float64 {
	classes := make(map[int]struct{}, len(train)+len(test))
	for class := range train {
		classes[class] = struct{}{}
	}
	for class := range test {
		classes[class] = struct{}{}
	}

	distance := 0.0
	for class := range classes {
		distance += math.Abs(train[class] - test[class])
	}
	return distance / 2.0
}
