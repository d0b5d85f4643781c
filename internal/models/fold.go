package models

import (
	"time"

	"github.com/google/uuid"
)

// Sample represents one labelled training record inside a fold partition
type Sample struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
	Class     int       `json:"class" validate:"gte=0"`
}

// TemporalFold represents one train/test partition of a temporally ordered dataset
type TemporalFold struct {
	Index        int       `json:"index"`
	TrainStart   time.Time `json:"train_start"`
	TrainEnd     time.Time `json:"train_end"`
	TestStart    time.Time `json:"test_start"`
	TestEnd      time.Time `json:"test_end"`
	TrainSamples []Sample  `json:"train_samples"`
	TestSamples  []Sample  `json:"test_samples"`
}

// TrainTimestampRange returns the min and max observed train timestamps
func (f *TemporalFold) TrainTimestampRange() (time.Time, time.Time, bool) {
	return timestampRange(f.TrainSamples)
}

// TestTimestampRange returns the min and max observed test timestamps
func (f *TemporalFold) TestTimestampRange() (time.Time, time.Time, bool) {
	return timestampRange(f.TestSamples)
}

// TrainClasses returns the set of classes observed in the train partition
func (f *TemporalFold) TrainClasses() map[int]int {
	return classCounts(f.TrainSamples)
}

// TestClasses returns the set of classes observed in the test partition
func (f *TemporalFold) TestClasses() map[int]int {
	return classCounts(f.TestSamples)
}

func timestampRange(samples []Sample) (time.Time, time.Time, bool) {
	if len(samples) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min := samples[0].Timestamp
	max := samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp.Before(min) {
			min = s.Timestamp
		}
		if s.Timestamp.After(max) {
			max = s.Timestamp
		}
	}
	return min, max, true
}

func classCounts(samples []Sample) map[int]int {
	counts := make(map[int]int)
	for _, s := range samples {
		counts[s.Class]++
	}
	return counts
}
