package dsr

import (
	"github.com/phrazzld/scry-uams/internal/domain"
)

// Params defines all tunable constants of the DSR engine.
type Params struct {
	// Difficulty
	BaseDifficulty       map[domain.Rating]float64
	FatigueDifficulty    float64 // weight of session fatigue at response time
	LoadDifficulty       float64 // weight of (1 - cognitive load) at response time
	DifficultyMemory     float64 // weight of the previous difficulty when smoothing
	HourDifficulty       [24]float64
	PoorNetworkPenalty   float64
	OfflinePenalty       float64
	MobilePenalty        float64
	LowBatteryPenalty    float64
	SlowResponsePenalty  float64 // response time above 2x the card average
	SlowerResponseFactor float64 // response time above 1.5x the card average
	FastResponseBonus    float64 // response time below 0.5x the card average
	QuickResponseBonus   float64 // response time below 0.7x the card average

	// Stability
	FatigueStability   float64
	QuietBonus         float64
	NoisyPenalty       float64
	OptimalLightBonus  float64
	PoorLightPenalty   float64
	ConsistencyPenalty float64 // modifier floor is 1 - ConsistencyPenalty
	ConsistencyWindow  int
	MaxStabilityDays   float64

	// Retrievability
	LoadRetrievability    float64
	FatigueRetrievability float64
	TrendRetrievability   float64
	TrendWindow           int
	MinRetrievability     float64
	MaxRetrievability     float64

	// Interval
	MinIntervalLoadModifier float64
	IntervalLoadWeight      float64
	IncreasingTrendModifier float64
	DecreasingTrendModifier float64
	MinContextualModifier   float64
	MaxContextualModifier   float64
	MaxIntervalDays         int
}

// hourDifficulty is the time-of-day difficulty adjustment, peaking mid
// morning and worst in the small hours.
var hourDifficulty = [24]float64{
	0.5, 0.6, 0.7, 0.7, 0.6, 0.4, // 00-05
	0.2, 0.0, -0.1, -0.2, -0.2, -0.1, // 06-11
	0.0, 0.1, 0.1, 0.0, -0.1, -0.1, // 12-17
	0.0, 0.0, 0.1, 0.2, 0.3, 0.4, // 18-23
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		BaseDifficulty: map[domain.Rating]float64{
			domain.RatingAgain: 8.5,
			domain.RatingHard:  6.5,
			domain.RatingGood:  4.5,
			domain.RatingEasy:  2.5,
		},
		FatigueDifficulty:    0.5,
		LoadDifficulty:       0.3,
		DifficultyMemory:     0.7,
		HourDifficulty:       hourDifficulty,
		PoorNetworkPenalty:   0.2,
		OfflinePenalty:       0.3,
		MobilePenalty:        0.1,
		LowBatteryPenalty:    0.1,
		SlowResponsePenalty:  0.5,
		SlowerResponseFactor: 0.3,
		FastResponseBonus:    -0.3,
		QuickResponseBonus:   -0.1,

		FatigueStability:   0.15,
		QuietBonus:         0.05,
		NoisyPenalty:       0.05,
		OptimalLightBonus:  0.02,
		PoorLightPenalty:   0.02,
		ConsistencyPenalty: 0.05,
		ConsistencyWindow:  5,
		MaxStabilityDays:   36500,

		LoadRetrievability:    0.1,
		FatigueRetrievability: 0.05,
		TrendRetrievability:   0.1,
		TrendWindow:           5,
		MinRetrievability:     0.01,
		MaxRetrievability:     0.99,

		MinIntervalLoadModifier: 0.7,
		IntervalLoadWeight:      0.3,
		IncreasingTrendModifier: 1.1,
		DecreasingTrendModifier: 0.9,
		MinContextualModifier:   0.8,
		MaxContextualModifier:   1.25,
		MaxIntervalDays:         36500,
	}
}
