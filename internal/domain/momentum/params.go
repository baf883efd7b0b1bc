package momentum

import "github.com/phrazzld/scry-uams/internal/domain"

// Params defines the constants of the momentum state machine.
type Params struct {
	Performance      map[domain.Rating]float64
	MomentumMemory   float64 // weight of the previous momentum
	TrendThreshold   float64
	FlowBandLow      float64
	FlowBandHigh     float64
	FatigueMinutes   float64 // session length at which time fatigue saturates
	CapacityMinutes  float64 // session length at which base capacity bottoms out
	AttentionMinutes float64 // session length at which attention runs out
	MinBaseCapacity  float64
	CapacityMemory   float64 // weight of the previous capacity

	// Momentum modifiers
	MorningBonus      float64
	AfternoonBonus    float64
	LateNightPenalty  float64
	HighLoadPenalty   float64
	LowLoadPenalty    float64
	NetworkPenalty    float64
	LowBatteryPenalty float64
	NoisyPenalty      float64
	GuessPenalty      float64
	StrugglePenalty   float64
	OptimalTimeBonus  float64

	// Fatigue increments
	SlowFatigue        float64 // response time above 10s
	VerySlowFatigue    float64 // response time above 20s
	AgainFatigue       float64
	HardFatigue        float64
	LoadFatigue        float64
	EasyRecovery       float64
	PoorNetworkFatigue float64
	OfflineFatigue     float64
	MobileFatigue      float64
	LowBatteryFatigue  float64
	NoisyFatigue       float64
	LightingFatigue    float64

	// Capacity and attention
	AgainCapacity    float64
	EasyCapacity     float64
	FatigueCapacity  float64
	FatigueAttention float64
	AgainAttention   float64
	EasyAttention    float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Performance: map[domain.Rating]float64{
			domain.RatingAgain: 0.0,
			domain.RatingHard:  0.25,
			domain.RatingGood:  0.75,
			domain.RatingEasy:  1.0,
		},
		MomentumMemory:   0.65,
		TrendThreshold:   0.05,
		FlowBandLow:      0.4,
		FlowBandHigh:     0.8,
		FatigueMinutes:   60,
		CapacityMinutes:  120,
		AttentionMinutes: 90,
		MinBaseCapacity:  0.3,
		CapacityMemory:   0.9,

		MorningBonus:      0.05,
		AfternoonBonus:    0.03,
		LateNightPenalty:  0.1,
		HighLoadPenalty:   0.05,
		LowLoadPenalty:    0.03,
		NetworkPenalty:    0.05,
		LowBatteryPenalty: 0.03,
		NoisyPenalty:      0.02,
		GuessPenalty:      0.05,
		StrugglePenalty:   0.1,
		OptimalTimeBonus:  0.02,

		SlowFatigue:        0.05,
		VerySlowFatigue:    0.1,
		AgainFatigue:       0.08,
		HardFatigue:        0.03,
		LoadFatigue:        0.02,
		EasyRecovery:       0.01,
		PoorNetworkFatigue: 0.03,
		OfflineFatigue:     0.05,
		MobileFatigue:      0.01,
		LowBatteryFatigue:  0.02,
		NoisyFatigue:       0.015,
		LightingFatigue:    0.01,

		AgainCapacity:    0.05,
		EasyCapacity:     0.02,
		FatigueCapacity:  0.3,
		FatigueAttention: 0.5,
		AgainAttention:   0.95,
		EasyAttention:    1.02,
	}
}
