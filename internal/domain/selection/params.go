package selection

import "time"

// Params defines the filter thresholds and per-strategy confidence values of
// the selector.
type Params struct {
	// Anti-clustering
	ClusterLookback     int
	ClusterWindow       time.Duration
	SimilarityThreshold float64
	NoveltyLookback     int

	// Cognitive load ceiling
	MinAllowableLoad   float64
	ContentLengthNorm  float64
	ComplexityWeight   float64
	RetrievabilityLoad float64
	FatigueLoadShrink  float64

	// Alternatives returned next to the selected card
	MaxAlternatives int

	// StrictFilters makes filter exhaustion an error instead of falling back
	// to the unfiltered set.
	StrictFilters bool

	// Confidence per strategy path
	CrisisConfidence             float64
	CrisisFallbackConfidence     float64
	FatigueConfidence            float64
	ChallengeConfidence          float64
	ChallengeFallbackConfidence  float64
	FlowConfidence               float64
	FlowFallbackConfidence       float64
	EngagementConfidence         float64
	EngagementFallbackConfidence float64
	BalancedConfidence           float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		ClusterLookback:     3,
		ClusterWindow:       5 * time.Minute,
		SimilarityThreshold: 0.7,
		NoveltyLookback:     10,

		MinAllowableLoad:   0.3,
		ContentLengthNorm:  500,
		ComplexityWeight:   0.2,
		RetrievabilityLoad: 0.3,
		FatigueLoadShrink:  0.5,

		MaxAlternatives: 2,

		CrisisConfidence:             0.9,
		CrisisFallbackConfidence:     0.7,
		FatigueConfidence:            0.85,
		ChallengeConfidence:          0.8,
		ChallengeFallbackConfidence:  0.65,
		FlowConfidence:               0.85,
		FlowFallbackConfidence:       0.65,
		EngagementConfidence:         0.75,
		EngagementFallbackConfidence: 0.6,
		BalancedConfidence:           0.7,
	}
}
