package queue

// Params defines buffer sizes and thresholds of the queue manager.
type Params struct {
	ReviewQueueSize   int
	LookaheadSize     int
	EmergencySize     int
	ChallengeSize     int
	FIFOReviewSize    int
	FIFOLookaheadSize int

	// Emergency cards are easy and stable.
	EmergencyMaxDifficulty float64
	EmergencyMinStability  float64

	// Challenge cards are hard or barely seen.
	ChallengeMinDifficulty float64
	ChallengeMaxReviews    int

	// Dynamic adjustment
	StrugglingPerformance float64
	StrugglingFatigue     float64
	ThrivingPerformance   float64
	ThrivingMomentum      float64
	ChallengeInsertAt     int

	// Ordering and diagnostics
	UrgencyDays            float64
	TargetDifficultyScale  float64 // target difficulty = momentum * scale
	BalancedDifficulty     float64
	OfflineLookaheadFactor int
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		ReviewQueueSize:   15,
		LookaheadSize:     10,
		EmergencySize:     5,
		ChallengeSize:     5,
		FIFOReviewSize:    10,
		FIFOLookaheadSize: 5,

		EmergencyMaxDifficulty: 4,
		EmergencyMinStability:  7,

		ChallengeMinDifficulty: 6,
		ChallengeMaxReviews:    3,

		StrugglingPerformance: 0.3,
		StrugglingFatigue:     0.6,
		ThrivingPerformance:   0.7,
		ThrivingMomentum:      0.8,
		ChallengeInsertAt:     5,

		UrgencyDays:            7,
		TargetDifficultyScale:  8,
		BalancedDifficulty:     5.5,
		OfflineLookaheadFactor: 2,
	}
}
