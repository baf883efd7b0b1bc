package cogload

// Params defines the weights and thresholds of the cognitive load model.
type Params struct {
	// Factor weights, in factor order: time fatigue, response variance, error
	// rate, difficulty accumulation, environmental stress, contextual demand.
	Weights [6]float64

	HistoryWindow        int     // responses considered for variance and error rate
	DifficultyWindow     int     // responses considered for difficulty accumulation
	FatigueTimeConstant  float64 // minutes
	VarianceNormalizer   float64
	DifficultyThreshold  float64
	DifficultyRange      float64
	CapacityFatigueDrain float64
	MinCapacity          float64
	HourCapacity         [24]float64

	// Environmental stress penalties
	PoorNetworkStress float64
	OfflineStress     float64
	MobileStress      float64
	LowBatteryStress  float64
	NoisyStress       float64
	LightingStress    float64

	// Contextual demand
	OffHoursDemand          float64
	AfternoonDipDemand      float64
	LongSessionMinutes      float64
	MaxLongSessionDemand    float64
	DecliningMomentumDemand float64

	// Utilization and sustainability
	OptimalUtilizationLow  float64
	OptimalUtilizationHigh float64
	MaxIncrease            float64
	MaxDecrease            float64
	StressThreshold        float64
	OvertimeMinutes        float64
	OvertimeSpan           float64
	MinOvertimeFactor      float64
	TrendAdjustment        float64
}

// hourCapacity is the share of base capacity available at each hour of the
// day. It peaks mid-morning and bottoms out around 2-3 AM.
var hourCapacity = [24]float64{
	0.5, 0.4, 0.3, 0.3, 0.35, 0.45, // 00-05
	0.6, 0.75, 0.85, 0.95, 1.0, 0.95, // 06-11
	0.85, 0.75, 0.75, 0.8, 0.85, 0.85, // 12-17
	0.8, 0.75, 0.7, 0.65, 0.6, 0.55, // 18-23
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights:              [6]float64{0.25, 0.20, 0.20, 0.15, 0.10, 0.10},
		HistoryWindow:        10,
		DifficultyWindow:     5,
		FatigueTimeConstant:  45,
		VarianceNormalizer:   0.5,
		DifficultyThreshold:  6.0,
		DifficultyRange:      4.0,
		CapacityFatigueDrain: 0.4,
		MinCapacity:          0.1,
		HourCapacity:         hourCapacity,

		PoorNetworkStress: 0.3,
		OfflineStress:     0.5,
		MobileStress:      0.1,
		LowBatteryStress:  0.2,
		NoisyStress:       0.15,
		LightingStress:    0.1,

		OffHoursDemand:          0.2,
		AfternoonDipDemand:      0.1,
		LongSessionMinutes:      60,
		MaxLongSessionDemand:    0.3,
		DecliningMomentumDemand: 0.15,

		OptimalUtilizationLow:  0.3,
		OptimalUtilizationHigh: 0.7,
		MaxIncrease:            2,
		MaxDecrease:            3,
		StressThreshold:        0.8,
		OvertimeMinutes:        45,
		OvertimeSpan:           90,
		MinOvertimeFactor:      0.3,
		TrendAdjustment:        0.1,
	}
}
