package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rating represents the learner's self-assessed recall of a card.
type Rating string

// Possible rating values
const (
	RatingAgain Rating = "again"
	RatingHard  Rating = "hard"
	RatingGood  Rating = "good"
	RatingEasy  Rating = "easy"
)

// ParseRating converts a case-insensitive string into a Rating.
func ParseRating(s string) (Rating, error) {
	r := Rating(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRating, s)
	}
	return r, nil
}

// IsValid reports whether r is one of the four known ratings.
func (r Rating) IsValid() bool {
	switch r {
	case RatingAgain, RatingHard, RatingGood, RatingEasy:
		return true
	default:
		return false
	}
}

// Value maps the rating onto the 1..4 scale used for trend and variance
// calculations. Unknown ratings map to 0.
func (r Rating) Value() float64 {
	switch r {
	case RatingAgain:
		return 1
	case RatingHard:
		return 2
	case RatingGood:
		return 3
	case RatingEasy:
		return 4
	default:
		return 0
	}
}

// IsSuccess reports whether the rating counts as a successful recall.
func (r Rating) IsSuccess() bool {
	return r == RatingGood || r == RatingEasy
}

// NetworkQuality describes connectivity at the time of an answer.
type NetworkQuality string

// Network quality values
const (
	NetworkExcellent NetworkQuality = "excellent"
	NetworkGood      NetworkQuality = "good"
	NetworkPoor      NetworkQuality = "poor"
	NetworkOffline   NetworkQuality = "offline"
)

// DeviceType describes the device used to answer.
type DeviceType string

// Device type values
const (
	DeviceDesktop DeviceType = "desktop"
	DeviceMobile  DeviceType = "mobile"
	DeviceTablet  DeviceType = "tablet"
)

// NoiseLevel describes ambient noise.
type NoiseLevel string

// Noise level values
const (
	NoiseQuiet    NoiseLevel = "quiet"
	NoiseModerate NoiseLevel = "moderate"
	NoiseNoisy    NoiseLevel = "noisy"
)

// Lighting describes ambient lighting.
type Lighting string

// Lighting values
const (
	LightingOptimal Lighting = "optimal"
	LightingDim     Lighting = "dim"
	LightingBright  Lighting = "bright"
)

// EnvironmentalContext is a snapshot of the learner's surroundings when a
// response was given. Empty fields mean "unknown" and never trigger
// adjustments.
type EnvironmentalContext struct {
	NetworkQuality NetworkQuality `json:"network_quality,omitempty"`
	DeviceType     DeviceType     `json:"device_type,omitempty"`
	LowBattery     bool           `json:"low_battery,omitempty"`
	NoiseLevel     NoiseLevel     `json:"noise_level,omitempty"`
	Lighting       Lighting       `json:"lighting,omitempty"`
}

// PoorNetwork reports a degraded but present connection.
func (e EnvironmentalContext) PoorNetwork() bool { return e.NetworkQuality == NetworkPoor }

// Offline reports a missing connection.
func (e EnvironmentalContext) Offline() bool { return e.NetworkQuality == NetworkOffline }

// Mobile reports whether the answer came from a phone.
func (e EnvironmentalContext) Mobile() bool { return e.DeviceType == DeviceMobile }

// Noisy reports a noisy environment.
func (e EnvironmentalContext) Noisy() bool { return e.NoiseLevel == NoiseNoisy }

// Quiet reports a quiet environment.
func (e EnvironmentalContext) Quiet() bool { return e.NoiseLevel == NoiseQuiet }

// LightingKnown reports whether lighting was captured at all.
func (e EnvironmentalContext) LightingKnown() bool { return e.Lighting != "" }

// OptimalLighting reports optimal lighting.
func (e EnvironmentalContext) OptimalLighting() bool { return e.Lighting == LightingOptimal }

// ContextualFactors captures the session signals in effect when a response
// was given.
type ContextualFactors struct {
	SessionFatigue float64              `json:"session_fatigue"`
	CognitiveLoad  float64              `json:"cognitive_load"`
	Environment    EnvironmentalContext `json:"environment"`
}

// ResponseLog is the immutable record of a single answer. It is created once
// per answer, appended to histories and never mutated afterwards.
type ResponseLog struct {
	ID             uuid.UUID         `json:"id"`
	CardID         uuid.UUID         `json:"card_id"`
	SessionID      uuid.UUID         `json:"session_id"`
	Timestamp      time.Time         `json:"timestamp"`
	Rating         Rating            `json:"rating"`
	ResponseTimeMS int64             `json:"response_time_ms"`
	Context        ContextualFactors `json:"contextual_factors"`
}

// NewResponseLog creates a validated response event.
func NewResponseLog(
	cardID, sessionID uuid.UUID,
	rating Rating,
	responseTimeMS int64,
	factors ContextualFactors,
	at time.Time,
) (*ResponseLog, error) {
	r := &ResponseLog{
		ID:             uuid.New(),
		CardID:         cardID,
		SessionID:      sessionID,
		Timestamp:      at.UTC(),
		Rating:         rating,
		ResponseTimeMS: responseTimeMS,
		Context:        factors,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks the response event for well-formedness.
func (r *ResponseLog) Validate() error {
	if r.CardID == uuid.Nil {
		return fmt.Errorf("%w: card id", ErrInvalidID)
	}
	if !r.Rating.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRating, r.Rating)
	}
	if r.ResponseTimeMS < 0 {
		return ErrInvalidResponseTime
	}
	return nil
}

// ResponseTime returns the response time as a duration.
func (r ResponseLog) ResponseTime() time.Duration {
	return time.Duration(r.ResponseTimeMS) * time.Millisecond
}

// ResponseSeconds returns the response time in seconds.
func (r ResponseLog) ResponseSeconds() float64 {
	return float64(r.ResponseTimeMS) / 1000
}
