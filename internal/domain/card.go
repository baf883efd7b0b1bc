package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardUserIDEmpty is returned when a card's user ID is empty or nil.
	ErrCardUserIDEmpty = errors.New("card user ID cannot be empty")

	// ErrCardDeckIDEmpty is returned when a card's deck ID is empty or nil.
	ErrCardDeckIDEmpty = errors.New("card deck ID cannot be empty")

	// ErrCardContentEmpty is returned when a card has neither front nor back text.
	ErrCardContentEmpty = errors.New("card content cannot be empty")

	// ErrCardDifficultyRange is returned when difficulty falls outside [1,10].
	ErrCardDifficultyRange = errors.New("card difficulty must be within [1, 10]")

	// ErrCardStabilityFloor is returned when stability falls below 0.1 days.
	ErrCardStabilityFloor = errors.New("card stability must be at least 0.1")

	// ErrCardRetrievabilityRange is returned when retrievability falls outside [0,1].
	ErrCardRetrievabilityRange = errors.New("card retrievability must be within [0, 1]")

	// ErrFSRSParameterCount is returned when a parameter vector does not hold
	// exactly 21 weights.
	ErrFSRSParameterCount = errors.New("fsrs parameters must contain exactly 21 values")
)

// Memory-state bounds and defaults for new cards.
const (
	MinDifficulty = 1.0
	MaxDifficulty = 10.0
	MinStability  = 0.1

	DefaultDifficulty     = 5.0
	DefaultStability      = 1.0
	DefaultRetrievability = 0.9

	// FSRSParameterCount is the length of every FSRS weight vector.
	FSRSParameterCount = 21

	// PerformanceHistoryWindow bounds the response history stored on a card.
	PerformanceHistoryWindow = 10
)

// DefaultFSRSParameters are the FSRS-6 default weights used when neither the
// card nor the user profile carries personal parameters.
var DefaultFSRSParameters = [FSRSParameterCount]float64{
	0.212, 1.2931, 2.3065, 8.2956,
	6.4133, 0.8334, 3.0194, 0.001,
	1.8722, 0.1666, 0.796, 1.4835,
	0.0614, 0.2629, 1.6483, 0.6014,
	1.8729, 0.5425, 0.0912, 0.0658,
	0.1542,
}

// DefaultFSRSParameterSlice returns a fresh copy of the default weights.
func DefaultFSRSParameterSlice() []float64 {
	p := make([]float64, FSRSParameterCount)
	copy(p, DefaultFSRSParameters[:])
	return p
}

// CardType classifies the presentation of a card.
type CardType string

// Card type values. Everything except basic counts as a special type for
// engagement purposes.
const (
	CardTypeBasic          CardType = "basic"
	CardTypeReverse        CardType = "reverse"
	CardTypeCloze          CardType = "cloze"
	CardTypeImageOcclusion CardType = "image_occlusion"
)

// ConfidenceLevel is the derived learning status of a card. It is recomputed
// from the performance history and never treated as authoritative.
type ConfidenceLevel string

// Confidence level values
const (
	ConfidenceBuilding   ConfidenceLevel = "building"
	ConfidenceOptimal    ConfidenceLevel = "optimal"
	ConfidenceStruggling ConfidenceLevel = "struggling"
)

// StabilityTrend records the direction of the most recent stability update.
type StabilityTrend string

// Stability trend values
const (
	StabilityIncreasing StabilityTrend = "increasing"
	StabilityDecreasing StabilityTrend = "decreasing"
	StabilityStable     StabilityTrend = "stable"
)

// ContextualDifficulty holds learned difficulty multipliers for the hour of
// day and day of week. A value of 1.0 is neutral; above 1.0 means the card is
// harder than usual at that time.
type ContextualDifficulty struct {
	ByHour    map[int]float64          `json:"by_hour,omitempty"`
	ByWeekday map[time.Weekday]float64 `json:"by_weekday,omitempty"`
}

// Card is a flashcard together with its memory-state bundle.
type Card struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	DeckID    uuid.UUID `json:"deck_id"`
	Type      CardType  `json:"type"`
	Front     string    `json:"front"`
	Back      string    `json:"back"`
	MediaURLs []string  `json:"media_urls,omitempty"`
	Tags      []string  `json:"tags,omitempty"`

	Difficulty     float64   `json:"difficulty"`
	Stability      float64   `json:"stability"`
	Retrievability float64   `json:"retrievability"`
	FSRSParameters []float64 `json:"fsrs_parameters"`

	PerformanceHistory    []ResponseLog        `json:"performance_history"`
	CognitiveLoadIndex    float64              `json:"cognitive_load_index"`
	ConfidenceLevel       ConfidenceLevel      `json:"confidence_level"`
	ConceptSimilarity     []uuid.UUID          `json:"concept_similarity,omitempty"`
	LastClusterReview     time.Time            `json:"last_cluster_review"`
	LastReviewedAt        time.Time            `json:"last_reviewed_at"`
	NextReviewAt          time.Time            `json:"next_review_at"`
	ReviewCount           int                  `json:"review_count"`
	AverageResponseTimeMS float64              `json:"average_response_time_ms"`
	StabilityTrend        StabilityTrend       `json:"stability_trend"`
	ContextualDifficulty  ContextualDifficulty `json:"contextual_difficulty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCard creates a new Card with default memory state. The card is due
// immediately (NextReviewAt is left unset).
// Returns an error if validation fails.
func NewCard(userID, deckID uuid.UUID, cardType CardType, front, back string, now time.Time) (*Card, error) {
	if cardType == "" {
		cardType = CardTypeBasic
	}
	card := &Card{
		ID:                 uuid.New(),
		UserID:             userID,
		DeckID:             deckID,
		Type:               cardType,
		Front:              front,
		Back:               back,
		Difficulty:         DefaultDifficulty,
		Stability:          DefaultStability,
		Retrievability:     DefaultRetrievability,
		FSRSParameters:     DefaultFSRSParameterSlice(),
		PerformanceHistory: []ResponseLog{},
		ConfidenceLevel:    ConfidenceBuilding,
		StabilityTrend:     StabilityStable,
		CreatedAt:          now.UTC(),
		UpdatedAt:          now.UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks identity fields and the memory-state data-quality contract:
// difficulty in [1,10], stability >= 0.1, retrievability in [0,1] and exactly
// 21 FSRS parameters.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}
	if c.UserID == uuid.Nil {
		return ErrCardUserIDEmpty
	}
	if c.DeckID == uuid.Nil {
		return ErrCardDeckIDEmpty
	}
	if strings.TrimSpace(c.Front) == "" && strings.TrimSpace(c.Back) == "" {
		return ErrCardContentEmpty
	}
	return c.ValidateMemoryState()
}

// ValidateMemoryState checks only the DSR fields and parameter vector.
func (c *Card) ValidateMemoryState() error {
	if math.IsNaN(c.Difficulty) || c.Difficulty < MinDifficulty || c.Difficulty > MaxDifficulty {
		return ErrCardDifficultyRange
	}
	if math.IsNaN(c.Stability) || c.Stability < MinStability {
		return ErrCardStabilityFloor
	}
	if math.IsNaN(c.Retrievability) || c.Retrievability < 0 || c.Retrievability > 1 {
		return ErrCardRetrievabilityRange
	}
	if len(c.FSRSParameters) != FSRSParameterCount {
		return ErrFSRSParameterCount
	}
	return nil
}

// Clone returns a deep copy of the card so callers can derive a new version
// without touching the original.
func (c *Card) Clone() *Card {
	if c == nil {
		return nil
	}
	out := *c
	out.MediaURLs = append([]string(nil), c.MediaURLs...)
	out.Tags = append([]string(nil), c.Tags...)
	out.FSRSParameters = append([]float64(nil), c.FSRSParameters...)
	out.PerformanceHistory = append([]ResponseLog(nil), c.PerformanceHistory...)
	out.ConceptSimilarity = append([]uuid.UUID(nil), c.ConceptSimilarity...)
	if c.ContextualDifficulty.ByHour != nil {
		out.ContextualDifficulty.ByHour = make(map[int]float64, len(c.ContextualDifficulty.ByHour))
		for k, v := range c.ContextualDifficulty.ByHour {
			out.ContextualDifficulty.ByHour[k] = v
		}
	}
	if c.ContextualDifficulty.ByWeekday != nil {
		out.ContextualDifficulty.ByWeekday = make(map[time.Weekday]float64, len(c.ContextualDifficulty.ByWeekday))
		for k, v := range c.ContextualDifficulty.ByWeekday {
			out.ContextualDifficulty.ByWeekday[k] = v
		}
	}
	return &out
}

// HasMedia reports whether the card carries any media attachments.
func (c *Card) HasMedia() bool {
	return len(c.MediaURLs) > 0
}

// IsSpecialType reports whether the card is anything other than a basic card.
func (c *Card) IsSpecialType() bool {
	return c.Type != "" && c.Type != CardTypeBasic
}

// ContentText returns the combined front and back text.
func (c *Card) ContentText() string {
	return strings.TrimSpace(c.Front + " " + c.Back)
}

// IsDue reports whether the card has no scheduled review or is scheduled at
// or before now.
func (c *Card) IsDue(now time.Time) bool {
	return c.NextReviewAt.IsZero() || !c.NextReviewAt.After(now)
}

// DaysSinceReview returns elapsed days since the last review, or 0 for cards
// that have never been reviewed.
func (c *Card) DaysSinceReview(now time.Time) float64 {
	if c.LastReviewedAt.IsZero() {
		return 0
	}
	d := now.Sub(c.LastReviewedAt).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// DaysOverdue returns how many days past NextReviewAt the card is. Cards
// without a due date or not yet due return 0.
func (c *Card) DaysOverdue(now time.Time) float64 {
	if c.NextReviewAt.IsZero() || now.Before(c.NextReviewAt) {
		return 0
	}
	return now.Sub(c.NextReviewAt).Hours() / 24
}

// RecentRatings returns up to n most recent ratings, oldest first.
func (c *Card) RecentRatings(n int) []Rating {
	h := c.PerformanceHistory
	if n < len(h) {
		h = h[len(h)-n:]
	}
	out := make([]Rating, len(h))
	for i, r := range h {
		out[i] = r.Rating
	}
	return out
}

// AverageRating returns the mean 1..4 rating value across the stored history,
// or 0 when there is no history.
func (c *Card) AverageRating() float64 {
	if len(c.PerformanceHistory) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range c.PerformanceHistory {
		sum += r.Rating.Value()
	}
	return sum / float64(len(c.PerformanceHistory))
}

// IsConceptSimilar reports whether id is listed as a related concept.
func (c *Card) IsConceptSimilar(id uuid.UUID) bool {
	for _, s := range c.ConceptSimilarity {
		if s == id {
			return true
		}
	}
	return false
}

// AppendHistory returns the history with resp appended, trimmed to the
// rolling PerformanceHistoryWindow.
func (c *Card) AppendHistory(resp ResponseLog) []ResponseLog {
	h := append(append([]ResponseLog(nil), c.PerformanceHistory...), resp)
	if len(h) > PerformanceHistoryWindow {
		h = h[len(h)-PerformanceHistoryWindow:]
	}
	return h
}

// DeriveConfidenceLevel recomputes the confidence level from a response
// history: two or more lapses among the last three answers mean struggling,
// three successful recalls in a row mean optimal, anything else is building.
func DeriveConfidenceLevel(history []ResponseLog) ConfidenceLevel {
	recent := history
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	lapses, successes := 0, 0
	for _, r := range recent {
		switch {
		case r.Rating == RatingAgain:
			lapses++
		case r.Rating.IsSuccess():
			successes++
		}
	}
	switch {
	case lapses >= 2:
		return ConfidenceStruggling
	case len(recent) == 3 && successes == 3:
		return ConfidenceOptimal
	default:
		return ConfidenceBuilding
	}
}
