package dsr

import (
	"fmt"
	"strings"

	"github.com/phrazzld/scry-uams/internal/domain"
)

// explain assembles a short description of which adjustments fired. The text
// is for display only and never drives control flow.
func (e *Engine) explain(
	card *domain.Card,
	resp domain.ResponseLog,
	difficulty, stability float64,
	adj Adjustments,
) string {
	var parts []string

	switch {
	case difficulty > card.Difficulty+0.05:
		parts = append(parts, fmt.Sprintf("difficulty rose from %.1f to %.1f", card.Difficulty, difficulty))
	case difficulty < card.Difficulty-0.05:
		parts = append(parts, fmt.Sprintf("difficulty fell from %.1f to %.1f", card.Difficulty, difficulty))
	default:
		parts = append(parts, fmt.Sprintf("difficulty steady at %.1f", difficulty))
	}

	switch {
	case stability > card.Stability*1.05:
		parts = append(parts, fmt.Sprintf("stability grew to %.1f days", stability))
	case stability < card.Stability*0.95:
		parts = append(parts, fmt.Sprintf("stability dropped to %.1f days", stability))
	default:
		parts = append(parts, fmt.Sprintf("stability held near %.1f days", stability))
	}

	ctx := resp.Context
	if ctx.SessionFatigue > 0.5 {
		parts = append(parts, "session fatigue is high")
	}
	if ctx.CognitiveLoad > 0.7 {
		parts = append(parts, "cognitive load is elevated")
	}
	if adj.Environment > 0 {
		parts = append(parts, "study conditions made recall harder")
	}
	if adj.ResponseTime > 0 {
		parts = append(parts, "answer was slower than usual")
	} else if adj.ResponseTime < 0 {
		parts = append(parts, "answer was faster than usual")
	}
	if adj.TimeOfDay >= 0.4 {
		parts = append(parts, "late-night review")
	}

	return strings.Join(parts, "; ")
}
