// Package budget classifies a category's monthly spend against its limit.
package budget

import "math"

// NearThreshold is the spend ratio from which a category is near its limit.
const NearThreshold = 0.8

// Status is the classification of a spend-to-budget ratio.
type Status string

const (
	StatusNoBudget Status = "no_budget"
	StatusOnTrack  Status = "on_track"
	StatusNear     Status = "near"
	StatusOver     Status = "over"
)

// Label returns the display text for s.
func (s Status) Label() string {
	switch s {
	case StatusOnTrack:
		return "On track"
	case StatusNear:
		return "Near limit"
	case StatusOver:
		return "Over budget"
	default:
		return "No budget"
	}
}

// Tone returns the presentation tone: neutral, ok, warn or danger.
func (s Status) Tone() string {
	switch s {
	case StatusOnTrack:
		return "ok"
	case StatusNear:
		return "warn"
	case StatusOver:
		return "danger"
	default:
		return "neutral"
	}
}

// Alerting reports whether s warrants a notification.
func (s Status) Alerting() bool {
	return s == StatusNear || s == StatusOver
}

// Evaluation is the derived state of one category budget.
type Evaluation struct {
	Budget    float64 `json:"budget"`
	Spent     float64 `json:"spent"`
	Ratio     float64 `json:"ratio"`
	Remaining float64 `json:"remaining"`
	Status    Status  `json:"status"`
}

// Evaluate classifies spent against budget. A budget of zero or less means
// no budget is set. Remaining is negative when the budget is exceeded.
func Evaluate(budget, spent float64) Evaluation {
	e := Evaluation{Budget: budget, Spent: spent, Remaining: budget - spent}
	if budget <= 0 {
		e.Status = StatusNoBudget
		return e
	}
	e.Ratio = spent / budget
	switch {
	case e.Ratio >= 1:
		e.Status = StatusOver
	case e.Ratio >= NearThreshold:
		e.Status = StatusNear
	default:
		e.Status = StatusOnTrack
	}
	return e
}

// Progress returns the ratio as a percentage capped at 100, for progress bars.
func (e Evaluation) Progress() float64 {
	return math.Min(e.Ratio*100, 100)
}

// RemainingLabel returns "Remaining" or "Over by" and the non-negative amount
// that goes with it.
func (e Evaluation) RemainingLabel() (string, float64) {
	if e.Remaining < 0 {
		return "Over by", math.Abs(e.Remaining)
	}
	return "Remaining", e.Remaining
}
