// Package scoring computes goal priority scores. Scoring is a pure function:
// no side effects, no I/O, identical input always yields identical output.
// Callers persist the returned score and decide when to re-score.
package scoring

import (
	"sort"
	"time"

	"github.com/atelierhq/atelier/internal/db/models"
)

// Signal scale bounds. Signals are clamped into [MinSignal, MaxSignal] so a
// single wild input cannot dominate the combination.
const (
	MinSignal = 0.0
	MaxSignal = 10.0
	// NeutralSignal is the mid-scale default used when a signal is unknown,
	// so untouched goals are not starved by zeroed inputs.
	NeutralSignal = 5.0
)

// Signals are the weighted inputs for one work item.
type Signals struct {
	Urgency float64 `json:"urgency"`
	Impact  float64 `json:"impact"`
	Unblock float64 `json:"unblock"` // count of downstream goals this would unblock
	Risk    float64 `json:"risk"`
	Cost    float64 `json:"cost"`
	Age     float64 `json:"age"` // hours since creation, capped at MaxSignal
}

// NeutralSignals returns the defaults applied when a caller knows nothing
// about a goal. Unblock and Age start at zero because both are measured, not
// estimated.
func NeutralSignals() Signals {
	return Signals{
		Urgency: NeutralSignal,
		Impact:  NeutralSignal,
		Unblock: 0,
		Risk:    NeutralSignal,
		Cost:    NeutralSignal,
		Age:     0,
	}
}

// Weights is the fixed configuration table for the linear combination.
type Weights struct {
	Urgency float64
	Impact  float64
	Unblock float64
	Risk    float64
	Cost    float64
	Age     float64
}

// DefaultWeights favors urgency and impact, charges for risk and cost, and
// gives a small nudge to older goals so nothing waits forever.
func DefaultWeights() Weights {
	return Weights{
		Urgency: 3.0,
		Impact:  2.5,
		Unblock: 2.0,
		Risk:    1.5,
		Cost:    1.0,
		Age:     0.5,
	}
}

// Engine scores goals with a fixed weight table.
type Engine struct {
	weights Weights
}

// NewEngine creates a scoring engine with the given weights.
func NewEngine(weights Weights) *Engine {
	return &Engine{weights: weights}
}

// Score computes the weighted linear combination
//
//	w1*urgency + w2*impact + w3*unblock - w4*risk - w5*cost + w6*age
//
// over clamped signals. It is total: any input produces a finite score.
func (e *Engine) Score(s Signals) float64 {
	w := e.weights
	return w.Urgency*clamp(s.Urgency) +
		w.Impact*clamp(s.Impact) +
		w.Unblock*clamp(s.Unblock) -
		w.Risk*clamp(s.Risk) -
		w.Cost*clamp(s.Cost) +
		w.Age*clamp(s.Age)
}

// SignalsForGoal derives scoring inputs from a stored goal: urgency from its
// priority, age from its creation time, neutral values for everything the
// record does not carry.
func (e *Engine) SignalsForGoal(goal *models.Goal, now time.Time) Signals {
	s := NeutralSignals()
	if goal.Priority > 0 {
		s.Urgency = float64(goal.Priority)
	}
	s.Age = now.Sub(goal.CreatedAt).Hours()
	return s
}

// TopN selects the n highest-scored goals still eligible for work (pending,
// in progress, or blocked). Ties break to the older goal so repeated scoring
// passes are fair and deterministic. When fewer than n qualify, fewer are
// returned; the slice is never padded with ineligible goals.
func TopN(goals []models.Goal, n int) []models.Goal {
	eligible := make([]models.Goal, 0, len(goals))
	for _, g := range goals {
		if g.Status.Schedulable() {
			eligible = append(eligible, g)
		}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Score != eligible[j].Score {
			return eligible[i].Score > eligible[j].Score
		}
		return eligible[i].ID < eligible[j].ID
	})

	if len(eligible) > n {
		eligible = eligible[:n]
	}
	return eligible
}

func clamp(v float64) float64 {
	if v < MinSignal {
		return MinSignal
	}
	if v > MaxSignal {
		return MaxSignal
	}
	return v
}
