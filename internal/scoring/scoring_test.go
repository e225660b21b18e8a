package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/internal/db/models"
	"gorm.io/gorm"
)

func TestScoreIsDeterministic(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	signals := Signals{Urgency: 8, Impact: 7, Unblock: 2, Risk: 3, Cost: 4, Age: 1}

	first := engine.Score(signals)
	second := engine.Score(signals)
	require.Equal(t, first, second)
}

func TestScoreWeighting(t *testing.T) {
	engine := NewEngine(Weights{Urgency: 1, Impact: 1, Unblock: 1, Risk: 1, Cost: 1, Age: 1})

	// 8 + 6 + 2 - 3 - 4 + 1
	score := engine.Score(Signals{Urgency: 8, Impact: 6, Unblock: 2, Risk: 3, Cost: 4, Age: 1})
	require.InDelta(t, 10.0, score, 1e-9)

	// Higher risk and cost must lower the score.
	riskier := engine.Score(Signals{Urgency: 8, Impact: 6, Unblock: 2, Risk: 9, Cost: 9, Age: 1})
	require.Less(t, riskier, score)
}

func TestScoreIsTotalOverWildInputs(t *testing.T) {
	engine := NewEngine(DefaultWeights())

	// Out-of-range inputs are clamped, never rejected.
	score := engine.Score(Signals{Urgency: 1e9, Impact: -1e9, Unblock: 500, Risk: -3, Cost: 1e6, Age: -1})
	capped := engine.Score(Signals{Urgency: MaxSignal, Impact: MinSignal, Unblock: MaxSignal, Risk: MinSignal, Cost: MaxSignal, Age: MinSignal})
	require.Equal(t, capped, score)
}

func TestNeutralSignalsAreMidScale(t *testing.T) {
	s := NeutralSignals()
	require.Equal(t, NeutralSignal, s.Urgency)
	require.Equal(t, NeutralSignal, s.Impact)
	require.Equal(t, NeutralSignal, s.Risk)
	require.Equal(t, NeutralSignal, s.Cost)
	require.Zero(t, s.Unblock)
	require.Zero(t, s.Age)
}

func TestSignalsForGoalDerivesUrgencyAndAge(t *testing.T) {
	engine := NewEngine(DefaultWeights())
	now := time.Now()

	goal := &models.Goal{Priority: 7, CreatedAt: now.Add(-2 * time.Hour)}
	s := engine.SignalsForGoal(goal, now)
	require.InDelta(t, 7.0, s.Urgency, 1e-9)
	require.InDelta(t, 2.0, s.Age, 0.01)

	// Unset priority falls back to the neutral default.
	unset := &models.Goal{CreatedAt: now}
	require.Equal(t, NeutralSignal, engine.SignalsForGoal(unset, now).Urgency)
}

func goalWith(id uint, status models.GoalStatus, score float64) models.Goal {
	return models.Goal{
		Model:  gorm.Model{ID: id},
		Status: status,
		Score:  score,
	}
}

func TestTopNSelectsHighestEligible(t *testing.T) {
	goals := []models.Goal{
		goalWith(1, models.GoalStatusPending, 10),
		goalWith(2, models.GoalStatusCompleted, 99),
		goalWith(3, models.GoalStatusInProgress, 30),
		goalWith(4, models.GoalStatusBlocked, 20),
		goalWith(5, models.GoalStatusFailed, 50),
		goalWith(6, models.GoalStatusPending, 5),
	}

	top := TopN(goals, 3)
	require.Len(t, top, 3)
	require.EqualValues(t, 3, top[0].ID)
	require.EqualValues(t, 4, top[1].ID)
	require.EqualValues(t, 1, top[2].ID)
}

func TestTopNTiesBreakToOlderGoal(t *testing.T) {
	goals := []models.Goal{
		goalWith(9, models.GoalStatusPending, 10),
		goalWith(2, models.GoalStatusPending, 10),
		goalWith(5, models.GoalStatusPending, 10),
	}

	top := TopN(goals, 2)
	require.Len(t, top, 2)
	require.EqualValues(t, 2, top[0].ID)
	require.EqualValues(t, 5, top[1].ID)
}

func TestTopNNeverPads(t *testing.T) {
	goals := []models.Goal{
		goalWith(1, models.GoalStatusPending, 10),
		goalWith(2, models.GoalStatusCompleted, 20),
		goalWith(3, models.GoalStatusFailed, 30),
	}

	top := TopN(goals, 3)
	require.Len(t, top, 1)

	require.Empty(t, TopN(nil, 3))
}

func TestTopNIsStableAcrossCalls(t *testing.T) {
	goals := []models.Goal{
		goalWith(1, models.GoalStatusPending, 12),
		goalWith(2, models.GoalStatusBlocked, 12),
		goalWith(3, models.GoalStatusInProgress, 40),
	}

	first := TopN(goals, 3)
	second := TopN(goals, 3)
	require.Equal(t, first, second)
}
