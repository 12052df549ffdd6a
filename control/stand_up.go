package control

import (
	"context"
	"time"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// StandUpDurations are the full durations of the stand up motions
type StandUpDurations struct {
	Front config.Duration `json:"front"`
	Back  config.Duration `json:"back"`
}

// fallen remembers since when the robot lies in one fall state
type fallen struct {
	State types.FallState `json:"state"`
	Since time.Time       `json:"since"`
}

// StandUpEstimator publishes how long the running stand up still takes
type StandUpEstimator struct {
	fallState view.Input[types.FallState]
	durations *view.Parameter[StandUpDurations]
	fallen    view.PersistentState[fallen]
	front     view.MainOutput[*time.Duration]
	back      view.MainOutput[*time.Duration]
}

// NewStandUpEstimator binds fall_state
func NewStandUpEstimator(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &StandUpEstimator{
		fallState: view.NewInput[types.FallState](c, sensing.FallStatePath),
		durations: view.NewParameter[StandUpDurations](c, "behavior.stand_up"),
		fallen:    view.NewPersistentState(c, "stand_up_estimator.fallen", fallen{}),
		front:     view.NewMainOutput[*time.Duration](c, StandUpFrontRemainingPath),
		back:      view.NewMainOutput[*time.Duration](c, StandUpBackRemainingPath),
	}, nil
}

// Cycle publishes the remaining durations, nil for the side not fallen on
func (s *StandUpEstimator) Cycle(_ context.Context, cy *view.Cycle) error {
	state := s.fallState.Get(cy)
	memory := s.fallen.Get(cy)
	if !state.Fallen() {
		*memory = fallen{}
	} else if memory.State != state || memory.Since.IsZero() {
		*memory = fallen{State: state, Since: cy.Time()}
	}

	var front, back *time.Duration
	durations := s.durations.Get(cy)
	switch state {
	case types.FallStateFallenFront:
		front = remaining(durations.Front.Std(), cy.Time().Sub(memory.Since))
	case types.FallStateFallenBack:
		back = remaining(durations.Back.Std(), cy.Time().Sub(memory.Since))
	}

	if err := s.front.Set(cy, front); err != nil {
		return err
	}
	return s.back.Set(cy, back)
}

func remaining(total, elapsed time.Duration) *time.Duration {
	left := max(total-elapsed, 0)
	return &left
}
