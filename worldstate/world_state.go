package worldstate

import (
	"context"
	"time"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// WorldStateComposer aggregates the control cycler's estimates
type WorldStateComposer struct {
	ballState     view.OptionalInput[*types.BallState]
	groundToField view.OptionalInput[*types.Isometry2]
	primaryState  view.Input[types.PrimaryState]
	fallState     view.Input[types.FallState]
	role          view.Input[types.Role]
	lastSeenBall  view.PersistentState[time.Time]
	worldState    view.MainOutput[types.WorldState]
}

// NewWorldStateComposer binds the composed inputs
func NewWorldStateComposer(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &WorldStateComposer{
		ballState:     view.NewOptionalInput[*types.BallState](c, BallStatePath),
		groundToField: view.NewOptionalInput[*types.Isometry2](c, sensing.GroundToFieldPath),
		primaryState:  view.NewInput[types.PrimaryState](c, sensing.PrimaryStatePath),
		fallState:     view.NewInput[types.FallState](c, sensing.FallStatePath),
		role:          view.NewInput[types.Role](c, RolePath),
		lastSeenBall:  view.NewPersistentState(c, LastSeenBallPath, time.Time{}),
		worldState:    view.NewMainOutput[types.WorldState](c, WorldStatePath),
	}, nil
}

// Cycle publishes world_state
func (w *WorldStateComposer) Cycle(_ context.Context, cy *view.Cycle) error {
	ball, _ := w.ballState.Get(cy)
	groundToField, _ := w.groundToField.Get(cy)

	return w.worldState.Set(cy, types.WorldState{
		Ball: ball,
		Robot: types.RobotState{
			GroundToField: groundToField,
			PrimaryState:  w.primaryState.Get(cy),
			FallState:     w.fallState.Get(cy),
			Role:          w.role.Get(cy),
		},
		LastSeenBall: *w.lastSeenBall.Get(cy),
		Now:          cy.Time(),
	})
}
