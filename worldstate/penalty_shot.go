package worldstate

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// PenaltyShotDirectionEstimation classifies the lateral ball velocity
type PenaltyShotDirectionEstimation struct {
	ballPosition      view.OptionalInput[*types.BallPosition]
	velocityThreshold *view.Parameter[float64]
	direction         view.MainOutput[*types.PenaltyShotDirection]
}

// NewPenaltyShotDirectionEstimation binds ball_position
func NewPenaltyShotDirectionEstimation(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &PenaltyShotDirectionEstimation{
		ballPosition:      view.NewOptionalInput[*types.BallPosition](c, sensing.BallPositionPath),
		velocityThreshold: view.NewParameter[float64](c, "behavior.penalty_shot.velocity_threshold"),
		direction:         view.NewMainOutput[*types.PenaltyShotDirection](c, PenaltyShotDirectionPath),
	}, nil
}

// Cycle publishes penalty_shot_direction, nil without a ball
func (p *PenaltyShotDirectionEstimation) Cycle(_ context.Context, cy *view.Cycle) error {
	ball, ok := p.ballPosition.Get(cy)
	if !ok || ball == nil {
		return p.direction.Set(cy, nil)
	}
	direction := EstimatePenaltyShotDirection(ball.Velocity, p.velocityThreshold.Get(cy))
	return p.direction.Set(cy, &direction)
}

// EstimatePenaltyShotDirection uses the lateral velocity in the ground frame.
// Positive y is to the robot's left.
func EstimatePenaltyShotDirection(velocity types.Vector2, threshold float64) types.PenaltyShotDirection {
	switch {
	case velocity.Y > threshold:
		return types.PenaltyShotLeft
	case velocity.Y < -threshold:
		return types.PenaltyShotRight
	default:
		return types.PenaltyShotNotMoving
	}
}
