package behavior

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// Walk to ball tuning
const (
	WalkToBallSpeed           = 0.1
	WalkToBallMaxAngularSpeed = 0.25
)

// WalkToBall approaches the ball for dribbling and intercepting
type WalkToBall struct {
	motionBindings
}

// NewWalkToBall returns the factory of the walk_to_ball node
func NewWalkToBall(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		m, err := bindMotion(c, table, "WalkToBall")
		if err != nil {
			return nil, err
		}
		return &WalkToBall{motionBindings: m}, nil
	}
}

// Cycle publishes a candidate while dribbling or intercepting with a ball
func (w *WalkToBall) Cycle(_ context.Context, cy *view.Cycle) error {
	if _, ok := w.active(cy); !ok {
		return w.idle(cy)
	}
	ws := w.worldState.Get(cy)
	if ws.Ball == nil {
		return w.idle(cy)
	}
	return w.emit(cy, WalkTowardsBall(ws.Ball.BallInGround))
}

// WalkTowardsBall walks at a fixed speed towards the ball and turns by its
// lateral offset, clamped to the maximum angular speed
func WalkTowardsBall(ball types.Point2) types.MotionCommand {
	return types.WalkWithVelocity(
		ball.Coords().Normalize().Scale(WalkToBallSpeed),
		types.Clamp(ball.Y, -WalkToBallMaxAngularSpeed, WalkToBallMaxAngularSpeed),
		types.LookAt(ball, types.ImageRegionCenter, types.CameraBottom),
	)
}
