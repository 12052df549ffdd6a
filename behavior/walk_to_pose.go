package behavior

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// WalkToPoseTargets are field positions of the positioning actions
type WalkToPoseTargets struct {
	KickOff     types.Point2 `json:"kick_off"`
	PenaltyKick types.Point2 `json:"penalty_kick"`
	// SupportDistance is kept behind and beside the ball when supporting
	SupportDistance float64 `json:"support_distance"`
}

// WalkToPose walks to field positions. It needs the ground to field
// transform and stands looking around without it.
type WalkToPose struct {
	motionBindings
	walking *view.Parameter[Walking]
	targets *view.Parameter[WalkToPoseTargets]
}

// NewWalkToPose returns the factory of the walk_to_pose node
func NewWalkToPose(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		m, err := bindMotion(c, table, "WalkToPose")
		if err != nil {
			return nil, err
		}
		return &WalkToPose{
			motionBindings: m,
			walking:        view.NewParameter[Walking](c, "behavior.walking"),
			targets:        view.NewParameter[WalkToPoseTargets](c, "behavior.walk_to_pose"),
		}, nil
	}
}

// Cycle publishes a candidate for the positioning actions
func (w *WalkToPose) Cycle(_ context.Context, cy *view.Cycle) error {
	action, ok := w.active(cy)
	if !ok {
		return w.idle(cy)
	}
	ws := w.worldState.Get(cy)
	targets := w.targets.Get(cy)

	var target types.Point2
	switch action.Kind {
	case types.ActionWalkToKickOff:
		target = targets.KickOff
	case types.ActionWalkToPenaltyKick:
		target = targets.PenaltyKick
	default:
		if ws.Ball == nil || ws.Ball.BallInField == nil {
			return w.emit(cy, searchingStand())
		}
		d := targets.SupportDistance
		offset := types.Vector2{X: -d}
		switch action.Kind {
		case types.ActionSupportLeft:
			offset.Y = d
		case types.ActionSupportRight:
			offset.Y = -d
		}
		target = ws.Ball.BallInField.Add(offset)
	}

	inGround, ok := toGround(ws, target)
	if !ok {
		return w.emit(cy, searchingStand())
	}
	walking := w.walking.Get(cy)
	return w.emit(cy, walkTo(inGround, walking.Speed, walking.MaxAngularVelocity, lookAtBall(ws)))
}

func searchingStand() types.MotionCommand {
	cmd := types.StandCommand()
	cmd.Head = types.HeadMotion{Kind: types.HeadLookAround}
	return cmd
}
