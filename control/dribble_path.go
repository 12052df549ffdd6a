package control

import (
	"context"
	"math"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
	"github.com/c360/semstreams-robotics/worldstate"
)

// Dribbling tunes the dribble path
type Dribbling struct {
	// KickOffset is the distance between ball and kick position
	KickOffset float64 `json:"kick_offset"`
	// AlignmentAngle is the largest bearing error walked without an arc
	AlignmentAngle float64 `json:"alignment_angle"`
}

// DribblePath plans a path to the kick position behind the ball, facing the
// opponent goal
type DribblePath struct {
	worldState  view.Input[types.WorldState]
	dribbling   *view.Parameter[Dribbling]
	dribblePath view.MainOutput[types.Path]
}

// NewDribblePath binds world_state
func NewDribblePath(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &DribblePath{
		worldState:  view.NewInput[types.WorldState](c, worldstate.WorldStatePath),
		dribbling:   view.NewParameter[Dribbling](c, "behavior.dribbling"),
		dribblePath: view.NewMainOutput[types.Path](c, DribblePathPath),
	}, nil
}

// Cycle publishes dribble_path, nil without a ball
func (d *DribblePath) Cycle(_ context.Context, cy *view.Cycle) error {
	ws := d.worldState.Get(cy)
	if ws.Ball == nil {
		return d.dribblePath.Set(cy, nil)
	}
	// the opponent goal is along the field x axis
	kickDirection := types.Vector2{X: 1}
	if ws.Robot.GroundToField != nil {
		kickDirection = ws.Robot.GroundToField.Inverse().TransformVector(kickDirection)
	}
	return d.dribblePath.Set(cy, PlanDribblePath(ws.Ball.BallInGround, kickDirection, d.dribbling.Get(cy)))
}

// PlanDribblePath plans from the robot at the ground origin to the kick
// position. When the robot is off the kick line by more than the alignment
// angle, the path walks to the circle around the ball and follows it.
func PlanDribblePath(ball types.Point2, kickDirection types.Vector2, p Dribbling) types.Path {
	approach := types.NormalizeAngle(kickDirection.Angle() + math.Pi)
	onCircle := func(angle float64) types.Point2 {
		return ball.Add(types.Vector2{X: math.Cos(angle), Y: math.Sin(angle)}.Scale(p.KickOffset))
	}
	kickPosition := onCircle(approach)

	robotAngle := types.Origin.Sub(ball).Angle()
	sweep := types.NormalizeAngle(approach - robotAngle)
	if math.Abs(sweep) <= p.AlignmentAngle || ball.DistanceTo(types.Origin) <= p.KickOffset {
		return types.Path{types.LineSegment{Start: types.Origin, End: kickPosition}}
	}
	return types.Path{
		types.LineSegment{Start: types.Origin, End: onCircle(robotAngle)},
		types.Arc{Center: ball, Radius: p.KickOffset, StartAngle: robotAngle, EndAngle: robotAngle + sweep},
	}
}
