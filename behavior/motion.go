package behavior

import (
	"fmt"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
	"github.com/c360/semstreams-robotics/worldstate"
)

// arrivalDistance is close enough to a walking target to stand
const arrivalDistance = 0.1

// motionBindings are shared by every motion node
type motionBindings struct {
	node       string
	table      *ActionTable
	action     view.Input[types.Action]
	worldState view.Input[types.WorldState]
	candidate  view.MainOutput[*types.MotionCommand]
}

func bindMotion(c *view.Creation, table *ActionTable, component string) (motionBindings, error) {
	if table == nil {
		return motionBindings{}, errors.WrapFatal(fmt.Errorf("%w: action table", errors.ErrMissingConfig),
			component, "New", "dependency validation")
	}
	handles := false
	for _, n := range table.Nodes() {
		if n == c.Node() {
			handles = true
		}
	}
	if !handles {
		return motionBindings{}, errors.WrapFatal(
			fmt.Errorf("%w: %s handles no action", errors.ErrInvalidConfig, c.Node()),
			component, "New", "action table lookup")
	}
	return motionBindings{
		node:       c.Node(),
		table:      table,
		action:     view.NewInput[types.Action](c, ActionPath),
		worldState: view.NewInput[types.WorldState](c, worldstate.WorldStatePath),
		candidate:  view.NewMainOutput[*types.MotionCommand](c, CandidatePath(c.Node())),
	}, nil
}

// active returns the current action when this node handles it
func (m motionBindings) active(cy *view.Cycle) (types.Action, bool) {
	action := m.action.Get(cy)
	return action, m.table.Handles(m.node, action.Kind)
}

func (m motionBindings) emit(cy *view.Cycle, cmd types.MotionCommand) error {
	return m.candidate.Set(cy, &cmd)
}

func (m motionBindings) idle(cy *view.Cycle) error {
	return m.candidate.Set(cy, nil)
}

// walkTo walks towards a target in the ground frame while turning to face
// it. Within arrivalDistance the robot stands.
func walkTo(target types.Point2, speed, maxTurn float64, head types.HeadMotion) types.MotionCommand {
	direction := target.Coords()
	if direction.Norm() < arrivalDistance {
		cmd := types.StandCommand()
		cmd.Head = head
		return cmd
	}
	return types.WalkWithVelocity(
		direction.Normalize().Scale(speed),
		types.Clamp(direction.Angle(), -maxTurn, maxTurn),
		head,
	)
}

// lookAtBall points the head at the ball when one is known
func lookAtBall(ws types.WorldState) types.HeadMotion {
	if ws.Ball == nil {
		return types.HeadMotion{Kind: types.HeadLookAround}
	}
	return types.LookAt(ws.Ball.BallInGround, types.ImageRegionCenter, types.CameraBottom)
}

// Walking tunes walkTo
type Walking struct {
	Speed              float64 `json:"speed"`
	MaxAngularVelocity float64 `json:"max_angular_velocity"`
}

// toGround moves a field position into the ground frame
func toGround(ws types.WorldState, inField types.Point2) (types.Point2, bool) {
	if ws.Robot.GroundToField == nil {
		return types.Point2{}, false
	}
	return ws.Robot.GroundToField.Inverse().TransformPoint(inField), true
}
