package behavior

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// DefendPositions are the field positions of the defending actions
type DefendPositions struct {
	Goal  types.Point2 `json:"goal"`
	Left  types.Point2 `json:"left"`
	Right types.Point2 `json:"right"`
	// PenaltySidestepSpeed is the lateral speed used against a penalty shot
	PenaltySidestepSpeed float64 `json:"penalty_sidestep_speed"`
}

// DefendMotion holds defending positions and reacts to penalty shots
type DefendMotion struct {
	motionBindings
	walking   *view.Parameter[Walking]
	positions *view.Parameter[DefendPositions]
}

// NewDefendMotion returns the factory of the defend_motion node
func NewDefendMotion(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		m, err := bindMotion(c, table, "DefendMotion")
		if err != nil {
			return nil, err
		}
		return &DefendMotion{
			motionBindings: m,
			walking:        view.NewParameter[Walking](c, "behavior.walking"),
			positions:      view.NewParameter[DefendPositions](c, "behavior.defend"),
		}, nil
	}
}

// Cycle publishes a candidate for the defending actions
func (d *DefendMotion) Cycle(_ context.Context, cy *view.Cycle) error {
	action, ok := d.active(cy)
	if !ok {
		return d.idle(cy)
	}
	ws := d.worldState.Get(cy)
	positions := d.positions.Get(cy)
	head := lookAtBall(ws)

	var target types.Point2
	switch action.Kind {
	case types.ActionDefendPenaltyKick:
		return d.emit(cy, penaltySidestep(ws, positions.PenaltySidestepSpeed, head))
	case types.ActionDefendLeft:
		target = positions.Left
	case types.ActionDefendRight:
		target = positions.Right
	case types.ActionDefendOpponentCornerKick:
		target = positions.Right
		if action.Side == types.SideLeft {
			target = positions.Left
		}
	default:
		target = positions.Goal
	}

	inGround, ok := toGround(ws, target)
	if !ok {
		return d.emit(cy, searchingStand())
	}
	walking := d.walking.Get(cy)
	return d.emit(cy, walkTo(inGround, walking.Speed, walking.MaxAngularVelocity, head))
}

func penaltySidestep(ws types.WorldState, speed float64, head types.HeadMotion) types.MotionCommand {
	if ws.Ball == nil || ws.Ball.PenaltyShotDirection == nil {
		cmd := types.StandCommand()
		cmd.Head = head
		return cmd
	}
	switch *ws.Ball.PenaltyShotDirection {
	case types.PenaltyShotLeft:
		return types.WalkWithVelocity(types.Vector2{Y: speed}, 0, head)
	case types.PenaltyShotRight:
		return types.WalkWithVelocity(types.Vector2{Y: -speed}, 0, head)
	default:
		cmd := types.StandCommand()
		cmd.Head = head
		return cmd
	}
}
