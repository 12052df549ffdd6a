package behavior

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// PrimitiveMotion emits the motions that need no planning
type PrimitiveMotion struct {
	motionBindings
}

// NewPrimitiveMotion returns the factory of the primitive_motion node
func NewPrimitiveMotion(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		m, err := bindMotion(c, table, "PrimitiveMotion")
		if err != nil {
			return nil, err
		}
		return &PrimitiveMotion{motionBindings: m}, nil
	}
}

// Cycle publishes a candidate for the primitive actions
func (p *PrimitiveMotion) Cycle(_ context.Context, cy *view.Cycle) error {
	action, ok := p.active(cy)
	if !ok {
		return p.idle(cy)
	}
	switch action.Kind {
	case types.ActionUnstiff:
		return p.emit(cy, types.MotionCommand{Kind: types.MotionUnstiff})
	case types.ActionPenalize:
		return p.emit(cy, types.MotionCommand{Kind: types.MotionPenalized})
	case types.ActionStandUp:
		return p.emit(cy, types.MotionCommand{Kind: types.MotionStandUp})
	case types.ActionInitial:
		cmd := types.StandCommand()
		cmd.Head = types.HeadMotion{Kind: types.HeadZeroAngles}
		return p.emit(cy, cmd)
	default:
		return p.emit(cy, types.StandCommand())
	}
}
