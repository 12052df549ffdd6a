package behavior

import (
	"context"
	"fmt"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// MotionSelector forwards the candidate of the action's handler as the
// authoritative motion command. Without a candidate the robot stands.
type MotionSelector struct {
	table         *ActionTable
	action        view.Input[types.Action]
	candidates    map[string]view.OptionalInput[*types.MotionCommand]
	motionCommand view.MainOutput[types.MotionCommand]
}

// NewMotionSelector returns the factory of the motion_selector node
func NewMotionSelector(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		if table == nil {
			return nil, errors.WrapFatal(fmt.Errorf("%w: action table", errors.ErrMissingConfig),
				"MotionSelector", "New", "dependency validation")
		}
		s := &MotionSelector{
			table:         table,
			action:        view.NewInput[types.Action](c, ActionPath),
			candidates:    make(map[string]view.OptionalInput[*types.MotionCommand]),
			motionCommand: view.NewMainOutput[types.MotionCommand](c, MotionCommandPath),
		}
		for _, n := range table.Nodes() {
			s.candidates[n] = view.NewOptionalInput[*types.MotionCommand](c, CandidatePath(n))
		}
		return s, nil
	}
}

// Cycle publishes motion_command
func (s *MotionSelector) Cycle(_ context.Context, cy *view.Cycle) error {
	return s.motionCommand.Set(cy, s.Select(cy))
}

// Select returns the candidate of the current action's handler
func (s *MotionSelector) Select(cy *view.Cycle) types.MotionCommand {
	handler, ok := s.table.Handler(s.action.Get(cy).Kind)
	if !ok {
		return types.StandCommand()
	}
	candidate, ok := s.candidates[handler].Get(cy)
	if !ok || candidate == nil {
		return types.StandCommand()
	}
	return *candidate
}
