package control

import (
	"context"

	"github.com/c360/semstreams-robotics/behavior"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// MotorCommandWriter hands the motion command of the cycle to the actuators
type MotorCommandWriter struct {
	actuators     hardware.Actuators
	motionCommand view.Input[types.MotionCommand]
}

// NewMotorCommandWriter binds motion_command
func NewMotorCommandWriter(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	if deps.Hardware == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "MotorCommandWriter", "New", "dependency validation")
	}
	return &MotorCommandWriter{
		actuators:     deps.Hardware,
		motionCommand: view.NewInput[types.MotionCommand](c, behavior.MotionCommandPath),
	}, nil
}

// Cycle writes the command
func (m *MotorCommandWriter) Cycle(ctx context.Context, cy *view.Cycle) error {
	if err := m.actuators.WriteMotionCommand(ctx, m.motionCommand.Get(cy)); err != nil {
		return errors.Wrap(err, "MotorCommandWriter", "Cycle", "write motion command")
	}
	return nil
}
