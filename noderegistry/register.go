// Package noderegistry registers every node of the robot runtime.
package noderegistry

import (
	"errors"

	"github.com/c360/semstreams-robotics/behavior"
	"github.com/c360/semstreams-robotics/control"
	pkgerrors "github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/worldstate"
)

// Register registers all node factories with the provided registry:
//
// Sensing (hardware facing):
//   - sensor data, fall state, game state, localization
//   - ball detection, team ball receiver
//
// World state:
//   - penalty shot direction, ball state, role, world state composition
//   - team message sender
//
// Behavior:
//   - dispatcher, one motion node per action family, motion selector
//
// Control:
//   - dribble path, stand up and time to reach estimation, motor commands
//
// The motion nodes are bound to table. A nil table uses the default table.
func Register(registry *node.Registry, table *behavior.ActionTable) error {
	// Nil registry is a programming error
	if registry == nil {
		return pkgerrors.WrapFatal(
			errors.New("registry cannot be nil"),
			"NodeRegistry", "Register", "registry validation")
	}

	if table == nil {
		var err error
		if table, err = behavior.DefaultActionTable(); err != nil {
			return pkgerrors.WrapFatal(err, "NodeRegistry", "Register", "default action table")
		}
	}

	if err := sensing.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "NodeRegistry", "Register", "sensing node registration")
	}

	if err := worldstate.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "NodeRegistry", "Register", "world state node registration")
	}

	if err := behavior.Register(registry, table); err != nil {
		return pkgerrors.WrapInvalid(err, "NodeRegistry", "Register", "behavior node registration")
	}

	if err := control.Register(registry); err != nil {
		return pkgerrors.WrapInvalid(err, "NodeRegistry", "Register", "control node registration")
	}

	return nil
}
