package sensing

import (
	"fmt"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
)

// Store paths written by this package
const (
	SensorDataPath    = "sensor_data"
	FallStatePath     = "fall_state"
	PrimaryStatePath  = "primary_state"
	GroundToFieldPath = "ground_to_field"
	BallPositionPath  = "ball_position"
	TeamBallPath      = "team_ball"
)

func requireHardware(deps node.Dependencies, component string) (hardware.Interface, error) {
	if deps.Hardware == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: hardware interface", errors.ErrMissingConfig),
			component, "New", "dependency validation")
	}
	return deps.Hardware, nil
}
