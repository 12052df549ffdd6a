package control

import (
	"github.com/c360/semstreams-robotics/node"
)

// Register registers the control node factories
func Register(registry *node.Registry) error {
	registrations := []*node.Registration{
		{Name: "dribble_path", Description: "Path to the kick position behind the ball", Factory: NewDribblePath},
		{Name: "stand_up_estimator", Description: "Remaining stand up durations", Factory: NewStandUpEstimator},
		{Name: "time_to_reach_kick_position", Description: "Walking plus stand up time to the kick position", Factory: NewTimeToReachKickPosition},
		{Name: "motor_command_writer", Description: "Writes the motion command to the actuators", Factory: NewMotorCommandWriter},
	}
	for _, r := range registrations {
		if err := registry.RegisterFactory(r); err != nil {
			return err
		}
	}
	return nil
}
