package sensing

import (
	"github.com/c360/semstreams-robotics/node"
)

// Register registers the sensing node factories
func Register(registry *node.Registry) error {
	registrations := []*node.Registration{
		{Name: "sensor_data_receiver", Description: "Publishes the triggering sensor packet", Factory: NewSensorDataReceiver},
		{Name: "fall_state_estimation", Description: "Classifies torso orientation into a fall state", Factory: NewFallStateEstimation},
		{Name: "game_state_filter", Description: "Chest button driven primary state", Factory: NewGameStateFilter},
		{Name: "localization", Description: "Odometry integration into ground_to_field", Factory: NewLocalization},
		{Name: "ball_detection", Description: "Nearest ball candidate of a camera frame", Factory: NewBallDetection},
		{Name: "team_ball_receiver", Description: "Freshest ball reported by teammates", Factory: NewTeamBallReceiver},
	}
	for _, r := range registrations {
		if err := registry.RegisterFactory(r); err != nil {
			return err
		}
	}
	return nil
}
