package worldstate

import (
	"github.com/c360/semstreams-robotics/node"
)

// Register registers the world state node factories
func Register(registry *node.Registry) error {
	registrations := []*node.Registration{
		{Name: "penalty_shot_direction_estimation", Description: "Lateral ball velocity during penalty shots", Factory: NewPenaltyShotDirectionEstimation},
		{Name: "ball_state_composer", Description: "Local and team ball fusion with field side hysteresis", Factory: NewBallStateComposer},
		{Name: "role_assignment", Description: "Configured player role", Factory: NewRoleAssignment},
		{Name: "world_state_composer", Description: "Aggregated world state for behavior", Factory: NewWorldStateComposer},
		{Name: "team_message_sender", Description: "Broadcasts pose and ball to teammates", Factory: NewTeamMessageSender},
	}
	for _, r := range registrations {
		if err := registry.RegisterFactory(r); err != nil {
			return err
		}
	}
	return nil
}
