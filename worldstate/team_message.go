package worldstate

import (
	"context"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// TeamMessageSender broadcasts the robot pose and its ball in the field
// frame. The ball is only shared while the pose is known.
type TeamMessageSender struct {
	network       hardware.Network
	playerNumber  *view.Parameter[int]
	ballState     view.OptionalInput[*types.BallState]
	groundToField view.OptionalInput[*types.Isometry2]
}

// NewTeamMessageSender binds the shared ball state
func NewTeamMessageSender(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	if deps.Hardware == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "TeamMessageSender", "New", "dependency validation")
	}
	return &TeamMessageSender{
		network:       deps.Hardware,
		playerNumber:  view.NewParameter[int](c, "player.number"),
		ballState:     view.NewOptionalInput[*types.BallState](c, BallStatePath),
		groundToField: view.NewOptionalInput[*types.Isometry2](c, sensing.GroundToFieldPath),
	}, nil
}

// Cycle sends one message
func (s *TeamMessageSender) Cycle(ctx context.Context, cy *view.Cycle) error {
	msg := types.TeamMessage{
		PlayerNumber: s.playerNumber.Get(cy),
		Sent:         cy.Time(),
	}
	groundToField, _ := s.groundToField.Get(cy)
	if groundToField != nil {
		msg.Pose = *groundToField
		if ball, _ := s.ballState.Get(cy); ball != nil && ball.BallInField != nil {
			msg.Ball = &types.BallPosition{
				Position: *ball.BallInField,
				Velocity: groundToField.TransformVector(ball.BallInGroundVelocity),
				LastSeen: ball.LastSeenBall,
			}
		}
	}
	if err := s.network.SendTeamMessage(ctx, msg); err != nil {
		return errors.Wrap(err, "TeamMessageSender", "Cycle", "send team message")
	}
	return nil
}
