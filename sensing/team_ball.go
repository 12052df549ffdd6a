package sensing

import (
	"context"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// TeamBallReceiver keeps the freshest ball reported by a teammate. Balls
// last seen longer than team.ball_timeout ago are dropped.
type TeamBallReceiver struct {
	network      hardware.Network
	playerNumber *view.Parameter[int]
	timeout      *view.Parameter[config.Duration]
	latest       view.PersistentState[*types.BallPosition]
	teamBall     view.MainOutput[*types.BallPosition]
}

// NewTeamBallReceiver binds the team_ball output
func NewTeamBallReceiver(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	hw, err := requireHardware(deps, "TeamBallReceiver")
	if err != nil {
		return nil, err
	}
	return &TeamBallReceiver{
		network:      hw,
		playerNumber: view.NewParameter[int](c, "player.number"),
		timeout:      view.NewParameter[config.Duration](c, "team.ball_timeout"),
		latest:       view.NewPersistentState[*types.BallPosition](c, "team_ball_receiver.latest", nil),
		teamBall:     view.NewMainOutput[*types.BallPosition](c, TeamBallPath),
	}, nil
}

// Cycle publishes team_ball in the field frame, nil when no fresh ball exists
func (r *TeamBallReceiver) Cycle(ctx context.Context, cy *view.Cycle) error {
	messages, err := r.network.ReadTeamMessages(ctx)
	if err != nil {
		return errors.Wrap(err, "TeamBallReceiver", "Cycle", "read team messages")
	}

	latest := r.latest.Get(cy)
	own := r.playerNumber.Get(cy)
	for _, msg := range messages {
		if msg.Ball == nil || msg.PlayerNumber == own {
			continue
		}
		if *latest == nil || msg.Ball.LastSeen.After((*latest).LastSeen) {
			ball := *msg.Ball
			*latest = &ball
		}
	}

	if *latest != nil && cy.Time().Sub((*latest).LastSeen) > r.timeout.Get(cy).Std() {
		*latest = nil
	}
	return r.teamBall.Set(cy, *latest)
}
