package worldstate

import (
	"context"
	"time"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// Field side hysteresis around the centre line, in meters
const (
	FieldSideThreshold = 0.0
	FieldSideMargin    = 0.2
)

// BallStateComposer publishes ball_state from the local and team balls
type BallStateComposer struct {
	ballPosition         view.OptionalInput[*types.BallPosition]
	teamBall             view.OptionalInput[*types.BallPosition]
	groundToField        view.OptionalInput[*types.Isometry2]
	penaltyShotDirection view.OptionalInput[*types.PenaltyShotDirection]
	fieldSide            view.PersistentState[types.Side]
	lastSeenBall         view.PersistentState[time.Time]
	ballState            view.MainOutput[*types.BallState]
}

// NewBallStateComposer binds the ball inputs and the field side memory
func NewBallStateComposer(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &BallStateComposer{
		ballPosition:         view.NewOptionalInput[*types.BallPosition](c, sensing.BallPositionPath),
		teamBall:             view.NewOptionalInput[*types.BallPosition](c, sensing.TeamBallPath),
		groundToField:        view.NewOptionalInput[*types.Isometry2](c, sensing.GroundToFieldPath),
		penaltyShotDirection: view.NewOptionalInput[*types.PenaltyShotDirection](c, PenaltyShotDirectionPath),
		fieldSide:            view.NewPersistentState(c, "ball_state_composer.field_side", types.SideLeft),
		lastSeenBall:         view.NewPersistentState(c, LastSeenBallPath, time.Time{}),
		ballState:            view.NewMainOutput[*types.BallState](c, BallStatePath),
	}, nil
}

// Cycle publishes ball_state, nil when no ball is known this cycle
func (b *BallStateComposer) Cycle(_ context.Context, cy *view.Cycle) error {
	groundToField, _ := b.groundToField.Get(cy)
	local, _ := b.ballPosition.Get(cy)
	team, _ := b.teamBall.Get(cy)

	ball := ComposeBall(local, team, groundToField)
	if ball == nil {
		return b.ballState.Set(cy, nil)
	}

	side := b.fieldSide.Get(cy)
	if ball.BallInField != nil {
		*side = UpdateFieldSide(*side, ball.BallInField.Y)
	}
	ball.FieldSide = *side

	if direction, ok := b.penaltyShotDirection.Get(cy); ok && direction != nil {
		d := *direction
		ball.PenaltyShotDirection = &d
	}

	lastSeen := b.lastSeenBall.Get(cy)
	if ball.LastSeenBall.After(*lastSeen) {
		*lastSeen = ball.LastSeenBall
	}
	return b.ballState.Set(cy, ball)
}

// ComposeBall applies the ball precedence: the local ball in the ground
// frame, else the team ball moved into the ground frame, else nil. The team
// ball needs groundToField. The field position is filled whenever
// groundToField is known; FieldSide is left to the caller.
func ComposeBall(local, team *types.BallPosition, groundToField *types.Isometry2) *types.BallState {
	var ball *types.BallState
	switch {
	case local != nil:
		ball = &types.BallState{
			BallInGround:         local.Position,
			BallInGroundVelocity: local.Velocity,
			LastSeenBall:         local.LastSeen,
		}
	case team != nil && groundToField != nil:
		fieldToGround := groundToField.Inverse()
		ball = &types.BallState{
			BallInGround:         fieldToGround.TransformPoint(team.Position),
			BallInGroundVelocity: fieldToGround.TransformVector(team.Velocity),
			LastSeenBall:         team.LastSeen,
		}
	default:
		return nil
	}

	if groundToField != nil {
		inField := groundToField.TransformPoint(ball.BallInGround)
		ball.BallInField = &inField
	}
	return ball
}

// UpdateFieldSide flips the side only once y has left the hysteresis band
// on the other side of the centre line
func UpdateFieldSide(previous types.Side, y float64) types.Side {
	wasLeft := previous == types.SideLeft
	var isLeft bool
	if wasLeft {
		isLeft = y > FieldSideThreshold-FieldSideMargin
	} else {
		isLeft = y > FieldSideThreshold+FieldSideMargin
	}
	if isLeft {
		return types.SideLeft
	}
	return types.SideRight
}
