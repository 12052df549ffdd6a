package sensing

import (
	"context"
	"time"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// velocityWindow bounds the gap between two detections used for a velocity
const velocityWindow = 500 * time.Millisecond

// BallDetection picks the nearest ball candidate of a camera frame
type BallDetection struct {
	camera       hardware.Camera
	previous     view.PersistentState[*types.BallPosition]
	ballPosition view.MainOutput[*types.BallPosition]
}

// NewBallDetection binds the ball_position output
func NewBallDetection(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	hw, err := requireHardware(deps, "BallDetection")
	if err != nil {
		return nil, err
	}
	return &BallDetection{
		camera:       hw,
		previous:     view.NewPersistentState[*types.BallPosition](c, "ball_detection.previous", nil),
		ballPosition: view.NewMainOutput[*types.BallPosition](c, BallPositionPath),
	}, nil
}

// Cycle publishes ball_position, nil when the frame has no candidate
func (b *BallDetection) Cycle(ctx context.Context, cy *view.Cycle) error {
	frame, err := b.camera.ReadCameraFrame(ctx)
	if err != nil {
		return errors.Wrap(err, "BallDetection", "Cycle", "read camera frame")
	}
	seen := frame.Time
	if seen.IsZero() {
		seen = cy.Time()
	}

	previous := b.previous.Get(cy)
	nearest, ok := NearestCandidate(frame.BallSeen)
	if !ok {
		return b.ballPosition.Set(cy, nil)
	}

	ball := &types.BallPosition{Position: nearest, LastSeen: seen}
	if prev := *previous; prev != nil {
		dt := seen.Sub(prev.LastSeen)
		if dt > 0 && dt <= velocityWindow {
			ball.Velocity = nearest.Sub(prev.Position).Scale(1 / dt.Seconds())
		}
	}
	*previous = ball
	return b.ballPosition.Set(cy, ball)
}

// NearestCandidate returns the candidate closest to the robot
func NearestCandidate(candidates []types.Point2) (types.Point2, bool) {
	if len(candidates) == 0 {
		return types.Point2{}, false
	}
	nearest := candidates[0]
	for _, c := range candidates[1:] {
		if c.DistanceTo(types.Origin) < nearest.DistanceTo(types.Origin) {
			nearest = c
		}
	}
	return nearest, true
}
