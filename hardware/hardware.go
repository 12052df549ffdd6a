// Package hardware defines the capability set the runtime calls into.
//
// Backends (the simulator in hardware/sim, a replay or a real robot) implement
// Interface; nodes and cyclers depend only on the capabilities they use.
package hardware

import (
	"context"
	"time"

	"github.com/c360/semstreams-robotics/types"
)

// Event names a hardware source a cycler can be triggered by
const (
	EventSensorData  = "sensor_data"
	EventCameraFrame = "camera_frame"
)

// IDs identifies the robot
type IDs struct {
	BodyID string `json:"body_id"`
	HeadID string `json:"head_id"`
}

// Identity retrieves the robot identifiers
type Identity interface {
	IDs() IDs
}

// Events blocks until the next occurrence of an event. It returns the event
// time, ctx.Err() when cancelled, and an error wrapping errors.ErrTriggerClosed
// once the source is gone for good.
type Events interface {
	WaitForEvent(ctx context.Context, event string) (time.Time, error)
}

// Sensors reads the latest sensor packet
type Sensors interface {
	ReadSensorData(ctx context.Context) (types.SensorData, error)
}

// Camera reads the latest camera frame
type Camera interface {
	ReadCameraFrame(ctx context.Context) (types.CameraFrame, error)
}

// Actuators applies a motion command
type Actuators interface {
	WriteMotionCommand(ctx context.Context, cmd types.MotionCommand) error
}

// Network exchanges team messages
type Network interface {
	ReadTeamMessages(ctx context.Context) ([]types.TeamMessage, error)
	SendTeamMessage(ctx context.Context, msg types.TeamMessage) error
}

// Interface is the full capability set of a backend
type Interface interface {
	Identity
	Events
	Sensors
	Camera
	Actuators
	Network
	Close() error
}
