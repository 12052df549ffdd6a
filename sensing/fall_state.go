package sensing

import (
	"context"
	"math"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// FallStateEstimation classifies the torso orientation
type FallStateEstimation struct {
	sensorData   view.Input[types.SensorData]
	fallingAngle *view.Parameter[float64]
	fallenAngle  *view.Parameter[float64]
	fallState    view.MainOutput[types.FallState]
}

// NewFallStateEstimation binds sensor_data and the fall angles
func NewFallStateEstimation(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &FallStateEstimation{
		sensorData:   view.NewInput[types.SensorData](c, SensorDataPath),
		fallingAngle: view.NewParameter[float64](c, "fall_state_estimation.falling_angle"),
		fallenAngle:  view.NewParameter[float64](c, "fall_state_estimation.fallen_angle"),
		fallState:    view.NewMainOutput[types.FallState](c, FallStatePath),
	}, nil
}

// Cycle publishes fall_state
func (f *FallStateEstimation) Cycle(_ context.Context, cy *view.Cycle) error {
	data := f.sensorData.Get(cy)
	return f.fallState.Set(cy, EstimateFallState(data.Pitch, data.Roll, f.fallingAngle.Get(cy), f.fallenAngle.Get(cy)))
}

// EstimateFallState maps pitch and roll in radians to a fall state. A
// positive pitch leans forward.
func EstimateFallState(pitch, roll, fallingAngle, fallenAngle float64) types.FallState {
	switch {
	case pitch > fallenAngle:
		return types.FallStateFallenFront
	case pitch < -fallenAngle:
		return types.FallStateFallenBack
	case math.Abs(pitch) > fallingAngle, math.Abs(roll) > fallingAngle:
		return types.FallStateFalling
	default:
		return types.FallStateUpright
	}
}
