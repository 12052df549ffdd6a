package sensing

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// Pose is a parameter form of an isometry
type Pose struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Rotation float64 `json:"rotation"`
}

// Isometry returns the pose as a transform
func (p Pose) Isometry() types.Isometry2 {
	return types.NewIsometry2(p.X, p.Y, p.Rotation)
}

// Localization integrates odometry into the ground to field transform. The
// pose is reset to the initial pose while the robot is in Initial or
// Penalized, where it is placed by hand.
type Localization struct {
	initial       types.Isometry2
	sensorData    view.Input[types.SensorData]
	primaryState  view.OptionalInput[types.PrimaryState]
	pose          view.PersistentState[types.Isometry2]
	groundToField view.MainOutput[*types.Isometry2]
}

// NewLocalization reads localization.initial_pose once
func NewLocalization(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	initial, err := view.CreationParameter[Pose](c, "localization.initial_pose")
	if err != nil {
		return nil, err
	}
	return &Localization{
		initial:       initial.Isometry(),
		sensorData:    view.NewInput[types.SensorData](c, SensorDataPath),
		primaryState:  view.NewOptionalInput[types.PrimaryState](c, PrimaryStatePath),
		pose:          view.NewPersistentState(c, "localization.pose", initial.Isometry()),
		groundToField: view.NewMainOutput[*types.Isometry2](c, GroundToFieldPath),
	}, nil
}

// Cycle publishes ground_to_field
func (l *Localization) Cycle(_ context.Context, cy *view.Cycle) error {
	pose := l.pose.Get(cy)
	state, ok := l.primaryState.Get(cy)
	if ok && (state == types.PrimaryStateInitial || state == types.PrimaryStatePenalized) {
		*pose = l.initial
	} else {
		*pose = pose.Compose(l.sensorData.Get(cy).Odometry)
	}
	current := *pose
	return l.groundToField.Set(cy, &current)
}
