package sensing

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// GameStateFilter derives the primary state from the chest button.
//
// Each press advances Initial, Ready, Set and Playing. A press while playing
// penalizes the robot and the next press returns it to Playing. While the
// joints are not stiff the published state is Unstiff and presses are
// ignored; the underlying state is kept.
type GameStateFilter struct {
	sensorData    view.Input[types.SensorData]
	state         view.PersistentState[types.PrimaryState]
	buttonPressed view.PersistentState[bool]
	primaryState  view.MainOutput[types.PrimaryState]
}

// NewGameStateFilter binds sensor_data and the filter state
func NewGameStateFilter(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &GameStateFilter{
		sensorData:    view.NewInput[types.SensorData](c, SensorDataPath),
		state:         view.NewPersistentState(c, "game_state_filter.state", types.PrimaryStateInitial),
		buttonPressed: view.NewPersistentState(c, "game_state_filter.button_pressed", false),
		primaryState:  view.NewMainOutput[types.PrimaryState](c, PrimaryStatePath),
	}, nil
}

// Cycle publishes primary_state
func (g *GameStateFilter) Cycle(_ context.Context, cy *view.Cycle) error {
	data := g.sensorData.Get(cy)
	state := g.state.Get(cy)
	wasPressed := g.buttonPressed.Get(cy)

	pressed := data.ChestButtonPressed && !*wasPressed
	*wasPressed = data.ChestButtonPressed

	if !data.Stiff {
		return g.primaryState.Set(cy, types.PrimaryStateUnstiff)
	}
	if pressed {
		*state = nextPrimaryState(*state)
	}
	return g.primaryState.Set(cy, *state)
}

func nextPrimaryState(state types.PrimaryState) types.PrimaryState {
	switch state {
	case types.PrimaryStateInitial:
		return types.PrimaryStateReady
	case types.PrimaryStateReady:
		return types.PrimaryStateSet
	case types.PrimaryStateSet, types.PrimaryStatePenalized:
		return types.PrimaryStatePlaying
	case types.PrimaryStatePlaying:
		return types.PrimaryStatePenalized
	default:
		return state
	}
}
