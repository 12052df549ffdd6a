package noderegistry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/behavior"
	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/execution"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/testutil"
	"github.com/c360/semstreams-robotics/types"
)

func TestRegister_CoversDefaultTopology(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry, nil))

	for _, c := range config.DefaultTopology() {
		for _, name := range c.Nodes {
			assert.True(t, registry.Has(name), "node %s of cycler %s is registered", name, c.Name)
		}
	}
}

func TestRegister_Errors(t *testing.T) {
	err := Register(nil, nil)
	assert.True(t, errors.IsFatal(err))

	registry := node.NewRegistry()
	require.NoError(t, Register(registry, nil))
	err = Register(registry, nil)
	assert.True(t, errors.IsInvalid(err), "registering twice collides on node names")
}

func TestDefaultTopology_RunsOnFakeHardware(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry, nil))

	tree, err := parameters.Load("../etc/parameters", "", "")
	require.NoError(t, err)

	hw := testutil.NewFakeHardware(hardware.IDs{BodyID: "body", HeadID: "head"})
	hw.SetSensorData(types.SensorData{Stiff: true, BatteryCharge: 1})
	hw.SetCameraFrame(types.CameraFrame{Camera: types.CameraTop, BallSeen: []types.Point2{{X: 1, Y: 0.2}}})

	st := store.New()
	rt, err := execution.New(config.DefaultTopology(), execution.Dependencies{
		Hardware:   hw,
		Registry:   registry,
		Store:      st,
		Parameters: tree,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "error", rt.Analysis().ValidationStatus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	start := time.Unix(1_700_000_000, 0)
	require.Eventually(t, func() bool {
		now := start.Add(time.Duration(len(hw.MotionCommands())) * 12 * time.Millisecond)
		hw.Fire(hardware.EventCameraFrame, now)
		hw.Fire(hardware.EventSensorData, now)
		return len(hw.MotionCommands()) >= 5
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}

	commands := hw.MotionCommands()
	last := commands[len(commands)-1]
	assert.Equal(t, types.MotionStand, last.Kind, "a robot in the initial game state stands")
	assert.Equal(t, types.HeadZeroAngles, last.Head.Kind)

	action, ok := st.Read(behavior.ActionPath)
	require.True(t, ok)
	assert.Equal(t, types.ActionInitial, action.Value.(types.Action).Kind)
}
