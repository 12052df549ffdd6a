package control

import (
	"context"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/behavior"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/sensing"
	"github.com/c360/semstreams-robotics/testutil"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/worldstate"
)

var epoch = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

var speeds = WalkingSpeeds{Line: 0.5, Arc: 0.25}

func seconds(d time.Duration) float64 { return d.Seconds() }

func TestEstimateWalkingDuration(t *testing.T) {
	t.Run("sum of length over speed", func(t *testing.T) {
		path := types.Path{
			types.LineSegment{Start: types.Origin, End: types.Point2{X: 1}},
			types.Arc{Center: types.Point2{X: 2}, Radius: 1, StartAngle: math.Pi, EndAngle: math.Pi / 2},
			types.LineSegment{Start: types.Point2{X: 2, Y: 1}, End: types.Point2{X: 2, Y: 4}},
		}
		d, err := EstimateWalkingDuration(path, speeds)
		require.NoError(t, err)
		want := 1/0.5 + (math.Pi/2)/0.25 + 3/0.5
		assert.InDelta(t, want, seconds(d), 1e-6)
	})

	t.Run("no path yields the sentinel", func(t *testing.T) {
		d, err := EstimateWalkingDuration(nil, speeds)
		require.NoError(t, err)
		assert.Equal(t, NoPathDuration, d)
		assert.Equal(t, 1800*time.Second, d)

	})

	t.Run("empty path takes no time", func(t *testing.T) {
		d, err := EstimateWalkingDuration(types.Path{}, speeds)
		require.NoError(t, err)
		assert.Zero(t, d)
	})

	t.Run("non positive speeds are invalid", func(t *testing.T) {
		_, err := EstimateWalkingDuration(types.Path{types.LineSegment{End: types.Point2{X: 1}}}, WalkingSpeeds{Line: 0, Arc: 1})
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
	})
}

func TestEstimateTimeToReach_StandUpDurations(t *testing.T) {
	path := types.Path{types.LineSegment{Start: types.Origin, End: types.Point2{X: 1}}}
	front := 3 * time.Second
	back := 1500 * time.Millisecond

	tests := []struct {
		name        string
		path        types.Path
		front, back *time.Duration
		want        time.Duration
	}{
		{"path only", path, nil, nil, 2 * time.Second},
		{"front", path, &front, nil, 5 * time.Second},
		{"back", path, nil, &back, 3500 * time.Millisecond},
		{"both", path, &front, &back, 6500 * time.Millisecond},
		{"no path ignores stand up", nil, &front, &back, NoPathDuration},
		{"empty path is only stand up", types.Path{}, &front, &back, 4500 * time.Millisecond},
		{"empty path without stand up", types.Path{}, nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := EstimateTimeToReach(tt.path, speeds, tt.front, tt.back)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}
}

func timeToReachHarness(t *testing.T) *testutil.Harness {
	return testutil.NewHarness(t, "time_to_reach_kick_position", NewTimeToReachKickPosition,
		testutil.WithParameters(map[string]any{
			"behavior": map[string]any{"path_planning": map[string]any{
				"line_walking_speed": 0.5, "arc_walking_speed": 0.25,
			}},
		}))
}

func TestTimeToReachKickPosition_Node(t *testing.T) {
	h := timeToReachHarness(t)

	h.MustCycle(epoch)
	stored, ok := h.Persistent(TimeToReachKickPositionPath)
	require.True(t, ok)
	assert.Equal(t, NoPathDuration, stored, "an absent path publishes the sentinel")
	_, ok = h.Additional(TimeToReachKickPositionDebugPath)
	assert.False(t, ok, "unsubscribed additional outputs are not computed")

	h.Subscribe(TimeToReachKickPositionDebugPath)
	front := time.Second
	h.Set(DribblePathPath, types.Path{types.LineSegment{Start: types.Origin, End: types.Point2{X: 1}}})
	h.Set(StandUpFrontRemainingPath, &front)
	h.Set(StandUpBackRemainingPath, (*time.Duration)(nil))
	h.MustCycle(epoch.Add(10 * time.Millisecond))

	stored, _ = h.Persistent(TimeToReachKickPositionPath)
	assert.Equal(t, 3*time.Second, stored)
	debug, ok := h.Additional(TimeToReachKickPositionDebugPath)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, debug)
}

func TestTimeToReachKickPosition_BadSpeedFailsTheCycle(t *testing.T) {
	h := timeToReachHarness(t)
	h.SetParameter("behavior.path_planning.arc_walking_speed", -1)
	h.Set(DribblePathPath, types.Path{types.Arc{Radius: 1, EndAngle: 1}})
	err := h.Cycle(context.Background(), epoch)
	assert.True(t, errors.IsInvalid(err))
}

func TestPlanDribblePath(t *testing.T) {
	p := Dribbling{KickOffset: 0.2, AlignmentAngle: 0.35}

	t.Run("aligned robot walks straight", func(t *testing.T) {
		path := PlanDribblePath(types.Point2{X: 2}, types.Vector2{X: 1}, p)
		require.Len(t, path, 1)
		line, ok := path[0].(types.LineSegment)
		require.True(t, ok)
		assert.InDelta(t, 1.8, line.End.X, 1e-9)
		assert.InDelta(t, 0, line.End.Y, 1e-9)
	})

	t.Run("misaligned robot walks around the ball", func(t *testing.T) {
		path := PlanDribblePath(types.Point2{Y: 2}, types.Vector2{X: 1}, p)
		require.Len(t, path, 2)
		line, ok := path[0].(types.LineSegment)
		require.True(t, ok)
		assert.InDelta(t, 0, line.End.X, 1e-9)
		assert.InDelta(t, 1.8, line.End.Y, 1e-9)

		arc, ok := path[1].(types.Arc)
		require.True(t, ok)
		assert.InDelta(t, 0.2*math.Pi/2, arc.Length(), 1e-9)
		assert.InDelta(t, 1.8+0.1*math.Pi, path.Length(), 1e-9)
	})
}

func TestDribblePath_Node(t *testing.T) {
	h := testutil.NewHarness(t, "dribble_path", NewDribblePath, testutil.WithParameters(map[string]any{
		"behavior": map[string]any{"dribbling": map[string]any{"kick_offset": 0.2, "alignment_angle": 0.35}},
	}))

	h.Set(worldstate.WorldStatePath, types.WorldState{})
	h.MustCycle(epoch)
	path, ok := testutil.OutputAs[types.Path](h, DribblePathPath)
	require.True(t, ok)
	assert.Nil(t, path)

	h.Set(worldstate.WorldStatePath, types.WorldState{Ball: &types.BallState{BallInGround: types.Point2{X: 1}}})
	h.MustCycle(epoch)
	path, _ = testutil.OutputAs[types.Path](h, DribblePathPath)
	assert.Len(t, path, 1)
}

func TestStandUpEstimator(t *testing.T) {
	h := testutil.NewHarness(t, "stand_up_estimator", NewStandUpEstimator, testutil.WithParameters(map[string]any{
		"behavior": map[string]any{"stand_up": map[string]any{"front": "4s", "back": "5s"}},
	}))

	cycle := func(state types.FallState, at time.Duration) (front, back *time.Duration) {
		t.Helper()
		h.Set(sensing.FallStatePath, state)
		h.MustCycle(epoch.Add(at))
		front, _ = testutil.OutputAs[*time.Duration](h, StandUpFrontRemainingPath)
		back, _ = testutil.OutputAs[*time.Duration](h, StandUpBackRemainingPath)
		return front, back
	}

	front, back := cycle(types.FallStateUpright, 0)
	assert.Nil(t, front)
	assert.Nil(t, back)

	front, back = cycle(types.FallStateFallenFront, time.Second)
	require.NotNil(t, front)
	assert.Equal(t, 4*time.Second, *front)
	assert.Nil(t, back)

	front, _ = cycle(types.FallStateFallenFront, 2500*time.Millisecond)
	assert.Equal(t, 2500*time.Millisecond, *front)

	front, _ = cycle(types.FallStateFallenFront, 10*time.Second)
	assert.Equal(t, time.Duration(0), *front, "never negative")

	front, back = cycle(types.FallStateFallenBack, 11*time.Second)
	assert.Nil(t, front)
	require.NotNil(t, back)
	assert.Equal(t, 5*time.Second, *back, "a new fall restarts the estimate")
}

func TestMotorCommandWriter(t *testing.T) {
	hw := testutil.NewFakeHardware(hardware.IDs{})
	h := testutil.NewHarness(t, "motor_command_writer", NewMotorCommandWriter, testutil.WithHardware(hw))

	h.Set(behavior.MotionCommandPath, types.StandCommand())
	h.MustCycle(epoch)
	assert.Equal(t, []types.MotionCommand{types.StandCommand()}, hw.MotionCommands())

	hw.WriteErr = stderrors.New("joint limit")
	err := h.Cycle(context.Background(), epoch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "joint limit")

	_, err = testutil.Construct(t, "motor_command_writer", NewMotorCommandWriter)
	assert.True(t, errors.IsFatal(err))
}

func TestRegister(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry))
	assert.Len(t, registry.List(), 4)
}
