package behavior

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/testutil"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/worldstate"
)

var epoch = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func defaultTable(t *testing.T) *ActionTable {
	t.Helper()
	table, err := DefaultActionTable()
	require.NoError(t, err)
	return table
}

func TestActionTable(t *testing.T) {
	t.Run("default covers every action once", func(t *testing.T) {
		table := defaultTable(t)
		for _, kind := range types.AllActionKinds() {
			handler, ok := table.Handler(kind)
			assert.True(t, ok, kind.String())
			assert.True(t, table.Handles(handler, kind))
		}
		assert.Equal(t, []string{DefendMotionNode, PrimitiveMotionNode, SearchMotionNode, WalkToBallNode, WalkToPoseNode},
			table.Nodes())
	})

	t.Run("second handler is rejected", func(t *testing.T) {
		table := NewActionTable()
		require.NoError(t, table.Register("a", types.ActionDribble))
		err := table.Register("b", types.ActionSearch, types.ActionDribble)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrDuplicateActionHandler)
		assert.True(t, errors.IsInvalid(err))
		_, ok := table.Handler(types.ActionSearch)
		assert.False(t, ok, "a rejected registration registers nothing")
	})

	t.Run("same kind twice in one registration", func(t *testing.T) {
		err := NewActionTable().Register("a", types.ActionStand, types.ActionStand)
		assert.ErrorIs(t, err, errors.ErrDuplicateActionHandler)
	})

	t.Run("missing handlers fail validation", func(t *testing.T) {
		table := NewActionTable()
		require.NoError(t, table.Register("a", types.ActionStand))
		err := table.Validate()
		assert.ErrorIs(t, err, errors.ErrInvalidConfig)
		assert.Contains(t, err.Error(), "dribble")
	})
}

func TestDispatch(t *testing.T) {
	params := DispatchParameters{LostBallTimeout: 3 * time.Second, InterceptVelocity: 0.5}
	left := types.PenaltyShotLeft
	ball := &types.BallState{BallInGround: types.Point2{X: 2}}

	playing := func(role types.Role, ball *types.BallState) types.WorldState {
		return types.WorldState{
			Ball:  ball,
			Robot: types.RobotState{PrimaryState: types.PrimaryStatePlaying, Role: role},
			Now:   epoch,
		}
	}
	inState := func(state types.PrimaryState, fall types.FallState) types.WorldState {
		return types.WorldState{Robot: types.RobotState{PrimaryState: state, FallState: fall}}
	}

	tests := []struct {
		name string
		ws   types.WorldState
		want types.ActionKind
	}{
		{"unstiff wins over fallen", inState(types.PrimaryStateUnstiff, types.FallStateFallenBack), types.ActionUnstiff},
		{"penalized", inState(types.PrimaryStatePenalized, types.FallStateUpright), types.ActionPenalize},
		{"initial", inState(types.PrimaryStateInitial, types.FallStateUpright), types.ActionInitial},
		{"finished", inState(types.PrimaryStateFinished, types.FallStateUpright), types.ActionStand},
		{"fallen while playing", inState(types.PrimaryStatePlaying, types.FallStateFallenFront), types.ActionStandUp},
		{"ready", inState(types.PrimaryStateReady, types.FallStateUpright), types.ActionWalkToKickOff},
		{"ready keeper", types.WorldState{Robot: types.RobotState{PrimaryState: types.PrimaryStateReady, Role: types.RoleKeeper}},
			types.ActionDefendKickOff},
		{"set", inState(types.PrimaryStateSet, types.FallStateUpright), types.ActionStand},
		{"striker with ball", playing(types.RoleStriker, ball), types.ActionDribble},
		{"striker without ball", playing(types.RoleStriker, nil), types.ActionSearch},
		{"striker with approaching ball", playing(types.RoleStriker, &types.BallState{
			BallInGround: types.Point2{X: 2}, BallInGroundVelocity: types.Vector2{X: -1},
		}), types.ActionInterceptBall},
		{"striker with ball rolling away", playing(types.RoleStriker, &types.BallState{
			BallInGround: types.Point2{X: 2}, BallInGroundVelocity: types.Vector2{X: 1},
		}), types.ActionDribble},
		{"keeper", playing(types.RoleKeeper, ball), types.ActionDefendGoal},
		{"keeper against penalty shot", playing(types.RoleKeeper, &types.BallState{PenaltyShotDirection: &left}),
			types.ActionDefendPenaltyKick},
		{"defender left", playing(types.RoleDefenderLeft, nil), types.ActionDefendLeft},
		{"defender right", playing(types.RoleDefenderRight, nil), types.ActionDefendRight},
		{"support left", playing(types.RoleSupportLeft, ball), types.ActionSupportLeft},
		{"support right", playing(types.RoleSupportRight, ball), types.ActionSupportRight},
		{"searcher with ball", playing(types.RoleSearcher, ball), types.ActionSupportStriker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, types.NewAction(tt.want), Dispatch(tt.ws, params))
		})
	}

	t.Run("recently lost ball", func(t *testing.T) {
		ws := playing(types.RoleStriker, nil)
		ws.LastSeenBall = epoch.Add(-2 * time.Second)
		assert.Equal(t, types.ActionSearchForLostBall, Dispatch(ws, params).Kind)
		ws.LastSeenBall = epoch.Add(-4 * time.Second)
		assert.Equal(t, types.ActionSearch, Dispatch(ws, params).Kind)
	})
}

func TestDispatcher_Node(t *testing.T) {
	h := testutil.NewHarness(t, "behavior_dispatcher", NewDispatcher, testutil.WithParameters(map[string]any{
		"behavior": map[string]any{
			"lost_ball_timeout": "3s",
			"intercept_ball":    map[string]any{"minimum_velocity": 0.5},
		},
	}))
	h.Set(worldstate.WorldStatePath, types.WorldState{Robot: types.RobotState{PrimaryState: types.PrimaryStateSet}})
	h.MustCycle(epoch)

	action, ok := testutil.OutputAs[types.Action](h, ActionPath)
	require.True(t, ok)
	assert.Equal(t, types.ActionStand, action.Kind)

	previous, _ := h.Persistent("behavior_dispatcher.previous")
	assert.Equal(t, types.NewAction(types.ActionStand), previous)
}

func TestWalkTowardsBall(t *testing.T) {
	tests := []struct {
		name    string
		ball    types.Point2
		angular float64
	}{
		{"straight ahead", types.Point2{X: 2}, 0},
		{"inside the clamp", types.Point2{X: 1, Y: 0.1}, 0.1},
		{"at the upper clamp", types.Point2{X: 1, Y: 0.25}, 0.25},
		{"beyond the upper clamp", types.Point2{X: 1, Y: 0.3}, 0.25},
		{"at the lower clamp", types.Point2{X: 1, Y: -0.25}, -0.25},
		{"far beyond the lower clamp", types.Point2{X: -1, Y: -5}, -0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := WalkTowardsBall(tt.ball)
			assert.Equal(t, types.MotionWalkWithVelocity, cmd.Kind)
			assert.InDelta(t, tt.angular, cmd.AngularVelocity, 1e-12)

			norm := math.Hypot(tt.ball.X, tt.ball.Y)
			assert.InDelta(t, tt.ball.X/norm*WalkToBallSpeed, cmd.Velocity.X, 1e-12)
			assert.InDelta(t, tt.ball.Y/norm*WalkToBallSpeed, cmd.Velocity.Y, 1e-12)
			assert.InDelta(t, WalkToBallSpeed, cmd.Velocity.Norm(), 1e-12)

			assert.Equal(t, types.LookAt(tt.ball, types.ImageRegionCenter, types.CameraBottom), cmd.Head)
		})
	}
}

func TestMotionNodes_OnlyTheHandlerEmits(t *testing.T) {
	table := defaultTable(t)
	params := testutil.WithParameters(map[string]any{
		"behavior": map[string]any{
			"walking":      map[string]any{"speed": 0.2, "max_angular_velocity": 0.5},
			"search":       map[string]any{"angular_velocity": 0.4},
			"walk_to_pose": map[string]any{"kick_off": map[string]float64{"x": -1, "y": 0}, "support_distance": 1.0},
			"defend":       map[string]any{"goal": map[string]float64{"x": -4.5, "y": 0}, "penalty_sidestep_speed": 0.1},
		},
	})
	factories := map[string]node.Factory{
		PrimitiveMotionNode: NewPrimitiveMotion(table),
		SearchMotionNode:    NewSearchMotion(table),
		WalkToPoseNode:      NewWalkToPose(table),
		DefendMotionNode:    NewDefendMotion(table),
		WalkToBallNode:      NewWalkToBall(table),
	}
	groundToField := types.NewIsometry2(-3, 0, 0)
	ws := types.WorldState{
		Ball:  &types.BallState{BallInGround: types.Point2{X: 1, Y: 0.5}},
		Robot: types.RobotState{GroundToField: &groundToField},
	}

	for _, kind := range types.AllActionKinds() {
		handler, _ := table.Handler(kind)
		for name, factory := range factories {
			h := testutil.NewHarness(t, name, factory, params)
			h.Set(ActionPath, types.NewAction(kind))
			h.Set(worldstate.WorldStatePath, ws)
			h.MustCycle(epoch)

			candidate, ok := testutil.OutputAs[*types.MotionCommand](h, CandidatePath(name))
			require.True(t, ok, "%s always publishes its candidate slot", name)
			if name == handler {
				assert.NotNil(t, candidate, "%s handles %s", name, kind)
			} else {
				assert.Nil(t, candidate, "%s must not compete for %s", name, kind)
			}
		}
	}
}

func TestMotionNode_RejectsTableWithoutIt(t *testing.T) {
	table := NewActionTable()
	require.NoError(t, table.Register(WalkToBallNode, types.ActionDribble))
	_, err := testutil.Construct(t, SearchMotionNode, NewSearchMotion(table))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	_, err = testutil.Construct(t, SearchMotionNode, NewSearchMotion(nil))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}

func TestWalkToPose_KickOff(t *testing.T) {
	h := testutil.NewHarness(t, WalkToPoseNode, NewWalkToPose(defaultTable(t)), testutil.WithParameters(map[string]any{
		"behavior": map[string]any{
			"walking":      map[string]any{"speed": 0.2, "max_angular_velocity": 0.5},
			"walk_to_pose": map[string]any{"kick_off": map[string]float64{"x": -1, "y": 0}},
		},
	}))
	groundToField := types.NewIsometry2(-3, 0, 0)
	h.Set(ActionPath, types.NewAction(types.ActionWalkToKickOff))
	h.Set(worldstate.WorldStatePath, types.WorldState{Robot: types.RobotState{GroundToField: &groundToField}})
	h.MustCycle(epoch)

	cmd, _ := testutil.OutputAs[*types.MotionCommand](h, CandidatePath(WalkToPoseNode))
	require.NotNil(t, cmd)
	assert.Equal(t, types.MotionWalkWithVelocity, cmd.Kind)
	assert.InDelta(t, 0.2, cmd.Velocity.X, 1e-9, "kick off is two meters straight ahead")
	assert.InDelta(t, 0, cmd.AngularVelocity, 1e-9)

	h.Set(worldstate.WorldStatePath, types.WorldState{})
	h.MustCycle(epoch)
	cmd, _ = testutil.OutputAs[*types.MotionCommand](h, CandidatePath(WalkToPoseNode))
	require.NotNil(t, cmd)
	assert.Equal(t, types.MotionStand, cmd.Kind, "without a pose the robot stands")
}

func TestDefendMotion_PenaltySidestep(t *testing.T) {
	h := testutil.NewHarness(t, DefendMotionNode, NewDefendMotion(defaultTable(t)), testutil.WithParameters(map[string]any{
		"behavior": map[string]any{
			"walking": map[string]any{"speed": 0.2, "max_angular_velocity": 0.5},
			"defend":  map[string]any{"penalty_sidestep_speed": 0.1},
		},
	}))
	right := types.PenaltyShotRight
	h.Set(ActionPath, types.NewAction(types.ActionDefendPenaltyKick))
	h.Set(worldstate.WorldStatePath, types.WorldState{Ball: &types.BallState{PenaltyShotDirection: &right}})
	h.MustCycle(epoch)

	cmd, _ := testutil.OutputAs[*types.MotionCommand](h, CandidatePath(DefendMotionNode))
	require.NotNil(t, cmd)
	assert.Equal(t, types.Vector2{Y: -0.1}, cmd.Velocity)
}

func TestMotionSelector(t *testing.T) {
	table := defaultTable(t)
	h := testutil.NewHarness(t, "motion_selector", NewMotionSelector(table))

	walk := WalkTowardsBall(types.Point2{X: 1})
	stand := types.StandCommand()
	h.Set(CandidatePath(WalkToBallNode), &walk)
	h.Set(CandidatePath(PrimitiveMotionNode), (*types.MotionCommand)(nil))

	h.Set(ActionPath, types.NewAction(types.ActionDribble))
	h.MustCycle(epoch)
	cmd, ok := testutil.OutputAs[types.MotionCommand](h, MotionCommandPath)
	require.True(t, ok)
	assert.Equal(t, walk, cmd)

	h.Set(ActionPath, types.NewAction(types.ActionStand))
	h.MustCycle(epoch)
	cmd, _ = testutil.OutputAs[types.MotionCommand](h, MotionCommandPath)
	assert.Equal(t, stand, cmd, "a nil candidate falls back to stand")

	h.Set(ActionPath, types.NewAction(types.ActionSearch))
	h.MustCycle(epoch)
	cmd, _ = testutil.OutputAs[types.MotionCommand](h, MotionCommandPath)
	assert.Equal(t, stand, cmd, "a never published candidate falls back to stand")
}

func TestRegister(t *testing.T) {
	registry := node.NewRegistry()
	require.NoError(t, Register(registry, defaultTable(t)))
	assert.Len(t, registry.List(), 7)
}
