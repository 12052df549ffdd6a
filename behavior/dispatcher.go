package behavior

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
	"github.com/c360/semstreams-robotics/worldstate"
)

// DispatchParameters tune the rules of the dispatcher
type DispatchParameters struct {
	// LostBallTimeout is how long a vanished ball is searched near where it
	// was last seen
	LostBallTimeout time.Duration
	// InterceptVelocity is the minimum speed of an approaching ball that is
	// intercepted rather than dribbled
	InterceptVelocity float64
}

type rule struct {
	name  string
	match func(ws types.WorldState, p DispatchParameters) (types.Action, bool)
}

func when(name string, kind types.ActionKind, cond func(ws types.WorldState) bool) rule {
	return rule{name: name, match: func(ws types.WorldState, _ DispatchParameters) (types.Action, bool) {
		return types.NewAction(kind), cond(ws)
	}}
}

func inState(state types.PrimaryState) func(types.WorldState) bool {
	return func(ws types.WorldState) bool { return ws.Robot.PrimaryState == state }
}

// rules in evaluation order, the first match wins
var rules = []rule{
	when("unstiff", types.ActionUnstiff, inState(types.PrimaryStateUnstiff)),
	when("penalized", types.ActionPenalize, inState(types.PrimaryStatePenalized)),
	when("initial", types.ActionInitial, inState(types.PrimaryStateInitial)),
	when("finished", types.ActionStand, inState(types.PrimaryStateFinished)),
	when("calibration", types.ActionStand, inState(types.PrimaryStateCalibration)),
	when("fallen", types.ActionStandUp, func(ws types.WorldState) bool { return ws.Robot.FallState.Fallen() }),
	when("keeper walks to goal", types.ActionDefendKickOff, func(ws types.WorldState) bool {
		return ws.Robot.PrimaryState == types.PrimaryStateReady && ws.Robot.Role == types.RoleKeeper
	}),
	when("ready", types.ActionWalkToKickOff, inState(types.PrimaryStateReady)),
	when("set", types.ActionStand, inState(types.PrimaryStateSet)),
	{name: "playing", match: playing},
}

// Dispatch maps a world state to exactly one action
func Dispatch(ws types.WorldState, p DispatchParameters) types.Action {
	action, _ := dispatch(ws, p)
	return action
}

func dispatch(ws types.WorldState, p DispatchParameters) (types.Action, string) {
	for _, r := range rules {
		if action, ok := r.match(ws, p); ok {
			return action, r.name
		}
	}
	return types.NewAction(types.ActionStand), "default"
}

func playing(ws types.WorldState, p DispatchParameters) (types.Action, bool) {
	ball := ws.Ball
	switch ws.Robot.Role {
	case types.RoleKeeper:
		if ball != nil && ball.PenaltyShotDirection != nil && *ball.PenaltyShotDirection != types.PenaltyShotNotMoving {
			return types.NewAction(types.ActionDefendPenaltyKick), true
		}
		return types.NewAction(types.ActionDefendGoal), true
	case types.RoleDefenderLeft:
		return types.NewAction(types.ActionDefendLeft), true
	case types.RoleDefenderRight:
		return types.NewAction(types.ActionDefendRight), true
	case types.RoleSupportLeft:
		return types.NewAction(types.ActionSupportLeft), true
	case types.RoleSupportRight:
		return types.NewAction(types.ActionSupportRight), true
	case types.RoleSearcher:
		if ball != nil {
			return types.NewAction(types.ActionSupportStriker), true
		}
		return searchAction(ws, p), true
	default:
		if ball == nil {
			return searchAction(ws, p), true
		}
		if approaching(ball, p.InterceptVelocity) {
			return types.NewAction(types.ActionInterceptBall), true
		}
		return types.NewAction(types.ActionDribble), true
	}
}

func searchAction(ws types.WorldState, p DispatchParameters) types.Action {
	if !ws.LastSeenBall.IsZero() && ws.Now.Sub(ws.LastSeenBall) <= p.LostBallTimeout {
		return types.NewAction(types.ActionSearchForLostBall)
	}
	return types.NewAction(types.ActionSearch)
}

// approaching reports a ball rolling towards the robot faster than minimum
func approaching(ball *types.BallState, minimum float64) bool {
	v := ball.BallInGroundVelocity
	toward := ball.BallInGround.Coords()
	return v.Norm() > minimum && v.X*toward.X+v.Y*toward.Y < 0
}

// Dispatcher publishes the action of the cycle
type Dispatcher struct {
	logger            *slog.Logger
	previous          view.PersistentState[types.Action]
	worldState        view.Input[types.WorldState]
	lostBallTimeout   *view.Parameter[config.Duration]
	interceptVelocity *view.Parameter[float64]
	action            view.MainOutput[types.Action]
}

// NewDispatcher binds world_state and the rule parameters
func NewDispatcher(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	return &Dispatcher{
		logger:            deps.GetLogger(),
		previous:          view.NewPersistentState(c, "behavior_dispatcher.previous", types.NewAction(types.ActionUnstiff)),
		worldState:        view.NewInput[types.WorldState](c, worldstate.WorldStatePath),
		lostBallTimeout:   view.NewParameter[config.Duration](c, "behavior.lost_ball_timeout"),
		interceptVelocity: view.NewParameter[float64](c, "behavior.intercept_ball.minimum_velocity"),
		action:            view.NewMainOutput[types.Action](c, ActionPath),
	}, nil
}

// Cycle publishes action
func (d *Dispatcher) Cycle(_ context.Context, cy *view.Cycle) error {
	action, rule := dispatch(d.worldState.Get(cy), DispatchParameters{
		LostBallTimeout:   d.lostBallTimeout.Get(cy).Std(),
		InterceptVelocity: d.interceptVelocity.Get(cy),
	})

	previous := d.previous.Get(cy)
	if action != *previous {
		d.logger.Debug("Action changed", "from", previous.String(), "to", action.String(), "rule", rule)
		*previous = action
	}
	return d.action.Set(cy, action)
}
