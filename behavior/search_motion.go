package behavior

import (
	"context"
	"math"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// SearchMotion turns in place and moves the head to find the ball
type SearchMotion struct {
	motionBindings
	angularVelocity *view.Parameter[float64]
}

// NewSearchMotion returns the factory of the search_motion node
func NewSearchMotion(table *ActionTable) node.Factory {
	return func(c *view.Creation, _ node.Dependencies) (node.Node, error) {
		m, err := bindMotion(c, table, "SearchMotion")
		if err != nil {
			return nil, err
		}
		return &SearchMotion{
			motionBindings:  m,
			angularVelocity: view.NewParameter[float64](c, "behavior.search.angular_velocity"),
		}, nil
	}
}

// Cycle publishes a candidate for the search actions
func (s *SearchMotion) Cycle(_ context.Context, cy *view.Cycle) error {
	action, ok := s.active(cy)
	if !ok {
		return s.idle(cy)
	}
	lookAround := types.HeadMotion{Kind: types.HeadLookAround}
	turn := math.Abs(s.angularVelocity.Get(cy))

	switch action.Kind {
	case types.ActionLookAtReferee:
		cmd := types.StandCommand()
		cmd.Head = types.HeadMotion{Kind: types.HeadLookAtReferee}
		return s.emit(cy, cmd)
	case types.ActionLookAround:
		cmd := types.StandCommand()
		cmd.Head = lookAround
		return s.emit(cy, cmd)
	default:
		return s.emit(cy, types.WalkWithVelocity(types.Vector2{}, turn, lookAround))
	}
}
