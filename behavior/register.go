package behavior

import (
	"github.com/c360/semstreams-robotics/node"
)

// Register registers the dispatcher, the motion nodes of table and the
// motion selector
func Register(registry *node.Registry, table *ActionTable) error {
	registrations := []*node.Registration{
		{Name: "behavior_dispatcher", Description: "Ordered rules from world state to action", Factory: NewDispatcher},
		{Name: PrimitiveMotionNode, Description: "Stand, unstiff, penalized and stand up motions", Factory: NewPrimitiveMotion(table)},
		{Name: SearchMotionNode, Description: "Turning and head motions to find the ball", Factory: NewSearchMotion(table)},
		{Name: WalkToPoseNode, Description: "Walking to positioning and support targets", Factory: NewWalkToPose(table)},
		{Name: DefendMotionNode, Description: "Holding defending positions", Factory: NewDefendMotion(table)},
		{Name: WalkToBallNode, Description: "Approaching the ball", Factory: NewWalkToBall(table)},
		{Name: "motion_selector", Description: "Authoritative motion command of the cycle", Factory: NewMotionSelector(table)},
	}
	for _, r := range registrations {
		if err := registry.RegisterFactory(r); err != nil {
			return err
		}
	}
	return nil
}
