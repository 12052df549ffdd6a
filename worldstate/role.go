package worldstate

import (
	"context"

	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// RoleAssignment publishes the configured player role
type RoleAssignment struct {
	configured *view.Parameter[types.Role]
	role       view.MainOutput[types.Role]
}

// NewRoleAssignment binds player.role
func NewRoleAssignment(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &RoleAssignment{
		configured: view.NewParameter[types.Role](c, "player.role"),
		role:       view.NewMainOutput[types.Role](c, RolePath),
	}, nil
}

// Cycle publishes role
func (r *RoleAssignment) Cycle(_ context.Context, cy *view.Cycle) error {
	return r.role.Set(cy, r.configured.Get(cy))
}
