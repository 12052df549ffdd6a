package behavior

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/types"
)

// ActionTable maps every action kind to the one motion node handling it
type ActionTable struct {
	handlers map[types.ActionKind]string
}

// NewActionTable creates an empty table
func NewActionTable() *ActionTable {
	return &ActionTable{handlers: make(map[types.ActionKind]string)}
}

// DefaultActionTable assigns all action kinds to the built in motion nodes
func DefaultActionTable() (*ActionTable, error) {
	t := NewActionTable()
	assignments := []struct {
		node  string
		kinds []types.ActionKind
	}{
		{PrimitiveMotionNode, []types.ActionKind{
			types.ActionUnstiff, types.ActionInitial, types.ActionPenalize, types.ActionStand, types.ActionStandUp,
		}},
		{SearchMotionNode, []types.ActionKind{
			types.ActionLookAtReferee, types.ActionLookAround, types.ActionSearch, types.ActionSearchForLostBall,
		}},
		{WalkToPoseNode, []types.ActionKind{
			types.ActionWalkToKickOff, types.ActionWalkToPenaltyKick,
			types.ActionSupportLeft, types.ActionSupportRight, types.ActionSupportStriker,
		}},
		{DefendMotionNode, []types.ActionKind{
			types.ActionDefendGoal, types.ActionDefendKickOff, types.ActionDefendLeft, types.ActionDefendRight,
			types.ActionDefendPenaltyKick, types.ActionDefendOpponentCornerKick,
		}},
		{WalkToBallNode, []types.ActionKind{types.ActionDribble, types.ActionInterceptBall}},
	}
	for _, a := range assignments {
		if err := t.Register(a.node, a.kinds...); err != nil {
			return nil, err
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Register makes node the handler of kinds. Nothing is registered when any
// kind already has a handler.
func (t *ActionTable) Register(node string, kinds ...types.ActionKind) error {
	seen := make(map[types.ActionKind]bool, len(kinds))
	for _, kind := range kinds {
		if existing, ok := t.handlers[kind]; ok {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s is handled by %s, not %s", errors.ErrDuplicateActionHandler, kind, existing, node),
				"ActionTable", "Register", "handler check")
		}
		if seen[kind] {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s listed twice for %s", errors.ErrDuplicateActionHandler, kind, node),
				"ActionTable", "Register", "handler check")
		}
		seen[kind] = true
	}
	for _, kind := range kinds {
		t.handlers[kind] = node
	}
	return nil
}

// Handler returns the node handling kind
func (t *ActionTable) Handler(kind types.ActionKind) (string, bool) {
	node, ok := t.handlers[kind]
	return node, ok
}

// Handles reports whether node is the handler of kind
func (t *ActionTable) Handles(node string, kind types.ActionKind) bool {
	handler, ok := t.handlers[kind]
	return ok && handler == node
}

// Nodes returns the sorted handler names
func (t *ActionTable) Nodes() []string {
	unique := make(map[string]bool)
	for _, node := range t.handlers {
		unique[node] = true
	}
	nodes := make([]string, 0, len(unique))
	for node := range unique {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)
	return nodes
}

// Validate checks that every action kind has a handler
func (t *ActionTable) Validate() error {
	var missing []string
	for _, kind := range types.AllActionKinds() {
		if _, ok := t.handlers[kind]; !ok {
			missing = append(missing, kind.String())
		}
	}
	if len(missing) > 0 {
		return errors.WrapInvalid(
			fmt.Errorf("%w: no motion node handles %s", errors.ErrInvalidConfig, strings.Join(missing, ", ")),
			"ActionTable", "Validate", "coverage check")
	}
	return nil
}
