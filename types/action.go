package types

import "fmt"

// ActionKind enumerates the behavior intents selected once per cycle
type ActionKind int

const (
	ActionUnstiff ActionKind = iota
	ActionInitial
	ActionPenalize
	ActionStand
	ActionStandUp
	ActionLookAtReferee
	ActionLookAround
	ActionWalkToKickOff
	ActionWalkToPenaltyKick
	ActionDefendGoal
	ActionDefendKickOff
	ActionDefendLeft
	ActionDefendRight
	ActionDefendPenaltyKick
	ActionDefendOpponentCornerKick
	ActionDribble
	ActionInterceptBall
	ActionSearch
	ActionSearchForLostBall
	ActionSupportLeft
	ActionSupportRight
	ActionSupportStriker
)

var actionNames = enumNames[ActionKind]{
	"unstiff", "initial", "penalize", "stand", "stand_up", "look_at_referee", "look_around",
	"walk_to_kick_off", "walk_to_penalty_kick", "defend_goal", "defend_kick_off", "defend_left",
	"defend_right", "defend_penalty_kick", "defend_opponent_corner_kick", "dribble",
	"intercept_ball", "search", "search_for_lost_ball", "support_left", "support_right",
	"support_striker",
}

// AllActionKinds returns every kind in declaration order
func AllActionKinds() []ActionKind {
	kinds := make([]ActionKind, len(actionNames))
	for i := range actionNames {
		kinds[i] = ActionKind(i)
	}
	return kinds
}

func (k ActionKind) String() string               { return actionNames.name(k) }
func (k ActionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }
func (k *ActionKind) UnmarshalText(b []byte) error {
	v, err := actionNames.parse(b)
	*k = v
	return err
}

// Action is the intent chosen by the dispatcher. Side is only meaningful
// for ActionDefendOpponentCornerKick.
type Action struct {
	Kind ActionKind `json:"kind"`
	Side Side       `json:"side,omitempty"`
}

// NewAction returns an action without side information
func NewAction(kind ActionKind) Action {
	return Action{Kind: kind}
}

func (a Action) String() string {
	if a.Kind == ActionDefendOpponentCornerKick {
		return fmt.Sprintf("%s(%s)", a.Kind, a.Side)
	}
	return a.Kind.String()
}
