package behavior

// Store paths written by this package
const (
	ActionPath        = "action"
	MotionCommandPath = "motion_command"

	candidatePrefix = "motion_candidates."
)

// Motion node names
const (
	PrimitiveMotionNode = "primitive_motion"
	SearchMotionNode    = "search_motion"
	WalkToPoseNode      = "walk_to_pose"
	DefendMotionNode    = "defend_motion"
	WalkToBallNode      = "walk_to_ball"
)

// CandidatePath is where a motion node publishes its candidate command
func CandidatePath(node string) string {
	return candidatePrefix + node
}
