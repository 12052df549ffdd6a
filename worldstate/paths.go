package worldstate

// Store paths written by this package
const (
	BallStatePath            = "ball_state"
	PenaltyShotDirectionPath = "penalty_shot_direction"
	RolePath                 = "role"
	WorldStatePath           = "world_state"

	// LastSeenBallPath is persistent state shared by the composers of the
	// control cycler
	LastSeenBallPath = "last_seen_ball"
)
