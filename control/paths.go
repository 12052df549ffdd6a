package control

// Store paths written by this package
const (
	DribblePathPath                  = "dribble_path"
	StandUpFrontRemainingPath        = "stand_up_front_estimated_remaining_duration"
	StandUpBackRemainingPath         = "stand_up_back_estimated_remaining_duration"
	TimeToReachKickPositionPath      = "time_to_reach_kick_position"
	TimeToReachKickPositionDebugPath = "time_to_reach_kick_position_output"
)
