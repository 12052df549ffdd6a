package control

import (
	"context"
	"fmt"
	"time"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// NoPathDuration is published when no path to the kick position exists.
// It is large enough to lose every comparison and small enough to add to.
const NoPathDuration = 1800 * time.Second

// WalkingSpeeds are the speeds per segment kind in meters per second
type WalkingSpeeds struct {
	Line float64
	Arc  float64
}

// EstimateWalkingDuration sums length over speed across the segments of
// path. A nil path means there is no path and yields NoPathDuration; an
// empty path means the robot is already there and yields zero.
func EstimateWalkingDuration(path types.Path, speeds WalkingSpeeds) (time.Duration, error) {
	if path == nil {
		return NoPathDuration, nil
	}
	if speeds.Line <= 0 || speeds.Arc <= 0 {
		return 0, errors.WrapInvalid(
			fmt.Errorf("%w: walking speeds must be positive, got line %v arc %v", errors.ErrInvalidConfig, speeds.Line, speeds.Arc),
			"TimeToReachKickPosition", "EstimateWalkingDuration", "speed validation")
	}

	seconds := 0.0
	for _, segment := range path {
		switch s := segment.(type) {
		case types.LineSegment:
			seconds += s.Length() / speeds.Line
		case types.Arc:
			seconds += s.Length() / speeds.Arc
		default:
			return 0, errors.WrapInvalid(fmt.Errorf("%w: segment %T", errors.ErrInvalidData, segment),
				"TimeToReachKickPosition", "EstimateWalkingDuration", "segment dispatch")
		}
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// EstimateTimeToReach adds the remaining stand up durations to the walking
// duration of a present path. Absent durations count as zero.
func EstimateTimeToReach(path types.Path, speeds WalkingSpeeds, standUpFront, standUpBack *time.Duration) (time.Duration, error) {
	walking, err := EstimateWalkingDuration(path, speeds)
	if err != nil || path == nil {
		return walking, err
	}
	total := walking
	if standUpFront != nil {
		total += *standUpFront
	}
	if standUpBack != nil {
		total += *standUpBack
	}
	return total, nil
}

// TimeToReachKickPosition estimates how long the robot needs to reach the
// kick position of the dribble path
type TimeToReachKickPosition struct {
	dribblePath   view.OptionalInput[types.Path]
	standUpFront  view.OptionalInput[*time.Duration]
	standUpBack   view.OptionalInput[*time.Duration]
	lineSpeed     *view.Parameter[float64]
	arcSpeed      *view.Parameter[float64]
	timeToReach   view.PersistentState[time.Duration]
	debugEstimate view.AdditionalOutput[time.Duration]
}

// NewTimeToReachKickPosition binds the path and the stand up estimates
func NewTimeToReachKickPosition(c *view.Creation, _ node.Dependencies) (node.Node, error) {
	return &TimeToReachKickPosition{
		dribblePath:   view.NewOptionalInput[types.Path](c, DribblePathPath),
		standUpFront:  view.NewOptionalInput[*time.Duration](c, StandUpFrontRemainingPath),
		standUpBack:   view.NewOptionalInput[*time.Duration](c, StandUpBackRemainingPath),
		lineSpeed:     view.NewParameter[float64](c, "behavior.path_planning.line_walking_speed"),
		arcSpeed:      view.NewParameter[float64](c, "behavior.path_planning.arc_walking_speed"),
		timeToReach:   view.NewPersistentState(c, TimeToReachKickPositionPath, NoPathDuration),
		debugEstimate: view.NewAdditionalOutput[time.Duration](c, TimeToReachKickPositionDebugPath),
	}, nil
}

// Cycle updates time_to_reach_kick_position
func (t *TimeToReachKickPosition) Cycle(_ context.Context, cy *view.Cycle) error {
	path, _ := t.dribblePath.Get(cy)
	front, _ := t.standUpFront.Get(cy)
	back, _ := t.standUpBack.Get(cy)

	estimate, err := EstimateTimeToReach(path, WalkingSpeeds{Line: t.lineSpeed.Get(cy), Arc: t.arcSpeed.Get(cy)}, front, back)
	if err != nil {
		return err
	}
	*t.timeToReach.Get(cy) = estimate
	return t.debugEstimate.Fill(cy, func() time.Duration { return estimate })
}
