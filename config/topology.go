package config

import (
	"fmt"
	"time"

	"github.com/c360/semstreams-robotics/errors"
)

// TriggerKind selects what wakes a cycler up
type TriggerKind string

const (
	// TriggerHardware waits for a hardware event
	TriggerHardware TriggerKind = "hardware"
	// TriggerPeriodic fires at a fixed period
	TriggerPeriodic TriggerKind = "periodic"
)

// TriggerConfig describes the trigger source of a cycler
type TriggerConfig struct {
	Kind   TriggerKind `json:"kind"`
	Event  string      `json:"event,omitempty"`
	Period Duration    `json:"period,omitempty"`
}

// CyclerConfig describes one cycler and its ordered nodes
type CyclerConfig struct {
	Name     string        `json:"name"`
	Trigger  TriggerConfig `json:"trigger"`
	OwnsTime bool          `json:"owns_time,omitempty"`
	Nodes    []string      `json:"nodes"`
}

// DefaultTopology is the stack run on a robot
func DefaultTopology() []CyclerConfig {
	return []CyclerConfig{
		{
			Name:    "perception",
			Trigger: TriggerConfig{Kind: TriggerHardware, Event: "camera_frame"},
			Nodes:   []string{"ball_detection"},
		},
		{
			Name:     "control",
			Trigger:  TriggerConfig{Kind: TriggerHardware, Event: "sensor_data"},
			OwnsTime: true,
			Nodes: []string{
				"sensor_data_receiver",
				"fall_state_estimation",
				"game_state_filter",
				"localization",
				"role_assignment",
				"penalty_shot_direction_estimation",
				"ball_state_composer",
				"world_state_composer",
				"behavior_dispatcher",
				"dribble_path",
				"stand_up_estimator",
				"time_to_reach_kick_position",
				"walk_to_ball",
				"search_motion",
				"defend_motion",
				"walk_to_pose",
				"primitive_motion",
				"motion_selector",
				"motor_command_writer",
			},
		},
		{
			Name:    "team",
			Trigger: TriggerConfig{Kind: TriggerPeriodic, Period: Duration(200 * time.Millisecond)},
			Nodes:   []string{"team_ball_receiver", "team_message_sender"},
		},
	}
}

// ValidateTopology checks cycler names, triggers and timing ownership
func ValidateTopology(cyclers []CyclerConfig) error {
	if len(cyclers) == 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: no cyclers", errors.ErrMissingConfig),
			"config", "ValidateTopology", "cycler list")
	}

	names := make(map[string]bool, len(cyclers))
	timeOwners := 0
	for _, c := range cyclers {
		if c.Name == "" {
			return errors.WrapInvalid(fmt.Errorf("%w: cycler without name", errors.ErrInvalidConfig),
				"config", "ValidateTopology", "cycler name")
		}
		if names[c.Name] {
			return errors.WrapInvalid(fmt.Errorf("%w: duplicate cycler %q", errors.ErrInvalidConfig, c.Name),
				"config", "ValidateTopology", "cycler name")
		}
		names[c.Name] = true

		if len(c.Nodes) == 0 {
			return errors.WrapInvalid(fmt.Errorf("%w: cycler %q has no nodes", errors.ErrInvalidConfig, c.Name),
				"config", "ValidateTopology", "node list")
		}

		switch c.Trigger.Kind {
		case TriggerHardware:
			if c.Trigger.Event == "" {
				return errors.WrapInvalid(fmt.Errorf("%w: cycler %q needs a hardware event", errors.ErrInvalidConfig, c.Name),
					"config", "ValidateTopology", "trigger")
			}
		case TriggerPeriodic:
			if c.Trigger.Period <= 0 {
				return errors.WrapInvalid(fmt.Errorf("%w: cycler %q needs a positive period", errors.ErrInvalidConfig, c.Name),
					"config", "ValidateTopology", "trigger")
			}
		default:
			return errors.WrapInvalid(fmt.Errorf("%w: cycler %q has trigger kind %q", errors.ErrInvalidConfig, c.Name, c.Trigger.Kind),
				"config", "ValidateTopology", "trigger")
		}

		if c.OwnsTime {
			timeOwners++
		}
	}

	if timeOwners != 1 {
		return errors.WrapInvalid(fmt.Errorf("%w: %d cyclers own the cycle time, want exactly 1", errors.ErrInvalidConfig, timeOwners),
			"config", "ValidateTopology", "timing owner")
	}
	return nil
}
