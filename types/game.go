package types

import (
	"fmt"
	"time"
)

// enumNames maps enum values to their text form for logs and telemetry
type enumNames[E ~int] []string

func (n enumNames[E]) name(e E) string {
	if int(e) < 0 || int(e) >= len(n) {
		return "unknown"
	}
	return n[e]
}

func (n enumNames[E]) parse(text []byte) (E, error) {
	for i, name := range n {
		if name == string(text) {
			return E(i), nil
		}
	}
	return 0, fmt.Errorf("unknown value %q", text)
}

// CycleTime is published once per cycle by the timing owner
type CycleTime struct {
	StartTime         time.Time     `json:"start_time"`
	LastCycleDuration time.Duration `json:"last_cycle_duration"`
}

// Side of the field, seen from the own goal
type Side int

const (
	SideLeft Side = iota
	SideRight
)

var sideNames = enumNames[Side]{"left", "right"}

func (s Side) String() string               { return sideNames.name(s) }
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
func (s *Side) UnmarshalText(b []byte) error {
	v, err := sideNames.parse(b)
	*s = v
	return err
}

// Mirror returns the opposite side
func (s Side) Mirror() Side {
	if s == SideLeft {
		return SideRight
	}
	return SideLeft
}

// PenaltyShotDirection is the direction a penalty kick is travelling
type PenaltyShotDirection int

const (
	PenaltyShotNotMoving PenaltyShotDirection = iota
	PenaltyShotLeft
	PenaltyShotRight
)

var penaltyShotNames = enumNames[PenaltyShotDirection]{"not_moving", "left", "right"}

func (d PenaltyShotDirection) String() string               { return penaltyShotNames.name(d) }
func (d PenaltyShotDirection) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (d *PenaltyShotDirection) UnmarshalText(b []byte) error {
	v, err := penaltyShotNames.parse(b)
	*d = v
	return err
}

// PrimaryState is the game controller state of this robot
type PrimaryState int

const (
	PrimaryStateUnstiff PrimaryState = iota
	PrimaryStateInitial
	PrimaryStateReady
	PrimaryStateSet
	PrimaryStatePlaying
	PrimaryStatePenalized
	PrimaryStateFinished
	PrimaryStateCalibration
)

var primaryStateNames = enumNames[PrimaryState]{
	"unstiff", "initial", "ready", "set", "playing", "penalized", "finished", "calibration",
}

func (p PrimaryState) String() string               { return primaryStateNames.name(p) }
func (p PrimaryState) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p *PrimaryState) UnmarshalText(b []byte) error {
	v, err := primaryStateNames.parse(b)
	*p = v
	return err
}

// FallState describes whether the robot is on its feet
type FallState int

const (
	FallStateUpright FallState = iota
	FallStateFalling
	FallStateFallenFront
	FallStateFallenBack
)

var fallStateNames = enumNames[FallState]{"upright", "falling", "fallen_front", "fallen_back"}

func (f FallState) String() string               { return fallStateNames.name(f) }
func (f FallState) MarshalText() ([]byte, error) { return []byte(f.String()), nil }
func (f *FallState) UnmarshalText(b []byte) error {
	v, err := fallStateNames.parse(b)
	*f = v
	return err
}

// Fallen reports whether the robot lies on the ground
func (f FallState) Fallen() bool {
	return f == FallStateFallenFront || f == FallStateFallenBack
}

// Role is the tactical role assigned to the robot
type Role int

const (
	RoleStriker Role = iota
	RoleKeeper
	RoleDefenderLeft
	RoleDefenderRight
	RoleSupportLeft
	RoleSupportRight
	RoleSearcher
)

var roleNames = enumNames[Role]{
	"striker", "keeper", "defender_left", "defender_right", "support_left", "support_right", "searcher",
}

func (r Role) String() string               { return roleNames.name(r) }
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r *Role) UnmarshalText(b []byte) error {
	v, err := roleNames.parse(b)
	*r = v
	return err
}
