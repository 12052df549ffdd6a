package types

// MotionKind selects the motion engine for a cycle
type MotionKind int

const (
	MotionStand MotionKind = iota
	MotionUnstiff
	MotionPenalized
	MotionStandUp
	MotionWalkWithVelocity
)

var motionNames = enumNames[MotionKind]{"stand", "unstiff", "penalized", "stand_up", "walk_with_velocity"}

func (m MotionKind) String() string               { return motionNames.name(m) }
func (m MotionKind) MarshalText() ([]byte, error) { return []byte(m.String()), nil }
func (m *MotionKind) UnmarshalText(b []byte) error {
	v, err := motionNames.parse(b)
	*m = v
	return err
}

// HeadMotionKind selects what the head does
type HeadMotionKind int

const (
	HeadZeroAngles HeadMotionKind = iota
	HeadCenter
	HeadLookAround
	HeadLookAt
	HeadLookAtReferee
)

var headMotionNames = enumNames[HeadMotionKind]{"zero_angles", "center", "look_around", "look_at", "look_at_referee"}

func (h HeadMotionKind) String() string               { return headMotionNames.name(h) }
func (h HeadMotionKind) MarshalText() ([]byte, error) { return []byte(h.String()), nil }
func (h *HeadMotionKind) UnmarshalText(b []byte) error {
	v, err := headMotionNames.parse(b)
	*h = v
	return err
}

// CameraPosition names one of the two head cameras
type CameraPosition string

const (
	CameraTop    CameraPosition = "top"
	CameraBottom CameraPosition = "bottom"
)

// ImageRegion is where in the image a look-at target should appear
type ImageRegion string

const (
	ImageRegionTop    ImageRegion = "top"
	ImageRegionCenter ImageRegion = "center"
	ImageRegionBottom ImageRegion = "bottom"
)

// HeadMotion is the head part of a motion command
type HeadMotion struct {
	Kind        HeadMotionKind `json:"kind"`
	Target      Point2         `json:"target"`
	ImageRegion ImageRegion    `json:"image_region,omitempty"`
	Camera      CameraPosition `json:"camera,omitempty"`
}

// LookAt points the given camera at a ground target
func LookAt(target Point2, region ImageRegion, camera CameraPosition) HeadMotion {
	return HeadMotion{Kind: HeadLookAt, Target: target, ImageRegion: region, Camera: camera}
}

// MotionCommand is the actuation intent of one cycle
type MotionCommand struct {
	Kind            MotionKind `json:"kind"`
	Head            HeadMotion `json:"head"`
	Velocity        Vector2    `json:"velocity"`
	AngularVelocity float64    `json:"angular_velocity,omitempty"`
}

// StandCommand is the fallback command when no motion node is active
func StandCommand() MotionCommand {
	return MotionCommand{Kind: MotionStand, Head: HeadMotion{Kind: HeadCenter}}
}

// WalkWithVelocity builds a walking command
func WalkWithVelocity(velocity Vector2, angularVelocity float64, head HeadMotion) MotionCommand {
	return MotionCommand{
		Kind:            MotionWalkWithVelocity,
		Head:            head,
		Velocity:        velocity,
		AngularVelocity: angularVelocity,
	}
}
