package types

import "time"

// BallPosition is an observed ball. The frame (ground or field) is given
// by the path it is published under.
type BallPosition struct {
	Position Point2    `json:"position"`
	Velocity Vector2   `json:"velocity"`
	LastSeen time.Time `json:"last_seen"`
}

// BallState is the composed ball estimate for one cycle
type BallState struct {
	BallInGround         Point2                `json:"ball_in_ground"`
	BallInField          *Point2               `json:"ball_in_field,omitempty"`
	BallInGroundVelocity Vector2               `json:"ball_in_ground_velocity"`
	LastSeenBall         time.Time             `json:"last_seen_ball"`
	FieldSide            Side                  `json:"field_side"`
	PenaltyShotDirection *PenaltyShotDirection `json:"penalty_shot_direction,omitempty"`
}

// RobotState is what the robot knows about itself
type RobotState struct {
	GroundToField *Isometry2   `json:"ground_to_field,omitempty"`
	PrimaryState  PrimaryState `json:"primary_state"`
	FallState     FallState    `json:"fall_state"`
	Role          Role         `json:"role"`
}

// WorldState aggregates everything the behavior layer decides on
type WorldState struct {
	Ball  *BallState `json:"ball,omitempty"`
	Robot RobotState `json:"robot"`
	// LastSeenBall survives cycles in which the ball is absent
	LastSeenBall time.Time `json:"last_seen_ball"`
	Now          time.Time `json:"now"`
}

// SensorData is one sensor packet from the hardware
type SensorData struct {
	Time               time.Time `json:"time"`
	BatteryCharge      float64   `json:"battery_charge"`
	ChestButtonPressed bool      `json:"chest_button_pressed"`
	// Pitch and Roll of the torso in radians
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	// Odometry is the walked displacement since the previous packet
	Odometry Isometry2 `json:"odometry"`
	Stiff    bool      `json:"stiff"`
}

// CameraFrame is the result of one camera exposure
type CameraFrame struct {
	Time     time.Time      `json:"time"`
	Camera   CameraPosition `json:"camera"`
	BallSeen []Point2       `json:"ball_seen"`
}

// TeamMessage is broadcast between robots of one team
type TeamMessage struct {
	PlayerNumber int           `json:"player_number"`
	Sent         time.Time     `json:"sent"`
	Pose         Isometry2     `json:"pose"`
	Ball         *BallPosition `json:"ball,omitempty"`
}
