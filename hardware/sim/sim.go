// Package sim is a deterministic simulation backend of hardware.Interface.
//
// Events are produced by tickers of the injected clock, so a fake clock
// drives the simulation step by step. The simulated world has a ball
// rolling with friction and a robot that walks with the last written motion
// command; sensor packets carry the odometry walked since the previous
// packet and camera frames report the ball when it is in front of the robot.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/types"
)

// Config is the "sim" section of the hardware parameters
type Config struct {
	BodyID       string          `json:"body_id"`
	HeadID       string          `json:"head_id"`
	SensorPeriod config.Duration `json:"sensor_period"`
	CameraPeriod config.Duration `json:"camera_period"`
	// Ball and BallVelocity are given in the robot's starting ground frame
	Ball         types.Point2  `json:"ball"`
	BallVelocity types.Vector2 `json:"ball_velocity"`
	// BallFriction is the fraction of ball speed lost per second
	BallFriction float64 `json:"ball_friction"`
	// VisionRange is the largest distance the camera reports the ball at
	VisionRange float64 `json:"vision_range"`
	Stiff       bool    `json:"stiff"`
}

// DefaultConfig returns a simulation at the robot's real sensor rates
func DefaultConfig() Config {
	return Config{
		BodyID:       "sim-body",
		HeadID:       "sim-head",
		SensorPeriod: config.Duration(12 * time.Millisecond),
		CameraPeriod: config.Duration(33 * time.Millisecond),
		Ball:         types.Point2{X: 1.5},
		BallFriction: 0.5,
		VisionRange:  5,
		Stiff:        true,
	}
}

// ParseConfig decodes the sim section over the defaults
func ParseConfig(raw json.RawMessage) (Config, error) {
	cfg := DefaultConfig()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
				"sim", "ParseConfig", "decode sim parameters")
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks periods and ranges
func (c Config) Validate() error {
	if c.SensorPeriod <= 0 || c.CameraPeriod <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: sim periods must be positive", errors.ErrInvalidConfig),
			"sim", "Validate", "period check")
	}
	if c.BallFriction < 0 || c.VisionRange <= 0 {
		return errors.WrapInvalid(fmt.Errorf("%w: sim ball friction or vision range out of range", errors.ErrInvalidConfig),
			"sim", "Validate", "range check")
	}
	return nil
}

// Backend simulates one robot.
// Thread-safe for concurrent use from multiple goroutines.
type Backend struct {
	cfg   Config
	clock clock.WithTicker

	mu       sync.Mutex
	tickers  map[string]clock.Ticker
	closed   chan struct{}
	isClosed bool

	// world frame is the robot's starting ground frame
	pose         types.Isometry2
	ball         types.Point2
	ballVelocity types.Vector2
	command      types.MotionCommand
	lastStep     time.Time
	odometry     types.Isometry2
	buttonQueued bool
	stiff        bool

	inbox []types.TeamMessage
	sent  []types.TeamMessage
}

var _ hardware.Interface = (*Backend)(nil)

// New creates a simulation. A nil clock uses the real clock.
func New(cfg Config, clk clock.WithTicker) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Backend{
		cfg:          cfg,
		clock:        clk,
		tickers:      make(map[string]clock.Ticker),
		closed:       make(chan struct{}),
		ball:         cfg.Ball,
		ballVelocity: cfg.BallVelocity,
		command:      types.StandCommand(),
		lastStep:     clk.Now(),
		stiff:        cfg.Stiff,
	}, nil
}

// IDs returns the configured identifiers
func (b *Backend) IDs() hardware.IDs {
	return hardware.IDs{BodyID: b.cfg.BodyID, HeadID: b.cfg.HeadID}
}

func (b *Backend) period(event string) (time.Duration, bool) {
	switch event {
	case hardware.EventSensorData:
		return b.cfg.SensorPeriod.Std(), true
	case hardware.EventCameraFrame:
		return b.cfg.CameraPeriod.Std(), true
	default:
		return 0, false
	}
}

// WaitForEvent blocks until the next tick of the event's ticker
func (b *Backend) WaitForEvent(ctx context.Context, event string) (time.Time, error) {
	period, ok := b.period(event)
	if !ok {
		return time.Time{}, errors.WrapInvalid(fmt.Errorf("%w: unknown event %q", errors.ErrInvalidConfig, event),
			"sim", "WaitForEvent", "event lookup")
	}

	b.mu.Lock()
	if b.isClosed {
		b.mu.Unlock()
		return time.Time{}, b.closedErr(event)
	}
	ticker, ok := b.tickers[event]
	if !ok {
		ticker = b.clock.NewTicker(period)
		b.tickers[event] = ticker
	}
	b.mu.Unlock()

	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-b.closed:
		return time.Time{}, b.closedErr(event)
	case now := <-ticker.C():
		b.mu.Lock()
		b.step(now)
		b.mu.Unlock()
		return now, nil
	}
}

func (b *Backend) closedErr(event string) error {
	return errors.WrapFatal(errors.ErrTriggerClosed, "sim", "WaitForEvent", "wait for "+event)
}

// step advances the world to now; mu must be held
func (b *Backend) step(now time.Time) {
	dt := now.Sub(b.lastStep).Seconds()
	if dt <= 0 {
		return
	}
	b.lastStep = now

	b.ball = b.ball.Add(b.ballVelocity.Scale(dt))
	b.ballVelocity = b.ballVelocity.Scale(math.Max(0, 1-b.cfg.BallFriction*dt))

	if b.command.Kind == types.MotionWalkWithVelocity && b.stiff {
		walked := b.command.Velocity.Scale(dt)
		delta := types.NewIsometry2(walked.X, walked.Y, b.command.AngularVelocity*dt)
		b.pose = b.pose.Compose(delta)
		b.odometry = b.odometry.Compose(delta)
	}
}

// ReadSensorData returns the odometry walked since the previous packet
func (b *Backend) ReadSensorData(context.Context) (types.SensorData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := types.SensorData{
		Time:               b.lastStep,
		BatteryCharge:      1,
		ChestButtonPressed: b.buttonQueued,
		Odometry:           b.odometry,
		Stiff:              b.stiff,
	}
	b.odometry = types.Isometry2{}
	b.buttonQueued = false
	return data, nil
}

// ReadCameraFrame reports the ball when it is in front of the robot and in
// vision range
func (b *Backend) ReadCameraFrame(context.Context) (types.CameraFrame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame := types.CameraFrame{Time: b.lastStep, Camera: types.CameraTop}
	inGround := b.pose.Inverse().TransformPoint(b.ball)
	distance := inGround.DistanceTo(types.Origin)
	if inGround.X > 0 && distance <= b.cfg.VisionRange {
		frame.BallSeen = []types.Point2{inGround}
		if distance < 1 {
			frame.Camera = types.CameraBottom
		}
	}
	return frame, nil
}

// WriteMotionCommand sets the command walked from the next step on
func (b *Backend) WriteMotionCommand(_ context.Context, cmd types.MotionCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.command = cmd
	switch cmd.Kind {
	case types.MotionUnstiff:
		b.stiff = false
	case types.MotionStand, types.MotionWalkWithVelocity, types.MotionStandUp:
		b.stiff = true
	}
	return nil
}

// ReadTeamMessages drains messages injected with Deliver
func (b *Backend) ReadTeamMessages(context.Context) ([]types.TeamMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := b.inbox
	b.inbox = nil
	return msgs, nil
}

// SendTeamMessage records the message
func (b *Backend) SendTeamMessage(_ context.Context, msg types.TeamMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed {
		return errors.WrapTransient(errors.ErrConnectionLost, "sim", "SendTeamMessage", "send")
	}
	b.sent = append(b.sent, msg)
	return nil
}

// Deliver queues messages from simulated teammates
func (b *Backend) Deliver(msgs ...types.TeamMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inbox = append(b.inbox, msgs...)
}

// Sent returns every message sent so far
func (b *Backend) Sent() []types.TeamMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.TeamMessage(nil), b.sent...)
}

// PressChestButton reports a press in the next sensor packet
func (b *Backend) PressChestButton() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buttonQueued = true
}

// Pose returns the robot pose in its starting ground frame
func (b *Backend) Pose() types.Isometry2 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pose
}

// Close stops the tickers; every pending and later wait fails with
// errors.ErrTriggerClosed
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.isClosed {
		return nil
	}
	b.isClosed = true
	close(b.closed)
	for _, t := range b.tickers {
		t.Stop()
	}
	return nil
}
