package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/types"
)

// FakeHardware is a scriptable hardware.Interface.
// Thread-safe for concurrent use from multiple goroutines.
type FakeHardware struct {
	mu sync.Mutex

	ids      hardware.IDs
	events   map[string]chan time.Time
	closed   chan struct{}
	isClosed bool

	sensors  types.SensorData
	frame    types.CameraFrame
	incoming []types.TeamMessage

	// ReadErr is returned by every read when set
	ReadErr error
	// WriteErr is returned by WriteMotionCommand when set
	WriteErr error

	commands []types.MotionCommand
	sent     []types.TeamMessage
}

var _ hardware.Interface = (*FakeHardware)(nil)

// NewFakeHardware creates a fake backend with the given identifiers
func NewFakeHardware(ids hardware.IDs) *FakeHardware {
	return &FakeHardware{
		ids:    ids,
		events: make(map[string]chan time.Time),
		closed: make(chan struct{}),
	}
}

func (f *FakeHardware) channel(event string) chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.events[event]
	if !ok {
		ch = make(chan time.Time, 64)
		f.events[event] = ch
	}
	return ch
}

// Fire queues one occurrence of an event
func (f *FakeHardware) Fire(event string, at time.Time) {
	f.channel(event) <- at
}

// IDs returns the configured identifiers
func (f *FakeHardware) IDs() hardware.IDs {
	return f.ids
}

// WaitForEvent returns the next fired occurrence of the event
func (f *FakeHardware) WaitForEvent(ctx context.Context, event string) (time.Time, error) {
	ch := f.channel(event)
	select {
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	case <-f.closed:
		return time.Time{}, errors.WrapFatal(errors.ErrTriggerClosed, "FakeHardware", "WaitForEvent", "wait for "+event)
	case at := <-ch:
		return at, nil
	}
}

// SetSensorData sets the packet returned by ReadSensorData
func (f *FakeHardware) SetSensorData(data types.SensorData) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sensors = data
}

// ReadSensorData returns the configured packet
func (f *FakeHardware) ReadSensorData(context.Context) (types.SensorData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sensors, f.ReadErr
}

// SetCameraFrame sets the frame returned by ReadCameraFrame
func (f *FakeHardware) SetCameraFrame(frame types.CameraFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = frame
}

// ReadCameraFrame returns the configured frame
func (f *FakeHardware) ReadCameraFrame(context.Context) (types.CameraFrame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame, f.ReadErr
}

// QueueTeamMessages adds messages returned by the next ReadTeamMessages
func (f *FakeHardware) QueueTeamMessages(msgs ...types.TeamMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incoming = append(f.incoming, msgs...)
}

// ReadTeamMessages drains the queued messages
func (f *FakeHardware) ReadTeamMessages(context.Context) ([]types.TeamMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReadErr != nil {
		return nil, f.ReadErr
	}
	msgs := f.incoming
	f.incoming = nil
	return msgs, nil
}

// SendTeamMessage records a sent message
func (f *FakeHardware) SendTeamMessage(_ context.Context, msg types.TeamMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

// SentTeamMessages returns every sent message
func (f *FakeHardware) SentTeamMessages() []types.TeamMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.TeamMessage(nil), f.sent...)
}

// WriteMotionCommand records a motion command
func (f *FakeHardware) WriteMotionCommand(_ context.Context, cmd types.MotionCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	f.commands = append(f.commands, cmd)
	return nil
}

// MotionCommands returns every written motion command
func (f *FakeHardware) MotionCommands() []types.MotionCommand {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.MotionCommand(nil), f.commands...)
}

// Close fails every pending and future wait
func (f *FakeHardware) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isClosed {
		f.isClosed = true
		close(f.closed)
	}
	return nil
}
