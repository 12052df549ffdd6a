// Package telemetry carries the outputs of every cycle to external consumers:
// websocket subscribers, JSON-lines recordings and NATS subjects.
package telemetry

import (
	"time"

	"go.uber.org/multierr"
)

// Frame is everything one cycle of a cycler produced
type Frame struct {
	Cycler     string         `json:"cycler"`
	Cycle      uint64         `json:"cycle"`
	Time       time.Time      `json:"time"`
	Outputs    map[string]any `json:"outputs"`
	Additional map[string]any `json:"additional,omitempty"`
	Persistent map[string]any `json:"persistent,omitempty"`
}

// Sink receives frames. Emit is called on the cycler goroutine and must not block.
type Sink interface {
	Emit(frame Frame)
}

// Subscriptions decides which additional outputs a cycler computes
type Subscriptions interface {
	Subscribed(cycler, path string) bool
}

// Sinks fans a frame out to several sinks in order
type Sinks []Sink

// Emit forwards the frame to every sink
func (s Sinks) Emit(frame Frame) {
	for _, sink := range s {
		if sink != nil {
			sink.Emit(frame)
		}
	}
}

// Subscribed reports whether any sink that tracks subscriptions wants the path
func (s Sinks) Subscribed(cycler, path string) bool {
	for _, sink := range s {
		if sub, ok := sink.(Subscriptions); ok && sub.Subscribed(cycler, path) {
			return true
		}
	}
	return false
}

// Close closes every sink that holds resources
func (s Sinks) Close() error {
	var err error
	for _, sink := range s {
		if c, ok := sink.(interface{ Close() error }); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// Discard drops every frame
type Discard struct{}

// Emit does nothing
func (Discard) Emit(Frame) {}
