// Package testutil provides fakes and helpers for testing nodes and cyclers
// without a robot or a NATS server.
//
// FakeHardware is a scriptable hardware backend: tests fire events, set the
// sensor and camera readings it returns and inspect the motion commands and
// team messages written to it. Closing it fails every wait with
// errors.ErrTriggerClosed, like a disconnected robot.
//
// Harness runs a single node against a synthetic frame. Inputs are seeded
// with Set, parameters with WithParameters or SetParameter, and outputs are read back after Cycle.
//
// MockPublisher is an in-memory subject publisher for telemetry tests.
package testutil
