// Package errors classifies the failures of the robot runtime.
//
// # Overview
//
// Errors fall into three classes that decide how the runtime reacts:
//
//   - Transient: a node failed for one cycle. The cycler logs it and keeps running.
//   - Invalid: wiring or configuration is wrong (type mismatch, two writers for one path).
//     Startup aborts.
//   - Fatal: a trigger source is gone or initialization failed. The runtime cancels
//     every cycler and the process exits non-zero.
//
// # Wrapping
//
// Every layer adds its context using the "component.method: action failed: cause" form:
//
//	if err := hw.WaitForEvent(ctx, hardware.EventSensorData); err != nil {
//	    return errors.WrapFatal(err, "Cycler", "Run", "wait for control trigger")
//	}
//
// Classification survives further wrapping with fmt.Errorf and %w, and sentinels such as
// ErrMissingInput or ErrTriggerClosed stay reachable through errors.Is.
package errors
