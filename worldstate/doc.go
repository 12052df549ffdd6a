// Package worldstate composes the per-cycle view of the game the behavior
// layer decides on.
//
// BallStateComposer fuses the own camera ball with the team ball. A local
// observation takes precedence over a teammate's report, which is only
// usable while the robot knows its ground to field transform. Without
// either, the ball state of the cycle is absent rather than carried over.
// The side of the field the ball is on is filtered with a hysteresis band
// around the centre line.
package worldstate
