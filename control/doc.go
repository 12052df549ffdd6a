// Package control estimates how long reaching the ball will take and hands
// the motion command of the cycle to the actuators.
package control
