// Package sensing holds the nodes that turn hardware readings into the
// first store values of a cycle: sensor data, fall state, game state,
// odometry based localization, camera ball detections and team ball
// messages.
//
// Nodes that talk to the hardware get it from node.Dependencies and fail
// construction when it is missing.
package sensing
