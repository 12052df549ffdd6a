// Package robotics is the runtime core of a legged soccer robot: a typed value
// store shared between cyclers, per-node views of it, and the orchestration
// that runs the nodes of every cycler in a fixed order.
//
// # Architecture
//
//	┌─────────────────────────────────────┐
//	│          Runtime (execution)        │  One goroutine per cycler,
//	│   construct, validate, run, stop    │  fail fast on fatal errors
//	└─────────────────────────────────────┘
//	           ↓ owns
//	┌─────────────────────────────────────┐
//	│          Cyclers (cycler)           │  Trigger, snapshot inputs,
//	│  perception │ control │ team        │  run nodes, publish outputs
//	└─────────────────────────────────────┘
//	           ↓ run in order
//	┌─────────────────────────────────────┐
//	│          Nodes (node, view)         │  Declared inputs, outputs,
//	│ sensing │ worldstate │ behavior │ … │  parameters, persistent state
//	└─────────────────────────────────────┘
//	           ↓ read and write
//	┌─────────────────────────────────────┐
//	│          Value Store (store)        │  Typed slots, one writer,
//	│                                     │  versioned, never torn
//	└─────────────────────────────────────┘
//
// A cycler reads a consistent snapshot of its inputs when the trigger fires.
// Values written earlier in the same cycle are visible to later nodes of the
// same cycler; other cyclers see them after the cycle is published.
//
// # Data Flow Between Cyclers
//
//	 camera_frame            sensor_data              every 200ms
//	┌────────────┐         ┌─────────────┐          ┌────────────┐
//	│ perception │──ball──→│   control   │──state──→│    team    │
//	└────────────┘         │ owns time   │←─ball────└────────────┘
//	                       └──────┬──────┘
//	                              │ motion command
//	                              ↓
//	                          hardware
//
// Edges inside a cycler run in the same cycle. An input written by a later
// node of the same cycler is read from the previous cycle, and flowgraph
// reports it as a warning at startup.
//
// # Telemetry
//
// Every published cycle becomes a telemetry.Frame. Frames are fanned out to
// the websocket hub (numbered, per-subscription messages), the JSON-lines
// recorder and, when NATS is configured, subjects hulk.<robot>.<cycler>.
// Additional outputs are computed only while someone subscribes to them.
//
// # Packages
//
//   - store, view, node: the value store and the contract of a node
//   - cycler, execution, flowgraph: running and validating the topology
//   - config, parameters: startup documents and live parameter trees
//   - hardware, hardware/sim: the capability set and a simulated robot
//   - sensing, worldstate, behavior, control, noderegistry: the robot nodes
//   - telemetry, natsclient, metric, health: observability
//   - cmd/hulk: the runtime binary
package robotics
