package sensing

import (
	"context"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/types"
	"github.com/c360/semstreams-robotics/view"
)

// SensorDataReceiver publishes the sensor packet that triggered the cycle
type SensorDataReceiver struct {
	sensors    hardware.Sensors
	sensorData view.MainOutput[types.SensorData]
}

// NewSensorDataReceiver binds the sensor_data output
func NewSensorDataReceiver(c *view.Creation, deps node.Dependencies) (node.Node, error) {
	hw, err := requireHardware(deps, "SensorDataReceiver")
	if err != nil {
		return nil, err
	}
	return &SensorDataReceiver{
		sensors:    hw,
		sensorData: view.NewMainOutput[types.SensorData](c, SensorDataPath),
	}, nil
}

// Cycle reads one packet from the hardware
func (r *SensorDataReceiver) Cycle(ctx context.Context, cy *view.Cycle) error {
	data, err := r.sensors.ReadSensorData(ctx)
	if err != nil {
		return errors.Wrap(err, "SensorDataReceiver", "Cycle", "read sensor data")
	}
	if data.Time.IsZero() {
		data.Time = cy.Time()
	}
	return r.sensorData.Set(cy, data)
}
