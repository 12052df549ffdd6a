package main

import (
	"fmt"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/hardware/sim"
)

// openBackend creates the hardware backend named by the hardware parameters
func openBackend(hw *config.Hardware, clk clock.WithTicker) (hardware.Interface, error) {
	switch hw.Backend {
	case "sim":
		cfg, err := sim.ParseConfig(hw.Sim)
		if err != nil {
			return nil, err
		}
		backend, err := sim.New(cfg, clk)
		if err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, errors.WrapInvalid(fmt.Errorf("%w: unknown hardware backend %q", errors.ErrInvalidConfig, hw.Backend),
			"hulk", "openBackend", "backend selection")
	}
}
