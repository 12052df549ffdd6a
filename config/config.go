// Package config loads the framework and hardware parameter documents read at
// startup and describes the cycler topology of the runtime.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/semstreams-robotics/errors"
)

// Framework holds the framework-level parameters
type Framework struct {
	HardwareParameters          string         `json:"hardware_parameters"`
	CommunicationAddresses      string         `json:"communication_addresses,omitempty"`
	ParametersDirectory         string         `json:"parameters_directory"`
	CyclerInstancesToBeRecorded []string       `json:"cycler_instances_to_be_recorded,omitempty"`
	NATSURL                     string         `json:"nats_url,omitempty"`
	MetricsPort                 int            `json:"metrics_port,omitempty"`
	RobotName                   string         `json:"robot_name,omitempty"`
	PublishRate                 float64        `json:"publish_rate,omitempty"`
	Cyclers                     []CyclerConfig `json:"cyclers,omitempty"`
}

// Hardware holds the backend-specific hardware parameters
type Hardware struct {
	Backend string          `json:"backend"`
	Sim     json.RawMessage `json:"sim,omitempty"`
}

// LoadFramework reads and validates the framework parameters
func LoadFramework(path string) (*Framework, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "LoadFramework", "read framework parameters")
	}
	if err := validateJSONDepth(data); err != nil {
		return nil, errors.WrapInvalid(err, "config", "LoadFramework", "check framework parameters")
	}
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var fw Framework
	if err := json.Unmarshal(data, &fw); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"config", "LoadFramework", "parse framework parameters")
	}

	if len(fw.Cyclers) == 0 {
		fw.Cyclers = DefaultTopology()
	}
	if fw.RobotName == "" {
		fw.RobotName = "nao"
	}

	if err := fw.Validate(); err != nil {
		return nil, err
	}
	return &fw, nil
}

// Validate checks the framework parameters and the topology
func (f *Framework) Validate() error {
	if f.HardwareParameters == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: hardware_parameters", errors.ErrMissingConfig),
			"Framework", "Validate", "hardware parameters path")
	}
	if f.ParametersDirectory == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: parameters_directory", errors.ErrMissingConfig),
			"Framework", "Validate", "parameters directory")
	}
	if f.MetricsPort < 0 || f.MetricsPort > 65535 {
		return errors.WrapInvalid(fmt.Errorf("%w: metrics_port %d", errors.ErrInvalidConfig, f.MetricsPort),
			"Framework", "Validate", "metrics port")
	}
	if err := ValidateTopology(f.Cyclers); err != nil {
		return err
	}

	known := make(map[string]bool, len(f.Cyclers))
	for _, c := range f.Cyclers {
		known[c.Name] = true
	}
	for _, name := range f.CyclerInstancesToBeRecorded {
		if !known[name] {
			return errors.WrapInvalid(fmt.Errorf("%w: unknown cycler %q to record", errors.ErrInvalidConfig, name),
				"Framework", "Validate", "recorded cyclers")
		}
	}
	return nil
}

// LoadHardware reads the hardware parameters
func LoadHardware(path string) (*Hardware, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, errors.WrapFatal(err, "config", "LoadHardware", "read hardware parameters")
	}

	var hw Hardware
	if err := json.Unmarshal(data, &hw); err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidConfig, err),
			"config", "LoadHardware", "parse hardware parameters")
	}
	if hw.Backend == "" {
		hw.Backend = "sim"
	}
	return &hw, nil
}

// Duration accepts "500ms"-style strings or integer nanoseconds in JSON
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON parses a string or a number
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(v))
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}
