package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFramework_Defaults(t *testing.T) {
	path := writeFile(t, "framework.json", `{
		"hardware_parameters": "etc/parameters/hardware.json",
		"communication_addresses": "[::]:1337",
		"parameters_directory": "etc/parameters",
		"cycler_instances_to_be_recorded": ["control"]
	}`)

	fw, err := LoadFramework(path)
	require.NoError(t, err)
	assert.Equal(t, "etc/parameters/hardware.json", fw.HardwareParameters)
	assert.Equal(t, "[::]:1337", fw.CommunicationAddresses)
	assert.Equal(t, "nao", fw.RobotName)
	assert.Equal(t, DefaultTopology(), fw.Cyclers)
}

func TestLoadFramework_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"malformed", `{"hardware_parameters": `, nil},
		{"missing hardware", `{"parameters_directory": "p"}`, errors.ErrMissingConfig},
		{"missing parameters", `{"hardware_parameters": "h"}`, errors.ErrMissingConfig},
		{"bad port", `{"hardware_parameters": "h", "parameters_directory": "p", "metrics_port": 70000}`, errors.ErrInvalidConfig},
		{"unknown key", `{"hardware_parameters": "h", "parameters_directory": "p", "metric_port": 9090}`, errors.ErrInvalidConfig},
		{"wrong type", `{"hardware_parameters": "h", "parameters_directory": "p", "metrics_port": "9090"}`, errors.ErrInvalidConfig},
		{"robot name with dots", `{"hardware_parameters": "h", "parameters_directory": "p", "robot_name": "nao.1"}`, errors.ErrInvalidConfig},
		{"cycler without trigger", `{"hardware_parameters": "h", "parameters_directory": "p", "cyclers": [{"name": "a", "nodes": []}]}`, errors.ErrInvalidConfig},
		{"unknown recorded cycler", `{"hardware_parameters": "h", "parameters_directory": "p", "cycler_instances_to_be_recorded": ["vision"]}`, errors.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFramework(writeFile(t, "framework.json", tt.content))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}

	_, err := LoadFramework(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestLoadFramework_TopologyOverride(t *testing.T) {
	path := writeFile(t, "framework.json", `{
		"hardware_parameters": "h",
		"parameters_directory": "p",
		"cyclers": [
			{"name": "fast", "trigger": {"kind": "periodic", "period": "10ms"}, "owns_time": true, "nodes": ["a"]}
		]
	}`)

	fw, err := LoadFramework(path)
	require.NoError(t, err)
	require.Len(t, fw.Cyclers, 1)
	assert.Equal(t, 10*time.Millisecond, fw.Cyclers[0].Trigger.Period.Std())
}

func TestValidateTopology(t *testing.T) {
	valid := func() []CyclerConfig { return DefaultTopology() }
	require.NoError(t, ValidateTopology(valid()))

	tests := []struct {
		name   string
		mutate func([]CyclerConfig) []CyclerConfig
	}{
		{"empty", func([]CyclerConfig) []CyclerConfig { return nil }},
		{"duplicate name", func(c []CyclerConfig) []CyclerConfig { c[1].Name = c[0].Name; return c }},
		{"no nodes", func(c []CyclerConfig) []CyclerConfig { c[0].Nodes = nil; return c }},
		{"no event", func(c []CyclerConfig) []CyclerConfig { c[0].Trigger.Event = ""; return c }},
		{"no period", func(c []CyclerConfig) []CyclerConfig { c[2].Trigger.Period = 0; return c }},
		{"unknown trigger", func(c []CyclerConfig) []CyclerConfig { c[0].Trigger.Kind = "interrupt"; return c }},
		{"no time owner", func(c []CyclerConfig) []CyclerConfig { c[1].OwnsTime = false; return c }},
		{"two time owners", func(c []CyclerConfig) []CyclerConfig { c[0].OwnsTime = true; return c }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTopology(tt.mutate(valid()))
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestDuration_JSON(t *testing.T) {
	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"1.5s"`), &d))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	require.NoError(t, json.Unmarshal([]byte(`1000`), &d))
	assert.Equal(t, time.Microsecond, d.Std())

	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))

	out, err := json.Marshal(Duration(2 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"2s"`, string(out))
}

func TestReadDocument_Formats(t *testing.T) {
	jsonDoc, err := ReadDocument(writeFile(t, "a.json", `{"a": {"b": 1}}`))
	require.NoError(t, err)
	yamlDoc, err := ReadDocument(writeFile(t, "a.yaml", "a:\n  b: 1\n"))
	require.NoError(t, err)

	assert.Contains(t, jsonDoc, "a")
	assert.Contains(t, yamlDoc, "a")

	_, err = ReadDocument(writeFile(t, "a.toml", "a = 1"))
	assert.Error(t, err)

	deep := strings.Repeat("[", maxJSONDepth+1) + strings.Repeat("]", maxJSONDepth+1)
	_, err = ReadDocument(writeFile(t, "deep.json", deep))
	assert.Error(t, err)
}

func TestDeepMerge(t *testing.T) {
	base := map[string]any{"a": map[string]any{"b": 1, "c": 2}, "keep": true}
	override := map[string]any{"a": map[string]any{"c": 3}, "new": "x", "keep": nil}

	merged := DeepMerge(base, override)
	assert.Equal(t, map[string]any{
		"a":    map[string]any{"b": 1, "c": 3},
		"keep": true,
		"new":  "x",
	}, merged)
	assert.Equal(t, 2, base["a"].(map[string]any)["c"], "base untouched")
}

func TestLoadHardware(t *testing.T) {
	hw, err := LoadHardware(writeFile(t, "hardware.json", `{"sim": {"ball": {"x": 1}}}`))
	require.NoError(t, err)
	assert.Equal(t, "sim", hw.Backend)
	assert.JSONEq(t, `{"ball": {"x": 1}}`, string(hw.Sim))
}
