package telemetry

import (
	"bufio"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/metric"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	return lines
}

func TestRecorder_WritesRecordedCyclersInOrder(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewRecorder(RecorderConfig{Directory: dir, Cyclers: []string{"control"}, Session: "s1"},
		metric.NewMetricsRegistry(), nil)
	require.NoError(t, err)
	require.NoError(t, rec.Start(context.Background()))

	for cycle := uint64(1); cycle <= 20; cycle++ {
		rec.Emit(Frame{
			Cycler:     "control",
			Cycle:      cycle,
			Time:       time.Unix(0, 0).Add(time.Duration(cycle) * 12 * time.Millisecond),
			Outputs:    map[string]any{"fall_state": "upright"},
			Additional: map[string]any{"time_to_reach_kick_position_output": 1.5},
		})
		rec.Emit(Frame{Cycler: "team", Cycle: cycle})
	}
	require.NoError(t, rec.Close())

	assert.Equal(t, int64(20), rec.Written())
	assert.NoFileExists(t, rec.Path("team"))

	lines := readLines(t, rec.Path("control"))
	require.Len(t, lines, 20)
	for i, line := range lines {
		assert.Equal(t, int64(i+1), gjson.Get(line, "cycle").Int())
		assert.Equal(t, "upright", gjson.Get(line, "outputs.fall_state").String())
	}
	assert.Equal(t, 1.5, gjson.Get(lines[0], "additional.time_to_reach_kick_position_output").Float())
	assert.Contains(t, rec.Path("control"), "control.s1.jsonl")
}

func TestRecorder_EmitBeforeStartDrops(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	rec, err := NewRecorder(RecorderConfig{Directory: t.TempDir(), Cyclers: []string{"control"}}, registry, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Session())

	rec.Emit(Frame{Cycler: "control", Cycle: 1})
	require.NoError(t, rec.Close())
	assert.Zero(t, rec.Written())
}

func TestRecorder_RequiresDirectory(t *testing.T) {
	_, err := NewRecorder(RecorderConfig{}, nil, nil)
	assert.True(t, errors.IsInvalid(err))
	assert.ErrorIs(t, err, errors.ErrMissingConfig)
}
