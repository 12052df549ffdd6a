package telemetry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/testutil"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "hulk.nao.control", Subject("nao", "control"))
}

func TestPublisher_PublishesMainOutputs(t *testing.T) {
	client := testutil.NewMockPublisher()
	pub, err := NewPublisher(client, PublisherConfig{Robot: "nao", Cyclers: []string{"control"}, Workers: 1}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, pub.Start(context.Background()))

	pub.Emit(Frame{
		Cycler:     "control",
		Cycle:      7,
		Time:       time.Unix(10, 0),
		Outputs:    map[string]any{"action": "stand"},
		Additional: map[string]any{"debug": 1},
	})
	pub.Emit(Frame{Cycler: "team", Cycle: 1, Outputs: map[string]any{"team_ball": nil}})
	pub.Emit(Frame{Cycler: "control", Cycle: 8})

	require.NoError(t, pub.Close())

	assert.Equal(t, []string{"hulk.nao.control"}, client.Subjects())
	msgs := client.GetMessages("hulk.nao.control")
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(7), gjson.GetBytes(msgs[0], "cycle").Int())
	assert.Equal(t, "stand", gjson.GetBytes(msgs[0], "outputs.action").String())
	assert.False(t, gjson.GetBytes(msgs[0], "additional").Exists())
}

func TestPublisher_FailuresAreCounted(t *testing.T) {
	client := testutil.NewMockPublisher()
	client.PublishErr = stderrors.New("no responders")
	pub, err := NewPublisher(client, PublisherConfig{Robot: "nao"}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, pub.Start(context.Background()))

	pub.Emit(Frame{Cycler: "control", Cycle: 1, Outputs: map[string]any{"action": "stand"}})
	require.NoError(t, pub.Close())

	stats := pub.Stats()
	assert.Equal(t, int64(1), stats.Processed)
	assert.Equal(t, int64(1), stats.Failed)
}

func TestPublisher_ThrottlesPerCycler(t *testing.T) {
	client := testutil.NewMockPublisher()
	registry := metric.NewMetricsRegistry()
	pub, err := NewPublisher(client, PublisherConfig{Robot: "nao", MaxRate: 10, QueueSize: 256}, registry, nil)
	require.NoError(t, err)
	require.NoError(t, pub.Start(context.Background()))

	// 1.2s of control cycles at 12ms, and one team frame
	start := time.Unix(100, 0)
	for i := 0; i < 100; i++ {
		pub.Emit(Frame{Cycler: "control", Cycle: uint64(i), Time: start.Add(time.Duration(i) * 12 * time.Millisecond),
			Outputs: map[string]any{"action": "stand"}})
	}
	pub.Emit(Frame{Cycler: "team", Cycle: 1, Time: start, Outputs: map[string]any{"team_ball": nil}})
	require.NoError(t, pub.Close())

	control := client.GetMessageCount("hulk.nao.control")
	assert.InDelta(t, 12, control, 1, "about 10 frames per second of cycle time")
	assert.Equal(t, 1, client.GetMessageCount("hulk.nao.team"), "other cyclers have their own budget")

	throttled := testutil.ToFloat64(registry.CoreMetrics().TelemetryDropped.WithLabelValues("publisher_throttled"))
	assert.Equal(t, float64(100-control), throttled)
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(nil, PublisherConfig{Robot: "nao"}, nil, nil)
	assert.True(t, errors.IsFatal(err))

	_, err = NewPublisher(testutil.NewMockPublisher(), PublisherConfig{Robot: "nao.1"}, nil, nil)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewPublisher(testutil.NewMockPublisher(), PublisherConfig{Robot: "nao", MaxRate: -1}, nil, nil)
	assert.True(t, errors.IsInvalid(err))
}
