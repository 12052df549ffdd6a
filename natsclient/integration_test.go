//go:build integration

package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semstreams-robotics/metric"
)

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()
	require.True(t, tc.Client.IsHealthy())

	var (
		mu       sync.Mutex
		received [][]byte
	)
	require.NoError(t, tc.Client.Subscribe(ctx, "hulk.nao.*", func(_ context.Context, data []byte) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, data)
	}))

	require.NoError(t, tc.Client.Publish(ctx, "hulk.nao.control", []byte(`{"cycle":1}`)))
	require.NoError(t, tc.Client.Publish(ctx, "hulk.other.control", []byte(`{"cycle":2}`)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 5*time.Second, 10*time.Millisecond)

	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Positive(t, rtt)
}

func TestIntegration_KeyValueIsCreatedOnce(t *testing.T) {
	tc := NewTestClient(t, WithJetStream())
	ctx := context.Background()
	cfg := jetstream.KeyValueConfig{Bucket: "hulk_test", History: 2}

	kv, err := tc.Client.KeyValue(ctx, cfg)
	require.NoError(t, err)
	_, err = kv.Put(ctx, "behavior.walking.speed", []byte("0.3"))
	require.NoError(t, err)

	again, err := tc.Client.KeyValue(ctx, cfg)
	require.NoError(t, err)
	entry, err := again.Get(ctx, "behavior.walking.speed")
	require.NoError(t, err)
	assert.Equal(t, "0.3", string(entry.Value()))
}

func TestIntegration_ConnectionMetric(t *testing.T) {
	tc := NewTestClient(t)
	registry := metric.NewMetricsRegistry()

	client, err := NewClient(tc.URL, WithMetrics(registry.CoreMetrics()))
	require.NoError(t, err)
	require.NoError(t, client.Connect(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().NATSConnected))

	require.NoError(t, client.Close(context.Background()))
	assert.Equal(t, 0.0, testutil.ToFloat64(registry.CoreMetrics().NATSConnected))
}
