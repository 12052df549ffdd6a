// Package natsclient manages the optional NATS connection of the runtime.
//
// The robot runs without NATS; when a URL is configured the client carries
// live parameter overrides from a JetStream KV bucket and telemetry frames on
// hulk.<robot>.<cycler> subjects. Connecting retries with exponential backoff
// at startup only. Once connected, reconnection is left to nats.go and the
// connection state is mirrored into the hulk_nats_connected gauge.
//
// Basic usage:
//
//	client, err := natsclient.NewClient(url, natsclient.WithName("hulk-nao"))
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	kv, err := client.KeyValue(ctx, parameters.BucketConfig())
//
// For tests, NewTestClient starts a NATS server in a container through
// testcontainers-go.
package natsclient
