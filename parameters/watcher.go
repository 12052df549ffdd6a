package parameters

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/semstreams-robotics/errors"
)

// BucketName is the KV bucket holding live parameter overrides
const BucketName = "hulk_parameters"

// BucketConfig describes the parameter bucket
func BucketConfig() jetstream.KeyValueConfig {
	return jetstream.KeyValueConfig{
		Bucket:      BucketName,
		Description: "Live parameter overrides, key is the dotted parameter path",
		History:     5,
	}
}

// KVWatcher applies NATS KV entries to a parameter tree. Keys are dotted
// parameter paths, values are JSON documents.
type KVWatcher struct {
	kv     jetstream.KeyValue
	tree   *Tree
	logger *slog.Logger

	watcher    jetstream.KeyWatcher
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	started    atomic.Bool
	stopped    atomic.Bool
	applied    atomic.Int64
	ready      chan struct{}
	readyOnce  sync.Once
}

// NewKVWatcher creates a watcher for the given bucket
func NewKVWatcher(kv jetstream.KeyValue, tree *Tree, logger *slog.Logger) (*KVWatcher, error) {
	if kv == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: nil key value bucket", errors.ErrInvalidConfig),
			"KVWatcher", "New", "bucket validation")
	}
	if tree == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: nil parameter tree", errors.ErrInvalidConfig),
			"KVWatcher", "New", "tree validation")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KVWatcher{
		kv:         kv,
		tree:       tree,
		logger:     logger.With("component", "parameter_watcher", "bucket", BucketName),
		shutdownCh: make(chan struct{}),
		ready:      make(chan struct{}),
	}, nil
}

// Start begins watching. Existing keys are applied first.
func (w *KVWatcher) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "KVWatcher", "Start", "state check")
	}

	watcher, err := w.kv.WatchAll(ctx)
	if err != nil {
		return errors.WrapTransient(err, "KVWatcher", "Start", "watch bucket")
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.processWatcher(ctx)
	return nil
}

// Ready is closed once the initial values of the bucket have been applied
func (w *KVWatcher) Ready() <-chan struct{} {
	return w.ready
}

// Applied returns the number of entries applied so far
func (w *KVWatcher) Applied() int64 {
	return w.applied.Load()
}

// Stop stops watching and waits for the loop to exit
func (w *KVWatcher) Stop(timeout time.Duration) error {
	if !w.stopped.CompareAndSwap(false, true) {
		return nil
	}
	close(w.shutdownCh)
	if w.watcher != nil {
		_ = w.watcher.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.WrapTransient(errors.ErrConnectionTimeout, "KVWatcher", "Stop", "wait for watcher")
	}
}

func (w *KVWatcher) processWatcher(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdownCh:
			return
		case entry, ok := <-w.watcher.Updates():
			if !ok {
				return
			}
			// nil marks the end of the initial values
			if entry == nil {
				w.readyOnce.Do(func() { close(w.ready) })
				continue
			}
			if err := w.apply(entry); err != nil {
				w.logger.Warn("Failed to apply parameter update",
					"key", entry.Key(),
					"revision", entry.Revision(),
					"error", err)
				continue
			}
			w.applied.Add(1)
			w.logger.Debug("Applied parameter update",
				"key", entry.Key(),
				"revision", entry.Revision(),
				"version", w.tree.Snapshot().Version())
		}
	}
}

func (w *KVWatcher) apply(entry jetstream.KeyValueEntry) error {
	switch entry.Operation() {
	case jetstream.KeyValuePut:
		return w.tree.Set(entry.Key(), entry.Value())
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		return w.tree.Delete(entry.Key())
	default:
		return nil
	}
}
