package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/pkg/worker"
)

// SubjectPrefix is the first token of every telemetry subject
const SubjectPrefix = "hulk"

// FramePublisher sends raw bytes to a subject; natsclient.Client implements it
type FramePublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// PublisherConfig selects which frames are published
type PublisherConfig struct {
	Robot string
	// Cyclers limits publishing to these cyclers; empty publishes all
	Cyclers   []string
	Workers   int
	QueueSize int
	// MaxRate caps the frames per second published for each cycler, measured
	// in cycle time. Zero publishes every frame.
	MaxRate float64
	Burst   int
}

// PublishedFrame is the payload of a telemetry subject. Only main outputs are
// published.
type PublishedFrame struct {
	Robot   string         `json:"robot"`
	Cycler  string         `json:"cycler"`
	Cycle   uint64         `json:"cycle"`
	Time    time.Time      `json:"time"`
	Outputs map[string]any `json:"outputs"`
}

// Subject returns the telemetry subject of a cycler
func Subject(robot, cycler string) string {
	return strings.Join([]string{SubjectPrefix, robot, cycler}, ".")
}

// Publisher publishes main outputs to hulk.<robot>.<cycler> from a worker pool
type Publisher struct {
	client  FramePublisher
	robot   string
	cyclers map[string]bool
	pool    *worker.Pool[Frame]
	metrics *metric.Metrics
	logger  *slog.Logger

	maxRate  rate.Limit
	burst    int
	limitMu  sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ Sink = (*Publisher)(nil)

// NewPublisher creates a publisher. registry can be nil.
func NewPublisher(client FramePublisher, cfg PublisherConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, errors.WrapFatal(fmt.Errorf("%w: publisher client", errors.ErrMissingConfig),
			"Publisher", "NewPublisher", "dependency validation")
	}
	if cfg.Robot == "" || strings.ContainsAny(cfg.Robot, ".*> ") {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: robot name %q is not a subject token", errors.ErrInvalidConfig, cfg.Robot),
			"Publisher", "NewPublisher", "config validation")
	}
	if cfg.MaxRate < 0 {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: negative max rate", errors.ErrInvalidConfig),
			"Publisher", "NewPublisher", "config validation")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Publisher{
		client: client,
		robot:  cfg.Robot,
		logger: logger.With("component", "publisher"),
	}
	if cfg.MaxRate > 0 {
		p.maxRate = rate.Limit(cfg.MaxRate)
		p.burst = cfg.Burst
		p.limiters = make(map[string]*rate.Limiter)
	}
	if len(cfg.Cyclers) > 0 {
		p.cyclers = make(map[string]bool, len(cfg.Cyclers))
		for _, c := range cfg.Cyclers {
			p.cyclers[c] = true
		}
	}

	opts := []worker.Option[Frame]{
		worker.WithErrorHandler(func(frame Frame, err error) {
			p.logger.Debug("Failed to publish frame", "cycler", frame.Cycler, "error", err)
		}),
	}
	if registry != nil {
		p.metrics = registry.CoreMetrics()
		opts = append(opts, worker.WithMetricsRegistry[Frame](registry))
	}

	pool, err := worker.NewPool("publisher", cfg.Workers, cfg.QueueSize, p.publish, opts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "Publisher", "NewPublisher", "create worker pool")
	}
	p.pool = pool
	return p, nil
}

// Start starts the workers
func (p *Publisher) Start(ctx context.Context) error {
	if err := p.pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, "Publisher", "Start", "start worker pool")
	}
	return nil
}

// Emit queues a frame. A full queue drops the frame.
func (p *Publisher) Emit(frame Frame) {
	if p.cyclers != nil && !p.cyclers[frame.Cycler] {
		return
	}
	if len(frame.Outputs) == 0 {
		return
	}
	if !p.allow(frame) {
		if p.metrics != nil {
			p.metrics.RecordTelemetryDropped("publisher_throttled", 1)
		}
		return
	}
	if err := p.pool.Submit(frame); err != nil && p.metrics != nil {
		p.metrics.RecordTelemetryDropped("publisher", 1)
	}
}

func (p *Publisher) allow(frame Frame) bool {
	if p.limiters == nil {
		return true
	}
	p.limitMu.Lock()
	defer p.limitMu.Unlock()
	limiter, ok := p.limiters[frame.Cycler]
	if !ok {
		limiter = rate.NewLimiter(p.maxRate, p.burst)
		p.limiters[frame.Cycler] = limiter
	}
	return limiter.AllowN(frame.Time, 1)
}

func (p *Publisher) publish(ctx context.Context, frame Frame) error {
	data, err := json.Marshal(PublishedFrame{
		Robot:   p.robot,
		Cycler:  frame.Cycler,
		Cycle:   frame.Cycle,
		Time:    frame.Time,
		Outputs: frame.Outputs,
	})
	if err != nil {
		return errors.Wrap(err, "Publisher", "publish", "encode frame")
	}
	if err := p.client.Publish(ctx, Subject(p.robot, frame.Cycler), data); err != nil {
		if p.metrics != nil {
			p.metrics.RecordTelemetryDropped("publisher", 1)
		}
		return errors.Wrap(err, "Publisher", "publish", "publish frame")
	}
	return nil
}

// Stats returns the worker pool statistics
func (p *Publisher) Stats() worker.PoolStats {
	return p.pool.Stats()
}

// Close drains queued frames
func (p *Publisher) Close() error {
	if err := p.pool.Stop(5 * time.Second); err != nil {
		return errors.Wrap(err, "Publisher", "Close", "stop worker pool")
	}
	return nil
}
