package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/pkg/worker"
)

// RecorderConfig selects what is recorded where
type RecorderConfig struct {
	Directory string
	Cyclers   []string
	// Session names the recording; a random id when empty
	Session   string
	QueueSize int
}

// Recorder writes the frames of selected cyclers as JSON lines, one file per
// cycler: <directory>/<cycler>.<session>.jsonl. Emit hands frames to a single
// worker so lines of one cycler stay in cycle order.
type Recorder struct {
	directory string
	session   string
	cyclers   map[string]bool
	pool      *worker.Pool[Frame]
	metrics   *metric.Metrics
	logger    *slog.Logger

	filesMu sync.Mutex
	files   map[string]*os.File

	written atomic.Int64
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates the directory and the worker pool. registry can be nil.
func NewRecorder(cfg RecorderConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (*Recorder, error) {
	if cfg.Directory == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: recording directory", errors.ErrMissingConfig),
			"Recorder", "NewRecorder", "config validation")
	}
	if err := os.MkdirAll(cfg.Directory, 0o755); err != nil {
		return nil, errors.WrapFatal(err, "Recorder", "NewRecorder", "create recording directory")
	}
	if cfg.Session == "" {
		cfg.Session = uuid.NewString()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		directory: cfg.Directory,
		session:   cfg.Session,
		cyclers:   make(map[string]bool, len(cfg.Cyclers)),
		logger:    logger.With("component", "recorder", "session", cfg.Session),
		files:     make(map[string]*os.File),
	}
	for _, c := range cfg.Cyclers {
		r.cyclers[c] = true
	}

	opts := []worker.Option[Frame]{
		worker.WithErrorHandler(func(frame Frame, err error) {
			r.logger.Warn("Failed to record frame", "cycler", frame.Cycler, "cycle", frame.Cycle, "error", err)
		}),
	}
	if registry != nil {
		r.metrics = registry.CoreMetrics()
		opts = append(opts, worker.WithMetricsRegistry[Frame](registry))
	}

	pool, err := worker.NewPool("recorder", 1, cfg.QueueSize, r.record, opts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "Recorder", "NewRecorder", "create worker pool")
	}
	r.pool = pool
	return r, nil
}

// Start starts the writer
func (r *Recorder) Start(ctx context.Context) error {
	if err := r.pool.Start(ctx); err != nil {
		return errors.WrapFatal(err, "Recorder", "Start", "start worker pool")
	}
	r.logger.Info("Recording started", "directory", r.directory, "cyclers", len(r.cyclers))
	return nil
}

// Session returns the recording session id
func (r *Recorder) Session() string {
	return r.session
}

// Path returns the file a cycler is recorded to
func (r *Recorder) Path(cycler string) string {
	return filepath.Join(r.directory, fmt.Sprintf("%s.%s.jsonl", cycler, r.session))
}

// Written returns the number of recorded frames
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Emit queues a frame of a recorded cycler. A full queue drops the frame.
func (r *Recorder) Emit(frame Frame) {
	if !r.cyclers[frame.Cycler] {
		return
	}
	if err := r.pool.Submit(frame); err != nil && r.metrics != nil {
		r.metrics.RecordTelemetryDropped("recorder", 1)
	}
}

func (r *Recorder) record(_ context.Context, frame Frame) error {
	line, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrap(err, "Recorder", "record", "encode frame")
	}

	r.filesMu.Lock()
	defer r.filesMu.Unlock()

	f, ok := r.files[frame.Cycler]
	if !ok {
		f, err = os.OpenFile(r.Path(frame.Cycler), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "Recorder", "record", "open recording file")
		}
		r.files[frame.Cycler] = f
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return errors.Wrap(err, "Recorder", "record", "write frame")
	}
	r.written.Add(1)
	return nil
}

// Close drains queued frames and closes the files
func (r *Recorder) Close() error {
	err := r.pool.Stop(5 * time.Second)

	r.filesMu.Lock()
	defer r.filesMu.Unlock()
	for cycler, f := range r.files {
		err = multierr.Append(err, f.Close())
		delete(r.files, cycler)
	}
	if err != nil {
		return errors.Wrap(err, "Recorder", "Close", "close recording")
	}
	r.logger.Info("Recording stopped", "frames", r.written.Load())
	return nil
}
