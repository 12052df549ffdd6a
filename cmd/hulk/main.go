// Package main implements the hulk robot runtime. It loads the framework and
// hardware parameters, opens the hardware backend, wires telemetry and runs
// the cyclers until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/execution"
	"github.com/c360/semstreams-robotics/hardware"
	"github.com/c360/semstreams-robotics/health"
	"github.com/c360/semstreams-robotics/metric"
	"github.com/c360/semstreams-robotics/natsclient"
	"github.com/c360/semstreams-robotics/node"
	"github.com/c360/semstreams-robotics/noderegistry"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/pkg/retry"
	"github.com/c360/semstreams-robotics/store"
	"github.com/c360/semstreams-robotics/telemetry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "hulk"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(os.Args[1:]); err != nil {
		slog.Error("Application failed", "error", err, "fatal", errors.IsFatal(err), "exit_code", 1)
		os.Exit(1)
	}
}

// closers collects the resources opened during startup. They are closed in
// reverse order.
type closers struct {
	fns []func() error
}

func (c *closers) add(fn func() error) {
	c.fns = append(c.fns, fn)
}

func (c *closers) close() error {
	var err error
	for i := len(c.fns) - 1; i >= 0; i-- {
		err = multierr.Append(err, c.fns[i]())
	}
	return err
}

func run(args []string) (err error) {
	cliCfg, err := parseFlags(flag.NewFlagSet(appName, flag.ContinueOnError), args)
	if err == flag.ErrHelp {
		return nil
	}
	if err != nil {
		return err
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s (%s)\n", appName, Version, BuildTime)
		return nil
	}

	logger, logFile, err := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat, cliCfg.LogPath)
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	slog.SetDefault(logger)

	res := &closers{}
	res.add(logFile.Close)
	defer func() {
		err = multierr.Append(err, res.close())
	}()

	logger.Info("Starting hulk",
		"version", Version,
		"build_time", BuildTime,
		"framework_parameters", cliCfg.FrameworkParametersPath)

	fw, err := config.LoadFramework(cliCfg.FrameworkParametersPath)
	if err != nil {
		return err
	}
	hwCfg, err := config.LoadHardware(fw.HardwareParameters)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.RealClock{}
	hw, err := connectHardware(ctx, hwCfg, clk, logger)
	if err != nil {
		return err
	}
	res.add(hw.Close)

	ids := hw.IDs()
	logger.Info("Robot identified", "body_id", ids.BodyID, "head_id", ids.HeadID, "robot", fw.RobotName)

	tree, err := parameters.Load(fw.ParametersDirectory, ids.BodyID, ids.HeadID)
	if err != nil {
		return err
	}

	registry := metric.NewMetricsRegistry()
	metrics := registry.CoreMetrics()
	monitor := health.NewMonitor(appName)

	sinks := telemetry.Sinks{}
	if fw.NATSURL != "" {
		publisher, err := setupNATS(ctx, fw, tree, registry, monitor, res, logger)
		if err != nil {
			return err
		}
		sinks = append(sinks, publisher)
	}

	if fw.MetricsPort > 0 {
		metricsServer := metric.NewServer(fw.MetricsPort, "/metrics", registry, monitor)
		if err := metricsServer.Start(); err != nil {
			return err
		}
		res.add(func() error {
			stopCtx, cancel := context.WithTimeout(context.Background(), cliCfg.ShutdownTimeout)
			defer cancel()
			return metricsServer.Stop(stopCtx)
		})
		logger.Info("Metrics server started", "address", metricsServer.Address())
	}

	st := store.New(store.WithClock(clk))
	hub := telemetry.NewHub(metrics)
	sinks = append(sinks, hub)

	if len(fw.CyclerInstancesToBeRecorded) > 0 {
		recorder, err := telemetry.NewRecorder(telemetry.RecorderConfig{
			Directory: cliCfg.LogPath,
			Cyclers:   fw.CyclerInstancesToBeRecorded,
		}, registry, logger)
		if err != nil {
			return err
		}
		if err := recorder.Start(ctx); err != nil {
			return err
		}
		sinks = append(sinks, recorder)
		logger.Info("Recording cyclers", "cyclers", fw.CyclerInstancesToBeRecorded, "session", recorder.Session())
	}
	res.add(sinks.Close)

	if fw.CommunicationAddresses != "" {
		server := telemetry.NewServer(fw.CommunicationAddresses, hub, st, logger)
		if err := server.Start(); err != nil {
			return err
		}
		res.add(func() error { return server.Stop(cliCfg.ShutdownTimeout) })
		logger.Info("Telemetry server started", "address", server.Address())
	}

	nodes := node.NewRegistry()
	if err := noderegistry.Register(nodes, nil); err != nil {
		return err
	}

	rt, err := execution.New(fw.Cyclers, execution.Dependencies{
		Hardware:      hw,
		Registry:      nodes,
		Store:         st,
		Parameters:    tree,
		Sink:          sinks,
		Subscriptions: sinks,
		Metrics:       metrics,
		Health:        monitor,
		Logger:        logger,
		Clock:         clk,
	})
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		analysis := rt.Analysis()
		logger.Info("Topology is valid",
			"cyclers", len(rt.Cyclers()),
			"edges", len(analysis.Edges),
			"status", analysis.ValidationStatus)
		return nil
	}

	logger.Info("hulk started", "cyclers", len(rt.Cyclers()))
	if err := rt.Run(ctx); err != nil {
		return err
	}
	logger.Info("Received shutdown signal, closing resources")
	return nil
}

// connectHardware opens the backend, retrying transient failures
func connectHardware(ctx context.Context, cfg *config.Hardware, clk clock.WithTicker, logger *slog.Logger) (hardware.Interface, error) {
	logger.Info("Opening hardware backend", "backend", cfg.Backend)
	return retry.DoWithResult(ctx, retry.DefaultConfig(), func() (hardware.Interface, error) {
		hw, err := openBackend(cfg, clk)
		if err != nil {
			logger.Warn("Hardware backend not available", "backend", cfg.Backend, "error", err)
		}
		return hw, err
	})
}

// setupNATS connects to NATS, starts the parameter watcher and returns the
// telemetry publisher. A robot without NATS keeps running on the local
// parameter files, so connection failures are logged, not returned.
func setupNATS(
	ctx context.Context,
	fw *config.Framework,
	tree *parameters.Tree,
	registry *metric.MetricsRegistry,
	monitor *health.Monitor,
	res *closers,
	logger *slog.Logger,
) (telemetry.Sink, error) {
	client, err := natsclient.NewClient(fw.NATSURL,
		natsclient.WithName(appName+"-"+fw.RobotName),
		natsclient.WithLogger(logger),
		natsclient.WithMetrics(registry.CoreMetrics()),
		natsclient.WithHealthChange(func(healthy bool) {
			if healthy {
				monitor.UpdateHealthy("nats", "connected")
			} else {
				monitor.UpdateDegraded("nats", "disconnected")
			}
		}))
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		logger.Warn("NATS unavailable, continuing without live parameters and publishing",
			"url", fw.NATSURL, "error", err)
		return telemetry.Discard{}, nil
	}
	res.add(func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return client.Close(closeCtx)
	})

	kv, err := client.KeyValue(ctx, parameters.BucketConfig())
	if err != nil {
		logger.Warn("Parameter bucket unavailable", "bucket", parameters.BucketName, "error", err)
	} else {
		watcher, err := parameters.NewKVWatcher(kv, tree, logger)
		if err != nil {
			return nil, err
		}
		if err := watcher.Start(ctx); err != nil {
			return nil, err
		}
		res.add(func() error { return watcher.Stop(5 * time.Second) })
	}

	publisher, err := telemetry.NewPublisher(client, telemetry.PublisherConfig{Robot: fw.RobotName, MaxRate: fw.PublishRate}, registry, logger)
	if err != nil {
		return nil, err
	}
	if err := publisher.Start(ctx); err != nil {
		return nil, err
	}
	return publisher, nil
}
