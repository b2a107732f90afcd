package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/opsforge/opsforge/pkg/clients"
	"github.com/opsforge/opsforge/pkg/config"
	"github.com/opsforge/opsforge/pkg/history"
	"github.com/opsforge/opsforge/pkg/procedure"
	"github.com/opsforge/opsforge/pkg/telemetry"
)

// runtime holds the wired collaborators for one command invocation.
type runtime struct {
	cfg     *config.Config
	log     *telemetry.Logger
	metrics *telemetry.Metrics
	tracer  *telemetry.Tracer
	store   *history.SQLiteStore

	directory *clients.DirectoryClient
	images    *clients.ImageClient
	topology  *clients.TopologyClient

	engine  *procedure.Engine
	planner *procedure.BootstrapPlanner
}

// newRuntime loads the config and wires the engine and its collaborators.
func newRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := telemetry.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	metrics, err := telemetry.NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress != "" {
		go func() {
			if err := metrics.Serve(); err != nil {
				log.WithError(err).Error("metrics endpoint failed")
			}
		}()
	}

	tracer, err := telemetry.NewTracer(cfg.Tracing, "opsforge", "dev")
	if err != nil {
		return nil, err
	}

	store, err := history.NewSQLiteStore(cfg.HistoryPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}

	directory, err := clients.NewDirectoryClient(cfg.DirectoryURL, nil)
	if err != nil {
		return nil, err
	}
	images, err := clients.NewImageClient(cfg.ImagesURL, nil)
	if err != nil {
		return nil, err
	}
	topology, err := clients.NewTopologyClient(cfg.TopologyURL, nil)
	if err != nil {
		return nil, err
	}

	engine := procedure.NewEngine(history.NewRecorder(store, log), log,
		procedure.WithConcurrency(cfg.Concurrency),
		procedure.WithTopology(topology),
		procedure.WithMetrics(metrics),
		procedure.WithTracer(tracer),
	)

	return &runtime{
		cfg:       cfg,
		log:       log,
		metrics:   metrics,
		tracer:    tracer,
		store:     store,
		directory: directory,
		images:    images,
		topology:  topology,
		engine:    engine,
		planner:   procedure.NewBootstrapPlanner(directory, images),
	}, nil
}

// close releases the runtime's resources.
func (r *runtime) close(ctx context.Context) {
	if r.tracer != nil {
		_ = r.tracer.Shutdown(ctx)
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}

// exactArgs rejects unexpected positional arguments with a usage error
// before any planning happens.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return procedure.NewUsageError("unexpected positional arguments")
		}
		return nil
	}
}

// minArgs requires at least n positional arguments.
func minArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return procedure.NewUsageError("missing required arguments")
		}
		return nil
	}
}
