package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/bstolzenburg/Ag-Methane-Programs/internal/config"
	"github.com/bstolzenburg/Ag-Methane-Programs/internal/infrastructure"
)

// VERSION is reported in the startup log line
const VERSION = "1.0.0"

// Options tweak how a tool is bootstrapped
type Options struct {
	// ConfigFile is read instead of the default locations when set
	ConfigFile string
	// LogLevel overrides the configured level when set
	LogLevel string
	In       io.Reader
	Out      io.Writer
}

// Application is the shared container every command builds on startup
type Application struct {
	Tool      string
	Config    *config.Config
	Paths     *config.Paths
	Logger    *slog.Logger
	Telemetry *infrastructure.Telemetry
	Prompter  *Prompter
	Out       io.Writer
	RunID     string

	ctx context.Context
}

// New loads configuration, resolves paths and starts logging and telemetry for tool
func New(tool string, opts Options) (*Application, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	// a relative log file lives in the logs directory, wherever the tool was started
	if !filepath.IsAbs(cfg.Logging.FilePath) {
		cfg.Logging.FilePath = paths.GetLogPath(filepath.Base(cfg.Logging.FilePath))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = infrastructure.WithComponent(logger, tool)

	ctx := infrastructure.NewRunContext(context.Background())
	runID := infrastructure.GetTraceID(ctx)

	logger.InfoContext(ctx, "Tool starting",
		slog.String("tool", tool),
		slog.String("version", VERSION))
	paths.LogPathResolution(logger)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, tool, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	in, out := opts.In, opts.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	return &Application{
		Tool:      tool,
		Config:    cfg,
		Paths:     paths,
		Logger:    logger,
		Telemetry: telemetry,
		Prompter:  NewPrompter(in, out),
		Out:       out,
		RunID:     runID,
		ctx:       ctx,
	}, nil
}

// Context returns the run context: it carries the run ID and is cancelled on
// SIGINT or SIGTERM. Call the returned stop function when done.
func (a *Application) Context() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM)
}

// Metrics returns the pipeline counters for this run
func (a *Application) Metrics() *infrastructure.PipelineMetrics {
	if a.Telemetry == nil {
		return nil
	}
	return a.Telemetry.Metrics
}

// Run executes fn inside a root span and records the outcome
func (a *Application) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, span := a.Telemetry.StartSpan(ctx, a.Tool, attribute.String("tool", a.Tool))
	defer span.End()

	err := fn(ctx)
	a.Metrics().ObserveStage(ctx, "run", start)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		a.Metrics().AddError(ctx, "run")
		a.Logger.ErrorContext(ctx, "Tool failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)))
		return err
	}

	a.Metrics().MarkSuccess(ctx)
	a.Logger.InfoContext(ctx, "Tool finished",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// Printf writes an operator-facing progress line
func (a *Application) Printf(format string, args ...interface{}) {
	fmt.Fprintf(a.Out, format, args...)
}

// Close flushes telemetry and closes the log file
func (a *Application) Close() error {
	var firstErr error
	if err := a.Telemetry.Shutdown(context.Background()); err != nil {
		a.Logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		firstErr = err
	}
	if err := infrastructure.CloseLogFile(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
