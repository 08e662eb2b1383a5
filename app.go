package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/core/validation"
	"finparser/db"
	"finparser/excelgen"
	"finparser/filestore"
	"finparser/logging"
	"finparser/metrics"
	"finparser/pipeline"
	"finparser/shutdown"
	"finparser/webui"
	"finparser/webui/auth"
)

// recentTaskCapacity bounds the task history shown by /api/stats.
const recentTaskCapacity = 200

// runServe runs the server in the foreground until SIGINT or SIGTERM.
func runServe() error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return withExitCode(core.ExitCodeError, err)
	}

	mgr := shutdown.NewManager(zapFor(logger), shutdown.WithTimeout(cfg.ShutdownTimeout+10*time.Second))
	mgr.Start()

	if err := serve(cfg, logger, mgr); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		logger.Sync()
		return withExitCode(core.ExitCodeError, err)
	}
	if sig := mgr.Signal(); sig != nil {
		return withExitCode(core.SignalExitCode(sig), nil)
	}
	return nil
}

// serve validates the environment, builds the server and blocks until the
// manager's context is cancelled. It always runs the shutdown sequence.
func serve(cfg *core.Config, logger *logging.Logger, mgr *shutdown.Manager) error {
	logConfig(logger, cfg)
	mgr.Register("logger", shutdown.PriorityLogger, func(context.Context) error {
		logger.Sync()
		return nil
	})

	if err := runStartupValidation(mgr.Context(), cfg, logger, progressOutput()); err != nil {
		mgr.Shutdown()
		return err
	}

	srv, err := buildServer(mgr.Context(), cfg, logger, mgr)
	if err != nil {
		mgr.Shutdown()
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(mgr.Context()) }()
	logger.Info("Financial PDF Parser ready",
		zap.String("url", fmt.Sprintf("http://%s", cfg.Addr())),
		zap.String("version", core.GetVersion()))

	select {
	case <-mgr.Context().Done():
	case err = <-errCh:
	}

	if shutdownErr := mgr.Shutdown(); shutdownErr != nil {
		logger.Warn("Shutdown completed with errors", zap.Error(shutdownErr))
	}
	logger.Info("Goodbye!")
	return err
}

// runStartupValidation runs the startup checks, printing progress to out
// when it is non-nil. Failures abort startup; warnings are only logged.
func runStartupValidation(ctx context.Context, cfg *core.Config, logger *logging.Logger, out io.Writer) error {
	suite := validation.StartupSuite(cfg, nil)
	if out == nil {
		suite.WithShowProgress(false)
	} else {
		suite.WithOutput(out)
	}
	result := suite.Run(ctx)

	for _, step := range result.Steps {
		switch step.Status {
		case validation.StepFailed:
			logger.Error("Validation step failed",
				zap.String("step", step.Name),
				zap.String("message", step.Message),
				zap.Error(step.Error))
		case validation.StepWarning:
			logger.Warn("Validation warning",
				zap.String("step", step.Name),
				zap.String("message", step.Message))
		}
	}

	if !result.Success {
		logger.Error("Startup validation failed", zap.String("summary", result.Summary()))
		return fmt.Errorf("startup validation failed: %w", errors.Join(result.Errors()...))
	}
	logger.Info("Startup validation passed",
		zap.String("summary", result.Summary()),
		zap.Int("checks_passed", result.Passed),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration))
	return nil
}

// progressOutput is where startup checks print. Services have no terminal.
func progressOutput() io.Writer {
	if service.Interactive() {
		return os.Stdout
	}
	return nil
}

// buildServer opens storage, wires the pipeline and registers cleanup
// handlers on mgr in the order they must run.
func buildServer(ctx context.Context, cfg *core.Config, logger *logging.Logger, mgr *shutdown.Manager) (*webui.Server, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	mgr.Register("database", shutdown.PriorityDatabase, func(context.Context) error {
		return database.Close()
	})
	logger.Info("Database ready", zap.String("path", database.Path()))

	files, err := filestore.NewManager(cfg.StorageDir, db.NewRepository(database), logger)
	if err != nil {
		return nil, err
	}

	processor, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	deps := webui.Deps{
		Processor: processor,
		Results:   pipeline.NewResults(cfg.OutputDir, processor.Config()),
		Generator: excelgen.NewGenerator(logger),
		Files:     files,
		Metrics:   metrics.NewRecorder(metrics.NewMetricsStore(recentTaskCapacity, core.GetVersion())),
		Runner:    mgr,
	}
	if cfg.WebUIPassword != "" {
		basic, err := auth.NewBasicAuth(cfg.WebUIPassword, zapFor(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to configure authentication: %w", err)
		}
		basic.Limiter().StartCleanupTicker(ctx, 5*time.Minute)
		deps.Auth = basic
	}

	serverCfg := webui.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.UploadDir = cfg.UploadDir
	serverCfg.MaxUploadBytes = cfg.MaxUploadBytes
	serverCfg.ShutdownTimeout = cfg.ShutdownTimeout

	srv, err := webui.NewServer(serverCfg, deps, zapFor(logger))
	if err != nil {
		return nil, err
	}
	mgr.Register("http-server", shutdown.PriorityHTTPServer, srv.Shutdown)

	cleanupDone := files.StartCleanupScheduler(ctx, filestore.SchedulerConfig{
		Retention: time.Duration(cfg.FileRetentionDays) * 24 * time.Hour,
		Interval:  cfg.CleanupInterval,
		OnCleanup: func(result filestore.CleanupResult, err error) {
			if err != nil || result.Deleted == 0 {
				return
			}
			if err := database.Vacuum(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Database vacuum failed", zap.Error(err))
			}
		},
	})
	mgr.Register("cleanup-scheduler", shutdown.PriorityScheduler, func(ctx context.Context) error {
		select {
		case <-cleanupDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	mgr.Register("cleanup-uploads", shutdown.PriorityUploads, shutdown.CleanupUploads(zapFor(logger), cfg.UploadDir))

	return srv, nil
}
