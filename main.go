package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"finparser/core"
	"finparser/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// exitError carries a specific exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return core.ExitCodeName(e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Use fmt here since logger isn't initialized yet
		fmt.Fprintf(stderr, "Warning: failed to load .env: %v\n", err)
	}

	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return core.ExitCodeSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", ee.err)
		}
		return ee.code
	}
	// Anything cobra rejected before a command ran
	fmt.Fprintf(stderr, "Error: %v\nRun 'finparser --help' for usage.\n", err)
	return core.ExitCodeUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "finparser",
		Short: "Financial PDF Parser",
		Long: `Extracts the standalone financial results table from quarterly report PDFs
and maps it to a fixed set of metrics per company.

Configuration is read from the environment and an optional .env file.
Without a command the web UI and REST API are started.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the web UI and REST API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		newParseCmd(),
		newServiceCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "finparser %s\n", core.GetVersionInfo())
			},
		},
	)
	return root
}

// loadConfigAndLogger is shared by every command that does real work.
func loadConfigAndLogger() (*core.Config, *logging.Logger, error) {
	cfg, err := core.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := setupLogger(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func setupLogger(cfg *core.Config) (*logging.Logger, error) {
	defaultLevel := zapcore.InfoLevel
	if cfg.DevMode {
		defaultLevel = zapcore.DebugLevel
	}
	level := logging.ParseLogLevel(cfg.LogLevel, defaultLevel)

	return logging.NewLoggerWithOptions(logging.Options{
		Development: cfg.DevMode,
		FilePath:    cfg.LogFile,
		Level:       &level,
		FileConfig:  logging.DefaultFileWriterConfig(),
	})
}

// zapFor returns the raw zap logger for infrastructure packages, undoing
// the caller skip that the logging wrapper adds.
func zapFor(logger *logging.Logger) *zap.Logger {
	return logger.Zap().WithOptions(zap.AddCallerSkip(-1))
}

func logConfig(logger *logging.Logger, cfg *core.Config) {
	logger.Info("Configuration loaded",
		zap.String("addr", cfg.Addr()),
		zap.String("upload_dir", cfg.UploadDir),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("storage_dir", cfg.StorageDir),
		zap.String("database", cfg.DatabasePath),
		zap.String("company_config", cfg.CompanyConfigPath),
		zap.Bool("converter", cfg.HasConverter()),
		zap.String("llm_provider", cfg.LLMProvider),
		zap.Bool("ai_enabled", cfg.HasLLM()),
		zap.Int("file_retention_days", cfg.FileRetentionDays),
		zap.Bool("auth_enabled", cfg.WebUIPassword != ""),
		zap.Bool("dev_mode", cfg.DevMode),
	)
}
