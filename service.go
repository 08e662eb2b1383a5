package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/logging"
	"finparser/shutdown"
)

// Program runs the server under the platform service manager.
type Program struct {
	mu      sync.Mutex
	mgr     *shutdown.Manager
	logger  *logging.Logger
	timeout time.Duration
	exit    chan struct{}
	err     error
}

// Start loads configuration and runs the server in the background. It must
// not block.
func (p *Program) Start(s service.Service) error {
	cfg, logger, err := loadConfigAndLogger()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger = logger
	p.timeout = cfg.ShutdownTimeout + 10*time.Second
	p.mgr = shutdown.NewManager(zapFor(logger), shutdown.WithTimeout(p.timeout))
	p.exit = make(chan struct{})

	go p.run(cfg)
	return nil
}

func (p *Program) run(cfg *core.Config) {
	defer close(p.exit)
	if err := serve(cfg, p.logger, p.mgr); err != nil {
		p.err = err
		p.logger.Error("Service stopped with error", zap.Error(err))
		p.logger.Sync()
		if !service.Interactive() {
			os.Exit(core.ExitCodeError)
		}
	}
}

// Stop asks the server to shut down and waits for it.
func (p *Program) Stop(s service.Service) error {
	p.mu.Lock()
	mgr, exit, timeout := p.mgr, p.exit, p.timeout
	p.mu.Unlock()
	if mgr == nil {
		return nil
	}

	mgr.Trigger()
	select {
	case <-exit:
		return p.err
	case <-time.After(timeout + 10*time.Second):
		return fmt.Errorf("timeout waiting for service to stop")
	}
}

// ServiceConfig describes the installed service. It runs `finparser service
// run` from the directory the install command was issued in, so relative
// paths and the .env file resolve the same way as in the foreground.
func ServiceConfig() *service.Config {
	wd, _ := os.Getwd()
	return &service.Config{
		Name:             "finparser",
		DisplayName:      "Financial PDF Parser",
		Description:      "Extracts standalone financial results from quarterly report PDFs",
		Arguments:        []string{"service", "run"},
		WorkingDirectory: wd,
		Option: service.KeyValue{
			"StartType": "automatic",
		},
	}
}

func newService() (service.Service, error) {
	s, err := service.New(&Program{}, ServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return s, nil
}

// statusText renders a service status for the status command.
func statusText(status service.Status) string {
	switch status {
	case service.StatusRunning:
		return "Service is running"
	case service.StatusStopped:
		return "Service is stopped"
	default:
		return "Service status unknown"
	}
}

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the background service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// install, uninstall, start, stop and restart map onto service.Control
	actions := []struct{ name, short, done string }{
		{"install", "Install the application as a system service", "installed"},
		{"uninstall", "Remove the system service", "uninstalled"},
		{"start", "Start the system service", "started"},
		{"stop", "Stop the system service", "stopped"},
		{"restart", "Restart the system service", "restarted"},
	}
	for _, a := range actions {
		sub := &cobra.Command{
			Use:   a.name,
			Short: a.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService()
				if err != nil {
					return withExitCode(core.ExitCodeError, err)
				}
				if err := service.Control(s, a.name); err != nil {
					return withExitCode(core.ExitCodeError, fmt.Errorf("failed to %s service: %w", a.name, err))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Service %s successfully\n", a.done)
				return nil
			},
		}
		if a.name == "uninstall" {
			sub.Aliases = []string{"remove"}
		}
		cmd.AddCommand(sub)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "Show the current service status",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService()
				if err != nil {
					return withExitCode(core.ExitCodeError, err)
				}
				status, err := s.Status()
				if err != nil {
					return withExitCode(core.ExitCodeError, fmt.Errorf("failed to get service status: %w", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), statusText(status))
				return nil
			},
		},
		&cobra.Command{
			Use:    "run",
			Short:  "Run under the service manager",
			Hidden: true,
			Args:   cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				s, err := newService()
				if err != nil {
					return withExitCode(core.ExitCodeError, err)
				}
				if err := s.Run(); err != nil {
					return withExitCode(core.ExitCodeError, fmt.Errorf("service run failed: %w", err))
				}
				return nil
			},
		},
	)
	return cmd
}
