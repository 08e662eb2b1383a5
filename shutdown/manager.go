package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"finparser/core"
)

// Manager cancels its context on SIGINT or SIGTERM, exits on the second
// signal, and on Shutdown drains tracked operations before running cleanup.
//
//	m := shutdown.NewManager(logger, shutdown.WithTimeout(30*time.Second))
//	m.Register("database", shutdown.PriorityDatabase, func(ctx context.Context) error {
//		return database.Close()
//	})
//	m.Start()
//	m.Wait()
//	m.Shutdown()
type Manager struct {
	logger    *zap.Logger
	timeout   time.Duration
	forceExit func()

	mu       sync.Mutex
	started  bool
	shutdown bool

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *ShutdownRegistry
	signals  atomic.Int32
	received atomic.Value
	sigChan  chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds the whole shutdown sequence. The default is 60s.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithForceExit replaces the os.Exit(1) run on a second signal.
func WithForceExit(fn func()) ManagerOption {
	return func(m *Manager) {
		m.forceExit = fn
	}
}

// NewManager creates a Manager. Signals are handled only after Start.
func NewManager(logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		logger:    logger.Named("shutdown"),
		timeout:   60 * time.Second,
		forceExit: func() { os.Exit(1) },
		ctx:       ctx,
		cancel:    cancel,
		tracker:   NewOperationTracker(),
		registry:  NewShutdownRegistry(),
		sigChan:   make(chan os.Signal, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Context is cancelled when shutdown is requested.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler; lower priorities run first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Further calls are no-ops.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

// handleSignal cancels the context on the first signal and forces exit on
// the second.
func (m *Manager) handleSignal(sig os.Signal) {
	switch m.signals.Add(1) {
	case 1:
		m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		m.received.Store(sig)
		m.cancel()
	case 2:
		m.logger.Warn("Received second signal, forcing exit")
		m.forceExit()
	}
}

// Signal returns the signal that started shutdown, or nil if shutdown was
// triggered programmatically or has not started.
func (m *Manager) Signal() os.Signal {
	sig, _ := m.received.Load().(os.Signal)
	return sig
}

// Trigger requests shutdown without a signal, as the service manager does.
func (m *Manager) Trigger() {
	m.cancel()
}

// Wait blocks until shutdown is requested.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Shutdown rejects new operations, waits for active ones and runs the
// cleanup handlers with whatever remains of the timeout (at least 1s).
// Only the first call does anything.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.tracker.Close()
	started := m.started
	m.mu.Unlock()

	m.cancel()
	begin := time.Now()
	m.logger.Info("Initiating graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int64("active_operations", m.tracker.ActiveCount()),
		zap.Int("handlers", m.registry.Count()))

	if err := m.tracker.Wait(m.timeout); err != nil {
		m.logger.Warn("Timed out waiting for operations",
			zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(begin)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup handler failed", zap.Error(err))
	}

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}

	m.logger.Info("Shutdown complete",
		zap.Duration("duration", time.Since(begin)),
		zap.Int("errors", len(errs)))
	return errors.Join(errs...)
}

// WrapOperation runs fn as a tracked operation. After shutdown has begun it
// returns ErrTrackerClosed without calling fn.
func (m *Manager) WrapOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.logger.Debug("Operation rejected during shutdown", zap.String("operation", name))
		return ErrTrackerClosed
	}
	defer m.tracker.Done()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// ActiveOperations is the number of operations still running.
func (m *Manager) ActiveOperations() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has begun.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// RegisteredHandlers lists handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
