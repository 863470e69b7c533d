package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/logging"
)

// Manager ties signal handling to a cancellable context and a cleanup
// registry.
//
//	manager := shutdown.NewManager(logger)
//	manager.Register("database", 10, func(ctx context.Context) error {
//	    return database.Close()
//	})
//	manager.Start()
//	result, err := orch.Run(manager.Context(), ...)
//	manager.Shutdown()
//	os.Exit(manager.ExitCode(code))
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration
	exit    func(code int)

	mu       sync.Mutex
	started  bool
	shutdown bool
	received os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout bounds the cleanup phase. Default is 10 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithExitFunc replaces os.Exit for the forced exit on a second signal.
func WithExitFunc(exit func(code int)) ManagerOption {
	return func(m *Manager) {
		m.exit = exit
	}
}

// NewManager creates a Manager. A nil logger discards output.
func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:   logger.Named("shutdown"),
		timeout:  10 * time.Second,
		exit:     os.Exit,
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 2),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, exiting immediately")
		m.exit(m.signalExitCode())
	})
	return m
}

// Context is cancelled by the first SIGINT or SIGTERM.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function. Lower priorities run first.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start listens for SIGINT and SIGTERM. Calling it twice is a no-op.
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
			m.handle(sig)
		}
	}()
}

// Notify delivers sig as if it had come from the OS.
func (m *Manager) Notify(sig os.Signal) {
	m.handle(sig)
}

func (m *Manager) handle(sig os.Signal) {
	m.mu.Lock()
	if m.received == nil {
		m.received = sig
	}
	m.mu.Unlock()

	if m.signals.Increment() == 1 {
		m.logger.Info("Received signal, stopping after the current topic",
			zap.String("signal", sig.String()))
		m.cancel()
	}
}

// Signal returns the first signal received, or nil.
func (m *Manager) Signal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

// ExitCode returns the signal exit code when a signal was received and
// fallback otherwise.
func (m *Manager) ExitCode(fallback int) int {
	if code := m.signalExitCode(); code != core.ExitCodeError {
		return code
	}
	return fallback
}

func (m *Manager) signalExitCode() int {
	switch m.Signal() {
	case os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeError
	}
}

// Shutdown stops signal delivery and runs the cleanup functions within the
// configured timeout. Later calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	started := m.started
	m.mu.Unlock()

	if started {
		signal.Stop(m.sigChan)
		close(m.sigChan)
	}
	defer m.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	start := time.Now()
	errs := m.registry.Run(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup function failed", zap.Error(err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown: %d cleanup functions failed", len(errs))
	}

	m.logger.Debug("Cleanup completed", zap.Duration("duration", time.Since(start)))
	return nil
}

// RegisteredHandlers returns handler names in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
