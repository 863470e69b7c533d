package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"trendmerch/core"
)

const (
	serviceName            = "trendmerch"
	defaultServiceInterval = 6 * time.Hour
	serviceStopTimeout     = 30 * time.Second
)

// program runs watch mode under the system service manager.
type program struct {
	args        []string
	stopTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	code int
}

func newProgram(args []string) *program {
	return &program{args: args, stopTimeout: serviceStopTimeout}
}

// Start is called by the service manager and must not block.
func (p *program) Start(s service.Service) error {
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})
	go p.run()
	return nil
}

// Stop cancels the watch loop and waits up to stopTimeout for it to return.
// Cancellation is observed between topics, so an item still retrying against
// the inference backend is cut off when the timeout or the service manager's
// own stop deadline expires first.
func (p *program) Stop(s service.Service) error {
	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		return nil
	case <-time.After(p.stopTimeout):
		return fmt.Errorf("service: timeout waiting for watch loop to stop")
	}
}

func (p *program) exitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.code
}

func (p *program) setExitCode(code int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.code = code
}

func (p *program) run() {
	defer close(p.done)

	opts, err := parseServiceFlags(p.args, io.Discard)
	if err != nil {
		p.setExitCode(core.ExitCodeError)
		return
	}
	cfg, err := loadConfig(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		p.setExitCode(core.ExitCodeError)
		return
	}
	opts.applyTo(cfg)
	opts = opts.withDefaults(cfg)

	logger, err := newLogger(cfg)
	if err != nil {
		p.setExitCode(core.ExitCodeError)
		return
	}
	defer logger.Sync()

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		p.setExitCode(core.ExitCodeError)
		return
	}
	defer app.Close()

	err = app.Watch(p.ctx, opts.watch, opts, nil)
	code := exitCodeFor(nil, err)
	if err != nil {
		logger.Error("Watch stopped", zap.String("exit", core.ExitCodeName(code)), zap.Error(err))
	}
	p.setExitCode(code)
}

// parseServiceFlags parses watch flags and defaults the interval.
func parseServiceFlags(args []string, output io.Writer) (cliOptions, error) {
	opts, err := parseFlags(args, output)
	if err != nil {
		return opts, err
	}
	if opts.listStyles || opts.check || opts.history > 0 || opts.text != "" {
		return opts, fmt.Errorf("service mode only runs -watch")
	}
	if opts.watch == 0 {
		opts.watch = defaultServiceInterval
	}
	return opts, nil
}

// serviceConfig describes the installed service. flags are passed to
// "service run" when the service manager starts it.
func serviceConfig(flags []string) *service.Config {
	wd, _ := os.Getwd()
	return &service.Config{
		Name:             serviceName,
		DisplayName:      "TrendMerch Design Generator",
		Description:      "Generates print-ready designs from trending topics on a schedule",
		Arguments:        append([]string{"service", "run"}, flags...),
		WorkingDirectory: wd,
	}
}

func printServiceUsage(w io.Writer) {
	fmt.Fprintln(w, "TrendMerch Service Management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: trendmerch service <command> [watch flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  install    Install the service; flags such as -watch 6h -cache are kept")
	fmt.Fprintln(w, "  uninstall  Remove the service (alias: remove)")
	fmt.Fprintln(w, "  start      Start the service")
	fmt.Fprintln(w, "  stop       Stop the service")
	fmt.Fprintln(w, "  restart    Restart the service")
	fmt.Fprintln(w, "  status     Show the current service status")
	fmt.Fprintln(w, "  run        Run watch mode under the service manager")
	fmt.Fprintln(w, "  help       Show this help message")
}

// handleServiceCommand dispatches "trendmerch service ..." and returns the
// exit code.
func handleServiceCommand(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printServiceUsage(stderr)
		return core.ExitCodeError
	}

	command, flags := args[0], args[1:]
	switch command {
	case "help", "-h", "--help", "-help":
		printServiceUsage(stdout)
		return core.ExitCodeSuccess
	case "install", "uninstall", "remove", "start", "stop", "restart", "status", "run":
	default:
		fmt.Fprintf(stderr, "Error: unknown service command %q\n", command)
		printServiceUsage(stderr)
		return core.ExitCodeError
	}

	if command == "install" || command == "run" {
		if _, err := parseServiceFlags(flags, stderr); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return core.ExitCodeError
		}
	}

	prg := newProgram(flags)
	s, err := service.New(prg, serviceConfig(flags))
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to create service: %v\n", err)
		return core.ExitCodeError
	}

	switch command {
	case "run":
		if err := s.Run(); err != nil {
			fmt.Fprintf(stderr, "Error: service run failed: %v\n", err)
			return core.ExitCodeError
		}
		return prg.exitCode()
	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to get service status: %v\n", err)
			return core.ExitCodeError
		}
		switch status {
		case service.StatusRunning:
			fmt.Fprintln(stdout, "Service is running")
		case service.StatusStopped:
			fmt.Fprintln(stdout, "Service is stopped")
		default:
			fmt.Fprintln(stdout, "Service status unknown")
		}
		return core.ExitCodeSuccess
	case "remove":
		command = "uninstall"
	}

	if err := service.Control(s, command); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	fmt.Fprintf(stdout, "Service %s succeeded\n", command)
	return core.ExitCodeSuccess
}
