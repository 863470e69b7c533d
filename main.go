// Command trendmerch turns trending topics into print-ready transparent PNG
// designs.
//
//	trendmerch -auto -count 5 -style vintage
//	trendmerch -text "Solar Eclipse|Retro Gaming" -no-bg-remove
//	trendmerch -watch 6h -cache
//	trendmerch service install -watch 6h
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/core/validation"
	"trendmerch/db"
	"trendmerch/logging"
	"trendmerch/pipeline"
	"trendmerch/shutdown"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 && args[0] == "service" {
		return handleServiceCommand(args[1:], stdout, stderr)
	}

	opts, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return core.ExitCodeSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	if opts.mode() == "" {
		fmt.Fprintln(stderr, "Error: choose a mode: -auto, -text, -watch, -list-styles, -history or -check")
		return core.ExitCodeError
	}

	cfg, err := loadConfig(stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return core.ExitCodeError
	}
	opts.applyTo(cfg)
	opts = opts.withDefaults(cfg)

	switch opts.mode() {
	case "list-styles":
		return listStyles(cfg, stdout, stderr)
	case "history":
		return printHistory(cfg, opts.history, stdout, stderr)
	case "check":
		result := validation.NewValidationSuite(cfg).WithOutput(stdout).Validate(context.Background())
		if !result.Success {
			return core.ExitCodeError
		}
		return core.ExitCodeSuccess
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	manager := shutdown.NewManager(logger)
	manager.Register("logger", 90, func(context.Context) error {
		// Syncing a console sink fails with EINVAL on some platforms.
		logger.Sync()
		return nil
	})
	manager.Start()

	code := execute(manager, cfg, opts, logger, stdout)

	if err := manager.Shutdown(); err != nil {
		fmt.Fprintf(stderr, "Shutdown: %v\n", err)
	}
	return manager.ExitCode(code)
}

// loadConfig reads .env when present and then the environment.
func loadConfig(stderr io.Writer) (*core.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "Warning: failed to read .env: %v\n", err)
	}
	return core.LoadConfig()
}

func newLogger(cfg *core.Config) (*logging.Logger, error) {
	level := logging.LevelFor(cfg.LogLevel, cfg.DevMode)
	return logging.NewLoggerWithConfig(level, cfg.DevMode, cfg.LogFile, logging.DefaultFileWriterConfig())
}

// execute runs one of the generation modes and returns its exit code.
func execute(manager *shutdown.Manager, cfg *core.Config, opts cliOptions, logger *logging.Logger, stdout io.Writer) int {
	logger.Info("Configuration loaded",
		zap.String("provider", cfg.Provider),
		zap.String("output_dir", cfg.OutputDir),
		zap.String("rembg_mode", cfg.RembgMode),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("ai_timeout", cfg.AITimeout))

	app, err := NewApp(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", zap.Error(err))
		return core.ExitCodeError
	}
	manager.Register("database", 10, func(context.Context) error {
		return app.Close()
	})

	ctx := manager.Context()
	report := func(result *pipeline.RunResult) { pipeline.PrintSummary(stdout, result) }

	var result *pipeline.RunResult
	switch opts.mode() {
	case "watch":
		err = app.Watch(ctx, opts.watch, opts, report)
	case "auto":
		result, err = app.RunAuto(ctx, opts)
	case "text":
		result, err = app.RunText(ctx, opts.topics(), opts)
	}
	if result != nil {
		report(result)
	}

	code := exitCodeFor(result, err)
	if err != nil {
		logger.Error("Run failed",
			zap.String("exit", core.ExitCodeName(code)),
			zap.Error(err))
	}
	return code
}

// exitCodeFor maps a run outcome to a process exit code. A completed run
// where every attempted topic failed is an error.
func exitCodeFor(result *pipeline.RunResult, err error) int {
	switch {
	case errors.Is(err, pipeline.ErrAuth):
		return core.ExitCodeAuth
	case errors.Is(err, pipeline.ErrNoTopics):
		return core.ExitCodeNoTopics
	case err != nil:
		return core.ExitCodeError
	case result != nil && result.Failed() > 0 && result.Succeeded() == 0 && result.Skipped() == 0:
		return core.ExitCodeError
	default:
		return core.ExitCodeSuccess
	}
}

func listStyles(cfg *core.Config, stdout, stderr io.Writer) int {
	table, err := loadStyles(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}

	keyColor := color.New(color.FgCyan, color.Bold)
	dim := color.New(color.FgHiBlack)
	fmt.Fprintln(stdout)
	for _, p := range table.Presets() {
		marker := " "
		if string(p.Key) == cfg.DefaultStyle {
			marker = "*"
		}
		keyColor.Fprintf(stdout, "%s %-12s", marker, p.Key)
		fmt.Fprintf(stdout, " %s\n", p.Description)
		preview, _ := table.Preview(p.Key, "Solar Eclipse", 80)
		dim.Fprintf(stdout, "    %s\n", preview)
	}
	fmt.Fprintln(stdout)
	return core.ExitCodeSuccess
}

func printHistory(cfg *core.Config, limit int, stdout, stderr io.Writer) int {
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	defer database.Close()

	repo, err := db.NewRepository(database)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}
	designs, err := repo.QueryRecentDesigns(context.Background(), limit)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return core.ExitCodeError
	}

	if len(designs) == 0 {
		fmt.Fprintln(stdout, "No designs recorded yet")
		return core.ExitCodeSuccess
	}
	dim := color.New(color.FgHiBlack)
	for _, d := range designs {
		fmt.Fprintf(stdout, "%s  %-10s %s", d.CreatedAt.Local().Format("2006-01-02 15:04"), d.Style, d.Topic)
		dim.Fprintf(stdout, "  %s (%dx%d)\n", d.Path, d.Width, d.Height)
	}
	return core.ExitCodeSuccess
}
