package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trendmerch/cache"
	"trendmerch/core"
	"trendmerch/db"
	"trendmerch/imagegen"
	"trendmerch/logging"
	"trendmerch/naming"
	"trendmerch/pipeline"
	"trendmerch/postprocess"
	"trendmerch/styles"
	"trendmerch/trends"
)

// App holds everything a run needs, built once from the configuration.
type App struct {
	config       *core.Config
	logger       *logging.Logger
	table        *styles.Table
	orchestrator *pipeline.Orchestrator
	source       trends.Source
	database     *db.Database
	removerOff   bool
}

// appDeps lets tests replace the network-facing collaborators.
type appDeps struct {
	provider imagegen.Provider
	source   trends.Source
	sleep    func(time.Duration)
}

// NewApp wires the pipeline for cfg.
func NewApp(cfg *core.Config, logger *logging.Logger) (*App, error) {
	return newApp(cfg, logger, appDeps{})
}

func newApp(cfg *core.Config, logger *logging.Logger, deps appDeps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("main: config cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	table, err := loadStyles(cfg)
	if err != nil {
		return nil, err
	}
	builder, err := styles.NewBuilder(table, styles.QualitySuffix)
	if err != nil {
		return nil, err
	}

	provider := deps.provider
	if provider == nil {
		provider, err = imagegen.NewProviderFromConfig(cfg, logger)
		if err != nil {
			return nil, err
		}
	}
	client, err := imagegen.NewClient(provider, imagegen.ClientConfig{
		MaxRetries:      cfg.MaxRetries,
		MaxBadResponses: cfg.MaxBadResponses,
		Backoff: imagegen.BackoffPolicy{
			BaseDelay: cfg.RetryBaseDelay,
			MaxDelay:  cfg.RetryMaxDelay,
		},
		Sleep: deps.sleep,
	}, logger)
	if err != nil {
		return nil, err
	}

	remover, err := postprocess.NewRemoverFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	writer, err := naming.NewWriter(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:     cfg,
		logger:     logger,
		table:      table,
		removerOff: remover == nil,
	}

	// History is best effort unless the cache itself lives in the database.
	var repo *db.Repository
	var history pipeline.HistoryRecorder
	database, err := db.Open(cfg.DatabasePath)
	if err != nil {
		if cfg.CacheEnabled && cfg.CacheBackend == core.CacheBackendSQLite {
			return nil, fmt.Errorf("main: open database: %w", err)
		}
		logger.Warn("Design history disabled, database unavailable",
			zap.String("path", cfg.DatabasePath),
			zap.Error(err))
	} else {
		app.database = database
		repo, err = db.NewRepository(database)
		if err != nil {
			database.Close()
			return nil, err
		}
		dbHistory, err := pipeline.NewDBHistory(repo)
		if err != nil {
			database.Close()
			return nil, err
		}
		history = dbHistory
	}

	opener, err := cache.NewOpener(cfg, repo, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.orchestrator, err = pipeline.NewOrchestrator(pipeline.Config{
		Builder:        builder,
		Generator:      client,
		Processor:      postprocess.NewProcessor(remover, logger),
		Writer:         writer,
		Cache:          opener,
		Freshness:      cfg.CacheFreshness,
		History:        history,
		InterItemDelay: cfg.InterItemDelay,
	}, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.source = deps.source
	if app.source == nil {
		google, err := trends.NewGoogleTrendsSource(trends.GoogleTrendsConfig{
			URL:        cfg.TrendsURL,
			HTTPClient: core.GetHTTPClient(cfg, 25*time.Second),
		}, logger)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.source = trends.WithFallback(google, nil, logger)
	}

	return app, nil
}

func loadStyles(cfg *core.Config) (*styles.Table, error) {
	return styles.NewTableBuilder().WithDefaults().LoadYAML(cfg.StylesFile).Build()
}

// Close releases the database. It is safe to call more than once.
func (a *App) Close() error {
	if a.database == nil {
		return nil
	}
	return a.database.Close()
}

// Database returns the history database, or nil when it could not be opened.
func (a *App) Database() *db.Database {
	return a.database
}

// RunOptions turns CLI toggles into pipeline options.
func (a *App) RunOptions(mode string, opts cliOptions) pipeline.RunOptions {
	run := pipeline.DefaultRunOptions()
	run.Mode = mode
	run.Post.RemoveBackground = !opts.noBgRemove && !a.removerOff
	run.Post.Resize = !opts.noResize
	run.Post.TargetWidth = a.config.PrintWidth
	run.Post.TargetHeight = a.config.PrintHeight
	return run
}

// RunText generates designs for explicit topics.
func (a *App) RunText(ctx context.Context, topics []string, opts cliOptions) (*pipeline.RunResult, error) {
	count := opts.count
	if count <= 0 {
		count = len(topics)
	}
	return a.orchestrator.Run(ctx, topics, opts.style, count, a.RunOptions("text", opts))
}

// RunAuto generates designs for the current trending topics.
func (a *App) RunAuto(ctx context.Context, opts cliOptions) (*pipeline.RunResult, error) {
	return a.runFromSource(ctx, "auto", opts)
}

func (a *App) runFromSource(ctx context.Context, mode string, opts cliOptions) (*pipeline.RunResult, error) {
	count := opts.count
	if count <= 0 {
		count = defaultAutoCount
	}
	return a.orchestrator.RunFromSource(ctx, a.source, a.config.TrendsRegion, opts.style, count, a.RunOptions(mode, opts))
}

// Watch repeats auto runs every interval until ctx is done or a credential
// is rejected. Each completed cycle is handed to report and prunes history
// older than HistoryRetention.
func (a *App) Watch(ctx context.Context, interval time.Duration, opts cliOptions, report func(*pipeline.RunResult)) error {
	if interval <= 0 {
		return fmt.Errorf("main: watch interval must be positive, got %v", interval)
	}
	logger := a.logger.Named("watch")
	logger.Info("Watching trending topics", zap.Duration("interval", interval))

	for cycle := 1; ; cycle++ {
		result, err := a.runFromSource(ctx, "watch", opts)
		if report != nil && result != nil && len(result.Items) > 0 {
			report(result)
		}
		switch {
		case pipeline.IsAborted(err), styles.IsUnknownStyle(err):
			return err
		case errors.Is(err, pipeline.ErrNoTopics):
			logger.Warn("No topics this cycle", zap.Int("cycle", cycle), zap.Error(err))
		case err != nil:
			logger.Error("Watch cycle failed", zap.Int("cycle", cycle), zap.Error(err))
		}

		a.pruneHistory(ctx)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Watch stopped", zap.Int("cycles", cycle))
			return nil
		case <-timer.C:
		}
	}
}

func (a *App) pruneHistory(ctx context.Context) {
	if a.database == nil || a.config.HistoryRetention <= 0 {
		return
	}
	result, err := a.database.Cleanup(context.WithoutCancel(ctx), a.config.HistoryRetention, time.Now())
	if err != nil {
		a.logger.Warn("History cleanup failed", zap.Error(err))
		return
	}
	if result.TotalDeleted > 0 {
		a.logger.Info("Pruned design history",
			zap.Int64("designs", result.DesignsDeleted),
			zap.Int64("runs", result.RunsDeleted))
	}
}
