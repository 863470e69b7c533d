// Package pipeline turns topics into designs: for each topic it builds the
// style prompt, requests an image, post-processes it and writes a uniquely
// named PNG, collecting every outcome in a RunResult.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trendmerch/cache"
	"trendmerch/imagegen"
	"trendmerch/logging"
	"trendmerch/naming"
	"trendmerch/postprocess"
	"trendmerch/styles"
	"trendmerch/trends"
)

// Generator produces an image for a prompt. *imagegen.Client implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.RawImage, error)
}

// ImageProcessor post-processes a generated image. *postprocess.Processor
// implements it.
type ImageProcessor interface {
	Process(ctx context.Context, raw *imagegen.RawImage, opts postprocess.Options) (*postprocess.ProcessedImage, error)
}

// RunOptions are the per-run inputs besides topics, style and count.
type RunOptions struct {
	// Mode labels the run in logs and history ("auto", "text", "watch").
	Mode string
	Post postprocess.Options
}

// DefaultRunOptions returns background removal and resize to the default canvas.
func DefaultRunOptions() RunOptions {
	return RunOptions{Mode: "text", Post: postprocess.DefaultOptions()}
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Builder   *styles.Builder
	Generator Generator
	Processor ImageProcessor
	Namer     *naming.Namer
	Writer    *naming.Writer

	// Cache is optional; nil disables the freshness check.
	Cache     cache.Opener
	Freshness time.Duration

	// History is optional.
	History HistoryRecorder

	// InterItemDelay paces consecutive inference calls.
	InterItemDelay time.Duration
	// Sleep waits between items and returns early when ctx is done.
	Sleep func(ctx context.Context, d time.Duration)
	Now   func() time.Time
}

// Orchestrator runs topics through the pipeline one at a time.
type Orchestrator struct {
	config Config
	logger *logging.Logger
}

// NewOrchestrator validates config and fills defaults.
func NewOrchestrator(config Config, logger *logging.Logger) (*Orchestrator, error) {
	if config.Builder == nil {
		return nil, fmt.Errorf("pipeline: builder cannot be nil")
	}
	if config.Generator == nil {
		return nil, fmt.Errorf("pipeline: generator cannot be nil")
	}
	if config.Processor == nil {
		return nil, fmt.Errorf("pipeline: processor cannot be nil")
	}
	if config.Writer == nil {
		return nil, fmt.Errorf("pipeline: writer cannot be nil")
	}
	if config.InterItemDelay < 0 {
		return nil, fmt.Errorf("pipeline: inter-item delay must not be negative")
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Namer == nil {
		config.Namer = naming.NewNamer(config.Now)
	}
	if config.Freshness <= 0 {
		config.Freshness = cache.DefaultFreshness
	}
	if config.Sleep == nil {
		config.Sleep = sleepContext
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{config: config, logger: logger.Named("pipeline")}, nil
}

// RunFromSource validates styleKey, then fetches topics from source and runs
// them. Source failures surface as ErrNoTopics.
func (o *Orchestrator) RunFromSource(ctx context.Context, source trends.Source, region string, styleKey styles.Key, count int, opts RunOptions) (*RunResult, error) {
	if source == nil {
		return nil, fmt.Errorf("pipeline: topic source cannot be nil")
	}
	if err := o.config.Builder.Validate(styleKey); err != nil {
		return o.emptyResult(styleKey, count, opts), err
	}

	topics, err := source.ListTrendingTopics(ctx, region)
	if err != nil {
		if errors.Is(err, ErrNoTopics) {
			return o.emptyResult(styleKey, count, opts), err
		}
		return o.emptyResult(styleKey, count, opts), fmt.Errorf("%w: %w", ErrNoTopics,
			&trends.TopicSourceError{Source: fmt.Sprintf("%T", source), Region: region, Err: err})
	}
	return o.Run(ctx, topics, styleKey, count, opts)
}

// Run processes up to count topics in order.
//
// Per-item failures are recorded in the result and processing continues. An
// authentication failure stops the run and returns the partial result with a
// *RunAbortedError wrapping ErrAuth. Canceling ctx stops the run between
// topics; a request already issued completes first.
func (o *Orchestrator) Run(ctx context.Context, topics []string, styleKey styles.Key, count int, opts RunOptions) (*RunResult, error) {
	result := o.emptyResult(styleKey, count, opts)
	defer func() { result.FinishedAt = o.config.Now() }()

	if err := o.config.Builder.Validate(styleKey); err != nil {
		return result, err
	}
	if count < 1 {
		return result, fmt.Errorf("pipeline: count must be at least 1, got %d", count)
	}

	selected := SelectTopics(topics, count)
	if len(selected) == 0 {
		return result, ErrNoTopics
	}
	result.Shortfall = count - len(selected)

	logger := o.logger.With(zap.String("run_id", result.RunID))
	logger.Info("Run started",
		zap.String("mode", opts.Mode),
		zap.String("style", string(styleKey)),
		zap.Int("requested", count),
		zap.Int("selected", len(selected)))
	if result.Shortfall > 0 {
		logger.Warn("Fewer topics than requested",
			zap.Int("requested", count),
			zap.Int("available", len(selected)))
	}

	var store cache.Store
	if o.config.Cache != nil {
		s, err := o.config.Cache(ctx)
		if err != nil {
			return result, fmt.Errorf("pipeline: open cache: %w", err)
		}
		store = s
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close cache", zap.Error(err))
			}
		}()
	}

	// Work already issued runs to completion regardless of ctx.
	work := context.WithoutCancel(ctx)
	pendingDelay := false

	for i, topic := range selected {
		if pendingDelay && o.config.InterItemDelay > 0 {
			o.config.Sleep(ctx, o.config.InterItemDelay)
		}
		if ctx.Err() != nil {
			result.Interrupted = true
			result.NotProcessed = len(selected) - i
			logger.Warn("Run interrupted between topics",
				zap.Int("processed", i),
				zap.Int("remaining", result.NotProcessed))
			break
		}

		logger.Info("Processing topic",
			zap.Int("index", i+1),
			zap.Int("total", len(selected)),
			zap.String("topic", topic))

		item, calledInference := o.processTopic(work, store, result.RunID, topic, styleKey, opts)
		result.Items = append(result.Items, item)
		pendingDelay = calledInference

		if item.Status == StatusFailed {
			logger.Warn("Topic failed",
				zap.String("topic", topic),
				zap.String("reason", item.Reason),
				zap.Error(item.Err))
		}

		if item.Reason == ReasonAuth {
			result.Aborted = true
			result.AbortReason = ReasonAuth
			result.NotProcessed = len(selected) - i - 1
			logger.Error("Credential rejected, aborting run",
				zap.Int("remaining", result.NotProcessed),
				zap.Error(item.Err))
			o.recordRun(work, logger, result)
			return result, &RunAbortedError{Reason: ReasonAuth, Topic: topic, Err: item.Err}
		}
	}

	o.recordRun(work, logger, result)
	logger.Info("Run finished",
		zap.Int("succeeded", result.Succeeded()),
		zap.Int("skipped", result.Skipped()),
		zap.Int("failed", result.Failed()))
	return result, nil
}

// processTopic runs one topic and reports whether the inference backend was
// called, which decides whether the next item is paced.
func (o *Orchestrator) processTopic(ctx context.Context, store cache.Store, runID, topic string, styleKey styles.Key, opts RunOptions) (ItemResult, bool) {
	start := o.config.Now()
	item := ItemResult{Topic: topic, Slug: naming.Slugify(topic)}
	fail := func(reason string, err error) ItemResult {
		item.Status = StatusFailed
		item.Reason = reason
		item.Err = err
		item.Duration = o.config.Now().Sub(start)
		return item
	}

	if styles.ContainsControlChars(topic) {
		return fail(ReasonInvalidTopic, fmt.Errorf("pipeline: topic contains control characters")), false
	}

	if store != nil {
		ts, ok, err := store.Lookup(ctx, item.Slug)
		if err != nil {
			return fail(ReasonCache, err), false
		}
		if ok && cache.IsFresh(ts, o.config.Now(), o.config.Freshness) {
			item.Status = StatusSkippedCached
			item.CachedAt = ts
			item.Duration = o.config.Now().Sub(start)
			o.logger.Info("Topic fresh in cache, skipping",
				zap.String("slug", item.Slug),
				zap.Time("cached_at", ts))
			return item, false
		}
	}

	req, err := o.config.Builder.Build(topic, styleKey)
	if err != nil {
		if styles.IsUnknownStyle(err) {
			return fail(ReasonUnknownStyle, err), false
		}
		return fail(ReasonInvalidTopic, err), false
	}

	raw, err := o.config.Generator.Generate(ctx, req.Prompt)
	var finalErr *imagegen.FinalError
	if errors.As(err, &finalErr) {
		item.Attempts = finalErr.Attempts
	}
	if err != nil {
		switch {
		case imagegen.IsAuthError(err):
			return fail(ReasonAuth, err), true
		case imagegen.KindOf(err) == imagegen.KindRejected:
			return fail(ReasonInferenceRejected, err), true
		default:
			return fail(ReasonInferenceFailed, err), true
		}
	}

	processed, err := o.config.Processor.Process(ctx, raw, opts.Post)
	if err != nil {
		return fail(reasonForStage(postprocess.StageOf(err)), err), true
	}

	filename, ts := o.config.Namer.Next(req.Topic)
	record, err := o.config.Writer.Write(processed.Image, naming.OutputRecord{
		Filename:  filename,
		Topic:     req.Topic,
		Style:     string(req.Style),
		CreatedAt: ts,
	})
	if err != nil {
		return fail(ReasonWrite, err), true
	}

	item.Status = StatusSucceeded
	item.Output = &record
	item.Duration = o.config.Now().Sub(start)

	if store != nil {
		if err := store.Record(ctx, item.Slug, ts); err != nil {
			o.logger.Warn("Failed to record topic in cache",
				zap.String("slug", item.Slug),
				zap.Error(err))
		}
	}
	if o.config.History != nil {
		if err := o.config.History.RecordDesign(ctx, runID, item.Slug, record); err != nil {
			o.logger.Warn("Failed to record design history",
				zap.String("filename", record.Filename),
				zap.Error(err))
		}
	}
	return item, true
}

func (o *Orchestrator) recordRun(ctx context.Context, logger *logging.Logger, result *RunResult) {
	if o.config.History == nil {
		return
	}
	result.FinishedAt = o.config.Now()
	if err := o.config.History.RecordRun(ctx, result); err != nil {
		logger.Warn("Failed to record run history", zap.Error(err))
	}
}

func (o *Orchestrator) emptyResult(styleKey styles.Key, count int, opts RunOptions) *RunResult {
	return &RunResult{
		RunID:     uuid.NewString(),
		Mode:      opts.Mode,
		Style:     styleKey,
		Requested: count,
		StartedAt: o.config.Now(),
	}
}

func reasonForStage(stage string) string {
	switch stage {
	case postprocess.StageDecode:
		return ReasonDecode
	case postprocess.StageBgRemoval:
		return ReasonBgRemoval
	case postprocess.StageResize:
		return ReasonResize
	default:
		return ReasonPostProcess
	}
}

// SelectTopics trims topics, drops blanks, topics with control characters and
// repeats (compared by slug) and returns at most count of them in source
// order. A count below one selects nothing.
func SelectTopics(topics []string, count int) []string {
	if count < 1 {
		return nil
	}
	seen := make(map[string]bool, len(topics))
	selected := make([]string, 0, min(count, len(topics)))
	for _, topic := range topics {
		if len(selected) >= count {
			break
		}
		topic = strings.TrimSpace(topic)
		if topic == "" || styles.ContainsControlChars(topic) {
			continue
		}
		slug := naming.Slugify(topic)
		if seen[slug] {
			continue
		}
		seen[slug] = true
		selected = append(selected, topic)
	}
	return selected
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
