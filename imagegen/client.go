package imagegen

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"trendmerch/logging"
)

// State is a step of the per-request state machine:
//
//	Pending -> Waiting(1) -> Succeeded
//	                      -> Retrying -> Waiting(n+1) ...
//	                      -> FailedFinal
type State int

const (
	StatePending State = iota
	StateWaiting
	StateRetrying
	StateSucceeded
	StateFailedFinal
)

// String returns the string representation of a state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateWaiting:
		return "waiting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailedFinal:
		return "failed-final"
	default:
		return "unknown"
	}
}

// Transition records one state the request entered.
type Transition struct {
	State   State
	Attempt int
	Kind    Kind
	Wait    time.Duration
}

// RetryEvent is passed to ClientConfig.OnRetry before each backoff sleep.
type RetryEvent struct {
	Attempt     int
	MaxAttempts int
	Wait        time.Duration
	Err         *InferenceError
}

// Result is the outcome of GenerateWithTrace.
type Result struct {
	Image       *RawImage
	Attempts    int
	Waits       []time.Duration
	Transitions []Transition
}

// Retries returns how many times the request was retried.
func (r *Result) Retries() int {
	return len(r.Waits)
}

// ClientConfig configures the retry behavior of a Client.
type ClientConfig struct {
	// MaxRetries caps the total number of attempts per request, the first included.
	MaxRetries int

	// MaxBadResponses caps how many attempts may return malformed payloads.
	MaxBadResponses int

	Backoff BackoffPolicy

	// Sleep waits between attempts. Defaults to time.Sleep.
	Sleep func(time.Duration)

	// OnRetry is called before each backoff sleep.
	OnRetry func(RetryEvent)
}

// DefaultClientConfig returns the default retry configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		MaxRetries:      5,
		MaxBadResponses: 2,
		Backoff:         DefaultBackoffPolicy(),
		Sleep:           time.Sleep,
	}
}

// Client wraps a Provider with the retry state machine.
//
// Thread Safety: Client holds no per-request state and is safe for
// concurrent use, though the pipeline only issues one request at a time.
type Client struct {
	provider Provider
	config   ClientConfig
	logger   *logging.Logger
}

// NewClient creates a client. Zero values in config fall back to defaults.
func NewClient(provider Provider, config ClientConfig, logger *logging.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("imagegen: provider cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	defaults := DefaultClientConfig()
	if config.MaxRetries <= 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.MaxBadResponses <= 0 {
		config.MaxBadResponses = defaults.MaxBadResponses
	}
	if config.Sleep == nil {
		config.Sleep = defaults.Sleep
	}
	return &Client{
		provider: provider,
		config:   config,
		logger:   logger.Named("inference"),
	}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() ClientConfig {
	return c.config
}

// Generate runs the state machine for prompt and returns the decoded image.
// Every error is a *FinalError matching ErrFailedFinal.
func (c *Client) Generate(ctx context.Context, prompt string) (*RawImage, error) {
	result, err := c.GenerateWithTrace(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return result.Image, nil
}

// GenerateWithTrace is Generate plus the list of states visited.
//
// Backoff sleeps do not observe ctx: once issued, a request runs to success
// or final failure. ctx is checked before each attempt and passed to the
// provider, so callers that want requests to finish pass a context that is
// never canceled.
func (c *Client) GenerateWithTrace(ctx context.Context, prompt string) (*Result, error) {
	result := &Result{}
	record := func(t Transition) {
		result.Transitions = append(result.Transitions, t)
	}
	fail := func(attempt int, last *InferenceError) (*Result, error) {
		record(Transition{State: StateFailedFinal, Attempt: attempt, Kind: last.Kind})
		return result, &FinalError{Attempts: attempt, Last: last}
	}

	record(Transition{State: StatePending})
	c.logger.Debug("Generating image", logging.TruncatedPrompt(prompt, 80))

	badResponses := 0
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fail(attempt-1, ClassifyError(err))
		}

		record(Transition{State: StateWaiting, Attempt: attempt})
		result.Attempts = attempt

		data, err := c.provider.Generate(ctx, prompt)
		var img *RawImage
		if err == nil {
			img, err = DecodeRaw(data)
		}
		if err == nil {
			result.Image = img
			record(Transition{State: StateSucceeded, Attempt: attempt})
			c.logger.Info("Image generated",
				zap.Int("attempts", attempt),
				zap.String("format", img.Format),
				zap.Int("width", img.Width),
				zap.Int("height", img.Height))
			return result, nil
		}

		inferenceErr := ClassifyError(err)
		if inferenceErr.Kind == KindBadResponse {
			badResponses++
		}

		switch {
		case !inferenceErr.Retryable:
			c.logger.Error("Inference failed, not retrying",
				zap.Int("attempt", attempt),
				zap.String("kind", string(inferenceErr.Kind)),
				zap.Error(inferenceErr))
			return fail(attempt, inferenceErr)
		case inferenceErr.Kind == KindBadResponse && badResponses >= c.config.MaxBadResponses:
			c.logger.Error("Too many malformed responses",
				zap.Int("bad_responses", badResponses),
				zap.Error(inferenceErr))
			return fail(attempt, inferenceErr)
		case attempt >= c.config.MaxRetries:
			c.logger.Error("All retry attempts exhausted",
				zap.Int("attempts", attempt),
				zap.Error(inferenceErr))
			return fail(attempt, inferenceErr)
		}

		wait := c.config.Backoff.Delay(attempt)
		result.Waits = append(result.Waits, wait)
		record(Transition{State: StateRetrying, Attempt: attempt, Kind: inferenceErr.Kind, Wait: wait})

		fields := logging.RetryFields(attempt, c.config.MaxRetries, wait, string(inferenceErr.Kind))
		c.logger.Warn("Inference attempt failed, retrying", append(fields, zap.Error(inferenceErr))...)
		if c.config.OnRetry != nil {
			c.config.OnRetry(RetryEvent{
				Attempt:     attempt,
				MaxAttempts: c.config.MaxRetries,
				Wait:        wait,
				Err:         inferenceErr,
			})
		}

		c.config.Sleep(wait)
	}
}
