package imagegen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"trendmerch/logging"
)

// scriptedProvider returns the scripted outcomes in order; once the script is
// exhausted it repeats the last entry.
type scriptedProvider struct {
	mu      sync.Mutex
	script  []outcome
	calls   int
	prompts []string
}

type outcome struct {
	data []byte
	err  error
}

func (p *scriptedProvider) Generate(_ context.Context, prompt string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	idx := p.calls
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	p.calls++
	return p.script[idx].data, p.script[idx].err
}

func busy() outcome {
	return outcome{err: NewInferenceError(KindServiceBusy, 503, errors.New("model loading"))}
}

// recordingSleep captures requested waits instead of sleeping.
type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(d time.Duration) {
	r.waits = append(r.waits, d)
}

func newTestClient(t *testing.T, provider Provider, sleeper *recordingSleep) *Client {
	t.Helper()
	cfg := DefaultClientConfig()
	cfg.Sleep = sleeper.sleep
	client, err := NewClient(provider, cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_NilProvider(t *testing.T) {
	if _, err := NewClient(nil, DefaultClientConfig(), nil); err == nil {
		t.Error("expected error for nil provider")
	}
}

func TestNewClient_Defaults(t *testing.T) {
	client, err := NewClient(&scriptedProvider{}, ClientConfig{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := client.Config()
	if cfg.MaxRetries != 5 || cfg.MaxBadResponses != 2 || cfg.Sleep == nil {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestClient_SucceedsFirstTry(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{{data: pngBytes(t, 16, 8)}}}
	sleeper := &recordingSleep{}
	client := newTestClient(t, provider, sleeper)

	result, err := client.GenerateWithTrace(context.Background(), "a prompt")
	if err != nil {
		t.Fatalf("GenerateWithTrace() error = %v", err)
	}
	if result.Image.Width != 16 || result.Image.Height != 8 || result.Image.Format != "png" {
		t.Errorf("image = %dx%d %s", result.Image.Width, result.Image.Height, result.Image.Format)
	}
	if result.Attempts != 1 || result.Retries() != 0 || len(sleeper.waits) != 0 {
		t.Errorf("attempts=%d retries=%d sleeps=%d", result.Attempts, result.Retries(), len(sleeper.waits))
	}

	want := []State{StatePending, StateWaiting, StateSucceeded}
	assertStates(t, result.Transitions, want)
}

func TestClient_BusyThenSuccess(t *testing.T) {
	for k := 0; k < 5; k++ {
		script := make([]outcome, 0, k+1)
		for i := 0; i < k; i++ {
			script = append(script, busy())
		}
		script = append(script, outcome{data: pngBytes(t, 4, 4)})

		provider := &scriptedProvider{script: script}
		sleeper := &recordingSleep{}
		client := newTestClient(t, provider, sleeper)

		result, err := client.GenerateWithTrace(context.Background(), "prompt")
		if err != nil {
			t.Fatalf("k=%d: error = %v", k, err)
		}
		if result.Retries() != k || provider.calls != k+1 || len(sleeper.waits) != k {
			t.Errorf("k=%d: retries=%d calls=%d sleeps=%d", k, result.Retries(), provider.calls, len(sleeper.waits))
		}
		for i := 1; i < len(sleeper.waits); i++ {
			if sleeper.waits[i] < sleeper.waits[i-1] {
				t.Errorf("k=%d: waits decrease: %v", k, sleeper.waits)
			}
		}
	}
}

func TestClient_AlwaysBusy(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{busy()}}
	sleeper := &recordingSleep{}
	client := newTestClient(t, provider, sleeper)

	result, err := client.GenerateWithTrace(context.Background(), "prompt")
	if !errors.Is(err, ErrFailedFinal) {
		t.Fatalf("error = %v, want ErrFailedFinal", err)
	}
	if provider.calls != 5 {
		t.Errorf("calls = %d, want exactly 5", provider.calls)
	}
	if len(sleeper.waits) != 4 {
		t.Errorf("sleeps = %d, want 4", len(sleeper.waits))
	}

	var final *FinalError
	if !errors.As(err, &final) || final.Attempts != 5 || final.Kind() != KindServiceBusy {
		t.Errorf("FinalError = %+v", final)
	}

	var total time.Duration
	for _, w := range sleeper.waits {
		total += w
	}
	if ceiling := client.Config().Backoff.Ceiling(5); total > ceiling {
		t.Errorf("total wait %v exceeds ceiling %v", total, ceiling)
	}
	if last := result.Transitions[len(result.Transitions)-1]; last.State != StateFailedFinal {
		t.Errorf("last state = %s", last.State)
	}
}

func TestClient_AuthErrorIsImmediate(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{
		{err: NewInferenceError(KindAuth, 401, errors.New("invalid token"))},
		{data: pngBytes(t, 4, 4)},
	}}
	sleeper := &recordingSleep{}
	client := newTestClient(t, provider, sleeper)

	result, err := client.GenerateWithTrace(context.Background(), "prompt")
	if !IsAuthError(err) {
		t.Fatalf("error = %v, want auth error", err)
	}
	if provider.calls != 1 || len(sleeper.waits) != 0 {
		t.Errorf("calls=%d sleeps=%d, want 1/0", provider.calls, len(sleeper.waits))
	}
	assertStates(t, result.Transitions, []State{StatePending, StateWaiting, StateFailedFinal})
}

func TestClient_RejectedIsNotRetried(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{
		{err: NewInferenceError(KindRejected, 400, errors.New("content policy"))},
	}}
	client := newTestClient(t, provider, &recordingSleep{})

	_, err := client.Generate(context.Background(), "prompt")
	if KindOf(err) != KindRejected || provider.calls != 1 {
		t.Errorf("kind=%s calls=%d", KindOf(err), provider.calls)
	}
}

func TestClient_BadResponseLimit(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{{data: []byte("<html>not an image</html>")}}}
	sleeper := &recordingSleep{}
	client := newTestClient(t, provider, sleeper)

	_, err := client.Generate(context.Background(), "prompt")
	if KindOf(err) != KindBadResponse {
		t.Fatalf("kind = %s, want bad-response", KindOf(err))
	}
	if provider.calls != 2 {
		t.Errorf("calls = %d, want MaxBadResponses (2)", provider.calls)
	}
}

func TestClient_BadResponseThenSuccess(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{
		{data: nil},
		{data: jpegBytes(t, 10, 20)},
	}}
	client := newTestClient(t, provider, &recordingSleep{})

	img, err := client.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if img.Format != "jpeg" || img.Width != 10 || img.Height != 20 {
		t.Errorf("image = %+v", img)
	}
}

func TestClient_NetworkErrorsRetry(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{
		{err: errors.New("dial tcp: connection refused")},
		{err: context.DeadlineExceeded},
		{data: pngBytes(t, 2, 2)},
	}}
	sleeper := &recordingSleep{}
	client := newTestClient(t, provider, sleeper)

	if _, err := client.Generate(context.Background(), "prompt"); err != nil {
		t.Fatalf("error = %v", err)
	}
	if provider.calls != 3 || len(sleeper.waits) != 2 {
		t.Errorf("calls=%d sleeps=%d", provider.calls, len(sleeper.waits))
	}
}

func TestClient_CanceledBeforeStart(t *testing.T) {
	provider := &scriptedProvider{script: []outcome{{data: pngBytes(t, 2, 2)}}}
	client := newTestClient(t, provider, &recordingSleep{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, "prompt")
	if !errors.Is(err, ErrFailedFinal) || !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("calls = %d, want 0", provider.calls)
	}
}

func TestClient_OnRetryAndLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	provider := &scriptedProvider{script: []outcome{busy(), busy(), {data: pngBytes(t, 2, 2)}}}

	var events []RetryEvent
	cfg := DefaultClientConfig()
	cfg.Sleep = func(time.Duration) {}
	cfg.OnRetry = func(e RetryEvent) { events = append(events, e) }

	client, err := NewClient(provider, cfg, logging.NewFromCore(core))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.Generate(context.Background(), "prompt"); err != nil {
		t.Fatal(err)
	}

	if len(events) != 2 {
		t.Fatalf("OnRetry called %d times, want 2", len(events))
	}
	if events[0].Attempt != 1 || events[1].Attempt != 2 || events[0].MaxAttempts != 5 {
		t.Errorf("events = %+v", events)
	}
	if events[0].Wait != 20*time.Second || events[1].Wait != 40*time.Second {
		t.Errorf("waits = %v, %v", events[0].Wait, events[1].Wait)
	}

	retries := logs.FilterMessage("Inference attempt failed, retrying").All()
	if len(retries) != 2 {
		t.Fatalf("retry log entries = %d, want 2", len(retries))
	}
	fields := retries[1].ContextMap()
	if fields["attempt"] != int64(2) || fields["kind"] != string(KindServiceBusy) {
		t.Errorf("retry fields = %v", fields)
	}
}

func assertStates(t *testing.T, transitions []Transition, want []State) {
	t.Helper()
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want states %v", transitions, want)
	}
	for i, s := range want {
		if transitions[i].State != s {
			t.Errorf("transition %d = %s, want %s", i, transitions[i].State, s)
		}
	}
}
