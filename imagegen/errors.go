package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// Kind classifies an inference failure.
type Kind string

const (
	// KindServiceBusy covers 503, other 5xx and 429 responses.
	KindServiceBusy Kind = "service-busy"
	// KindAuth covers 401/403 responses and missing credentials. Never retried.
	KindAuth Kind = "auth"
	// KindBadResponse covers malformed or undecodable payloads.
	KindBadResponse Kind = "bad-response"
	// KindNetwork covers transport failures and timeouts.
	KindNetwork Kind = "network"
	// KindRejected covers the remaining 4xx responses. Never retried.
	KindRejected Kind = "rejected"
)

// InferenceError is the error type returned by providers and the client.
type InferenceError struct {
	Kind       Kind
	Retryable  bool
	StatusCode int
	Err        error
}

func (e *InferenceError) Error() string {
	msg := fmt.Sprintf("imagegen: %s", e.Kind)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// NewInferenceError builds an InferenceError with the default retry
// classification for kind.
func NewInferenceError(kind Kind, statusCode int, err error) *InferenceError {
	return &InferenceError{
		Kind:       kind,
		Retryable:  kind == KindServiceBusy || kind == KindNetwork || kind == KindBadResponse,
		StatusCode: statusCode,
		Err:        err,
	}
}

var (
	// ErrFailedFinal is matched by every error returned from Client.Generate.
	ErrFailedFinal = errors.New("imagegen: generation failed")

	// ErrMissingCredential is wrapped by the AuthError a provider returns when
	// it has no token to send.
	ErrMissingCredential = errors.New("imagegen: missing credential")
)

// FinalError reports a request that reached the FailedFinal state.
type FinalError struct {
	Attempts int
	Last     *InferenceError
}

func (e *FinalError) Error() string {
	return fmt.Sprintf("imagegen: generation failed after %d attempt(s): %v", e.Attempts, e.Last)
}

// Unwrap exposes both ErrFailedFinal and the last inference error.
func (e *FinalError) Unwrap() []error {
	if e.Last == nil {
		return []error{ErrFailedFinal}
	}
	return []error{ErrFailedFinal, e.Last}
}

// Kind returns the kind of the last failure.
func (e *FinalError) Kind() Kind {
	if e.Last == nil {
		return ""
	}
	return e.Last.Kind
}

// ClassifyStatus maps an HTTP status code to a failure kind.
func ClassifyStatus(code int) Kind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests || code >= 500:
		return KindServiceBusy
	case code >= 400:
		return KindRejected
	default:
		return KindBadResponse
	}
}

// ClassifyError converts any provider error into an *InferenceError.
func ClassifyError(err error) *InferenceError {
	if err == nil {
		return nil
	}

	var inferenceErr *InferenceError
	if errors.As(err, &inferenceErr) {
		return inferenceErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return NewInferenceError(ClassifyStatus(apiErr.HTTPStatusCode), apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return NewInferenceError(ClassifyStatus(reqErr.HTTPStatusCode), reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.Canceled) {
		return &InferenceError{Kind: KindNetwork, Retryable: false, Err: err}
	}
	// Timeouts, refused connections and other transport failures.
	return NewInferenceError(KindNetwork, 0, err)
}

// IsAuthError reports whether err is, or wraps, an authentication failure.
func IsAuthError(err error) bool {
	var inferenceErr *InferenceError
	return errors.As(err, &inferenceErr) && inferenceErr.Kind == KindAuth
}

// KindOf returns the failure kind carried by err, or "".
func KindOf(err error) Kind {
	var inferenceErr *InferenceError
	if errors.As(err, &inferenceErr) {
		return inferenceErr.Kind
	}
	return ""
}
