package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/logging"
)

// maxPayloadBytes bounds a single provider response.
const maxPayloadBytes = 64 << 20

// HuggingFaceProvider calls the Hugging Face serverless inference API.
//
// The request is POST {BaseURL}/{Model} with body {"inputs": prompt} and a
// bearer token. A successful response carries the image bytes directly.
type HuggingFaceProvider struct {
	client  *http.Client
	baseURL string
	model   string
	token   string
	logger  *logging.Logger
}

// HuggingFaceProviderConfig holds configuration for the Hugging Face provider.
type HuggingFaceProviderConfig struct {
	Token      string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewHuggingFaceProvider creates a provider from core.Config. A missing token
// is not an error here: Generate reports it as an AuthError.
func NewHuggingFaceProvider(cfg *core.Config, logger *logging.Logger) (*HuggingFaceProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return NewHuggingFaceProviderWithConfig(HuggingFaceProviderConfig{
		Token:      cfg.HFToken,
		BaseURL:    cfg.HFBaseURL,
		Model:      cfg.HFModel,
		HTTPClient: core.GetHTTPClient(cfg, cfg.AITimeout),
	}, logger)
}

// NewHuggingFaceProviderWithConfig creates a provider with explicit settings.
func NewHuggingFaceProviderWithConfig(cfg HuggingFaceProviderConfig, logger *logging.Logger) (*HuggingFaceProvider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = core.DefaultHFBaseURL
	}
	model := strings.Trim(cfg.Model, "/")
	if model == "" {
		model = core.DefaultHFModel
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &HuggingFaceProvider{
		client:  client,
		baseURL: baseURL,
		model:   model,
		token:   cfg.Token,
		logger:  logger.Named("huggingface"),
	}, nil
}

type hfRequest struct {
	Inputs string `json:"inputs"`
}

type hfErrorBody struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// Generate sends one text-to-image request.
func (p *HuggingFaceProvider) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if p.token == "" {
		return nil, NewInferenceError(KindAuth, 0, fmt.Errorf("%w: set HF_TOKEN", ErrMissingCredential))
	}
	if prompt == "" {
		return nil, NewInferenceError(KindRejected, 0, errors.New("prompt cannot be empty"))
	}

	body, err := json.Marshal(hfRequest{Inputs: prompt})
	if err != nil {
		return nil, NewInferenceError(KindRejected, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, NewInferenceError(KindRejected, 0, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/png")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, NewInferenceError(KindNetwork, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewInferenceError(ClassifyStatus(resp.StatusCode), resp.StatusCode, p.describeFailure(data))
	}
	if IsJSONContentType(resp.Header.Get("Content-Type")) {
		return nil, NewInferenceError(KindBadResponse, resp.StatusCode, p.describeFailure(data))
	}

	p.logger.Debug("Received image payload",
		zap.Int("bytes", len(data)),
		zap.String("content_type", resp.Header.Get("Content-Type")))
	return data, nil
}

func (p *HuggingFaceProvider) describeFailure(body []byte) error {
	var parsed hfErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		if parsed.EstimatedTime > 0 {
			return fmt.Errorf("%s (estimated time %.0fs)", parsed.Error, parsed.EstimatedTime)
		}
		return errors.New(parsed.Error)
	}
	return errors.New(snippet(body, 200))
}

// Endpoint returns the model URL requests are sent to.
func (p *HuggingFaceProvider) Endpoint() string {
	return p.baseURL + "/" + p.model
}

// Model returns the configured model id.
func (p *HuggingFaceProvider) Model() string {
	return p.model
}

var _ Provider = (*HuggingFaceProvider)(nil)
