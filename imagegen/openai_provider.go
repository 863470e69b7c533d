package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/logging"
)

// OpenAIProvider implements Provider for the OpenAI images API.
//
// Thread Safety: OpenAIProvider is safe for concurrent use.
type OpenAIProvider struct {
	client     *openai.Client
	downloader *Downloader
	model      string
	hasKey     bool
	logger     *logging.Logger
}

// OpenAIProviderConfig holds configuration specific to the OpenAI provider.
type OpenAIProviderConfig struct {
	// APIKey is the OpenAI API key. An empty key makes Generate fail with an AuthError.
	APIKey string

	// BaseURL is the API endpoint (default: https://api.openai.com/v1)
	BaseURL string

	// Model is the image model to use (default: dall-e-3)
	Model string

	// HTTPClient overrides the client built from core.Config (optional).
	HTTPClient *http.Client
}

// DefaultOpenAIProviderConfig returns sensible defaults for OpenAI image generation.
func DefaultOpenAIProviderConfig() OpenAIProviderConfig {
	return OpenAIProviderConfig{
		BaseURL: "https://api.openai.com/v1",
		Model:   "dall-e-3",
	}
}

// NewOpenAIProvider creates an OpenAI provider from core.Config.
//
// Returns an error if the endpoint is local (localhost, 127.0.0.1, LAN), since
// image models are only reachable through the hosted API.
func NewOpenAIProvider(cfg *core.Config, logger *logging.Logger) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	downloader, err := NewDownloader(cfg)
	if err != nil {
		return nil, err
	}
	return newOpenAIProvider(OpenAIProviderConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.ImageLLMURL,
		Model:   cfg.OpenAIImageModel,
	}, cfg, downloader, logger)
}

// NewOpenAIProviderWithConfig creates an OpenAI provider with explicit configuration.
// coreCfg may be nil; it only contributes HTTP client settings.
func NewOpenAIProviderWithConfig(providerCfg OpenAIProviderConfig, coreCfg *core.Config, logger *logging.Logger) (*OpenAIProvider, error) {
	var downloader *Downloader
	if providerCfg.HTTPClient != nil {
		downloader = NewDownloaderWithConfig(DownloaderConfig{HTTPClient: providerCfg.HTTPClient})
	} else if coreCfg != nil {
		d, err := NewDownloader(coreCfg)
		if err != nil {
			return nil, err
		}
		downloader = d
	} else {
		downloader = NewDownloaderWithConfig(DefaultDownloaderConfig())
	}
	return newOpenAIProvider(providerCfg, coreCfg, downloader, logger)
}

func newOpenAIProvider(providerCfg OpenAIProviderConfig, coreCfg *core.Config, downloader *Downloader, logger *logging.Logger) (*OpenAIProvider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	defaults := DefaultOpenAIProviderConfig()

	endpoint := providerCfg.BaseURL
	if endpoint == "" {
		endpoint = defaults.BaseURL
	}
	if IsLocalEndpoint(endpoint) {
		return nil, fmt.Errorf("imagegen: local endpoint (%s) does not support image generation; "+
			"configure IMAGE_LLM_URL to use OpenAI or Azure", endpoint)
	}

	clientConfig := openai.DefaultConfig(providerCfg.APIKey)
	clientConfig.BaseURL = endpoint
	if providerCfg.HTTPClient != nil {
		clientConfig.HTTPClient = providerCfg.HTTPClient
	} else if coreCfg != nil {
		clientConfig.HTTPClient = core.GetHTTPClient(coreCfg, coreCfg.AITimeout)
	}

	model := providerCfg.Model
	if model == "" {
		model = defaults.Model
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		downloader: downloader,
		model:      model,
		hasKey:     providerCfg.APIKey != "",
		logger:     logger.Named("openai"),
	}, nil
}

// Generate creates one image and returns its bytes.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if !p.hasKey {
		return nil, NewInferenceError(KindAuth, 0, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential))
	}
	data, err := createImage(ctx, p.client, p.downloader, buildImageRequest(prompt, p.model))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Received image payload", zap.Int("bytes", len(data)))
	return data, nil
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// buildImageRequest asks DALL-E models for base64 payloads so no second
// request is needed. gpt-image models always return base64 and reject the
// response_format and style parameters.
func buildImageRequest(prompt, model string) openai.ImageRequest {
	req := openai.ImageRequest{
		Prompt: prompt,
		Model:  model,
		N:      1,
	}
	if isDalleModel(model) {
		req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
		req.Style = openai.CreateImageStyleVivid
	}
	return req
}

// createImage runs the request and resolves the first image to bytes.
func createImage(ctx context.Context, client *openai.Client, downloader *Downloader, req openai.ImageRequest) ([]byte, error) {
	if req.Prompt == "" {
		return nil, NewInferenceError(KindRejected, 0, errors.New("prompt cannot be empty"))
	}

	response, err := client.CreateImage(ctx, req)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if len(response.Data) == 0 {
		return nil, NewInferenceError(KindBadResponse, 0, errors.New("response contains no images"))
	}

	item := response.Data[0]
	switch {
	case item.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, NewInferenceError(KindBadResponse, 0, fmt.Errorf("invalid base64 image: %w", err))
		}
		return data, nil
	case item.URL != "":
		if downloader == nil {
			return nil, NewInferenceError(KindBadResponse, 0, errors.New("URL response without downloader"))
		}
		return downloader.Fetch(ctx, item.URL)
	default:
		return nil, NewInferenceError(KindBadResponse, 0, errors.New("response image has neither data nor URL"))
	}
}

// isDalleModel reports whether a model or deployment name is a DALL-E model.
func isDalleModel(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "dall-e") ||
		strings.Contains(lower, "dalle")
}

var _ Provider = (*OpenAIProvider)(nil)
