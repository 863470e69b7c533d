package imagegen

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/logging"
)

// AzureProvider implements Provider for Azure OpenAI image deployments.
//
// Azure uses deployment names instead of model names; the deployment is
// sent as the model and mapped by go-openai's Azure configuration.
type AzureProvider struct {
	client     *openai.Client
	downloader *Downloader
	deployment string
	hasKey     bool
	logger     *logging.Logger
}

// AzureProviderConfig holds configuration specific to the Azure provider.
type AzureProviderConfig struct {
	// APIKey is the Azure OpenAI API key.
	APIKey string

	// Endpoint is the Azure OpenAI endpoint URL (required)
	// Example: https://your-resource.openai.azure.com/
	Endpoint string

	// Deployment is the Azure deployment name (required)
	Deployment string

	// APIVersion is the Azure API version. Default: 2024-02-15-preview
	APIVersion string
}

// NewAzureProvider creates an Azure provider from core.Config.
func NewAzureProvider(cfg *core.Config, logger *logging.Logger) (*AzureProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	downloader, err := NewDownloader(cfg)
	if err != nil {
		return nil, err
	}
	return newAzureProvider(AzureProviderConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Endpoint:   cfg.AzureOpenAIEndpoint,
		Deployment: cfg.AzureOpenAIDeployment,
		APIVersion: cfg.AzureOpenAIApiVersion,
	}, cfg, downloader, logger)
}

// NewAzureProviderWithConfig creates an Azure provider with explicit configuration.
func NewAzureProviderWithConfig(providerCfg AzureProviderConfig, coreCfg *core.Config, logger *logging.Logger) (*AzureProvider, error) {
	downloader := NewDownloaderWithConfig(DefaultDownloaderConfig())
	if coreCfg != nil {
		d, err := NewDownloader(coreCfg)
		if err != nil {
			return nil, err
		}
		downloader = d
	}
	return newAzureProvider(providerCfg, coreCfg, downloader, logger)
}

func newAzureProvider(providerCfg AzureProviderConfig, coreCfg *core.Config, downloader *Downloader, logger *logging.Logger) (*AzureProvider, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if providerCfg.Endpoint == "" {
		return nil, fmt.Errorf("imagegen: Azure endpoint is required; set AZURE_OPENAI_ENDPOINT")
	}
	if !IsAzureEndpoint(providerCfg.Endpoint) {
		return nil, fmt.Errorf("imagegen: endpoint (%s) is not an Azure OpenAI endpoint", providerCfg.Endpoint)
	}
	if providerCfg.Deployment == "" {
		return nil, fmt.Errorf("imagegen: Azure deployment name is required; set AZURE_OPENAI_DEPLOYMENT")
	}

	clientConfig := openai.DefaultAzureConfig(providerCfg.APIKey, providerCfg.Endpoint)
	if providerCfg.APIVersion != "" {
		clientConfig.APIVersion = providerCfg.APIVersion
	}
	deployment := providerCfg.Deployment
	clientConfig.AzureModelMapperFunc = func(string) string { return deployment }
	if coreCfg != nil {
		clientConfig.HTTPClient = core.GetHTTPClient(coreCfg, coreCfg.AITimeout)
	}

	return &AzureProvider{
		client:     openai.NewClientWithConfig(clientConfig),
		downloader: downloader,
		deployment: deployment,
		hasKey:     providerCfg.APIKey != "",
		logger:     logger.Named("azure"),
	}, nil
}

// Generate creates one image and returns its bytes.
func (p *AzureProvider) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if !p.hasKey {
		return nil, NewInferenceError(KindAuth, 0, fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential))
	}
	data, err := createImage(ctx, p.client, p.downloader, buildImageRequest(prompt, p.deployment))
	if err != nil {
		return nil, err
	}
	p.logger.Debug("Received image payload", zap.Int("bytes", len(data)))
	return data, nil
}

// Deployment returns the configured Azure deployment name.
func (p *AzureProvider) Deployment() string {
	return p.deployment
}

var _ Provider = (*AzureProvider)(nil)
