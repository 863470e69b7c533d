package imagegen

import (
	"context"
	"fmt"

	"trendmerch/core"
	"trendmerch/logging"
)

// Provider is the interface for image generation backends.
//
// Generate returns the raw bytes of one generated image. Failures should be
// *InferenceError values; anything else is classified by ClassifyError.
type Provider interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// NewProviderFromConfig builds the provider selected by cfg.Provider.
func NewProviderFromConfig(cfg *core.Config, logger *logging.Logger) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	switch cfg.Provider {
	case core.ProviderHuggingFace, "":
		return NewHuggingFaceProvider(cfg, logger)
	case core.ProviderOpenAI:
		return NewOpenAIProvider(cfg, logger)
	case core.ProviderAzure:
		return NewAzureProvider(cfg, logger)
	default:
		return nil, core.ErrUnknownOption("INFERENCE_PROVIDER", cfg.Provider,
			[]string{core.ProviderHuggingFace, core.ProviderOpenAI, core.ProviderAzure})
	}
}
