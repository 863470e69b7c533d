package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"trendmerch/core"
)

// Downloader fetches images that providers return as temporary URLs.
//
// Thread Safety: Downloader is safe for concurrent use.
type Downloader struct {
	client *http.Client
}

// DownloaderConfig holds configuration for the Downloader.
type DownloaderConfig struct {
	// HTTPClient is used when set; otherwise a client with Timeout is created.
	HTTPClient *http.Client

	// Timeout for one download. Default: 60 seconds.
	Timeout time.Duration
}

// DefaultDownloaderConfig returns sensible defaults for downloading images.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{Timeout: 60 * time.Second}
}

// NewDownloader creates a downloader honoring the TLS settings in cfg.
func NewDownloader(cfg *core.Config) (*Downloader, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	return &Downloader{client: core.GetHTTPClient(cfg, DefaultDownloaderConfig().Timeout)}, nil
}

// NewDownloaderWithConfig creates a downloader with explicit configuration.
func NewDownloaderWithConfig(cfg DownloaderConfig) *Downloader {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultDownloaderConfig().Timeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Downloader{client: client}
}

// Fetch downloads url and returns the body. Failures are *InferenceError
// values so a failed download is retried like a failed generation.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, NewInferenceError(KindBadResponse, 0, errors.New("empty image URL"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewInferenceError(KindBadResponse, 0, fmt.Errorf("invalid image URL: %w", err))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("download image: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := ClassifyStatus(resp.StatusCode)
		if kind == KindRejected || kind == KindAuth {
			// Expired or missing signed URLs: the next generation yields a new one.
			kind = KindBadResponse
		}
		return nil, NewInferenceError(kind, resp.StatusCode, fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, NewInferenceError(KindNetwork, 0, fmt.Errorf("read image data: %w", err))
	}
	return data, nil
}
