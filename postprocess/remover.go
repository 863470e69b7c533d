package postprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"trendmerch/core"
	"trendmerch/logging"
)

// BackgroundRemover makes background pixels transparent.
type BackgroundRemover interface {
	Remove(ctx context.Context, img image.Image) (image.Image, error)
}

// NewRemoverFromConfig returns the remover selected by cfg.RembgMode, or nil
// when background removal is off.
func NewRemoverFromConfig(cfg *core.Config, logger *logging.Logger) (BackgroundRemover, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postprocess: config cannot be nil")
	}
	switch cfg.RembgMode {
	case core.RembgModeHTTP:
		return NewRembgHTTPRemover(cfg.RembgURL, core.GetHTTPClient(cfg, cfg.AITimeout), logger), nil
	case core.RembgModeCommand:
		return NewCommandRemover(cfg.RembgCommand, logger), nil
	case core.RembgModeColorKey:
		return NewColorKeyRemover(DefaultColorKeyTolerance), nil
	case core.RembgModeOff:
		return nil, nil
	default:
		return nil, core.ErrUnknownOption("REMBG_MODE", cfg.RembgMode,
			[]string{core.RembgModeHTTP, core.RembgModeCommand, core.RembgModeColorKey, core.RembgModeOff})
	}
}

// RembgHTTPRemover calls a rembg server ("rembg s") at POST {baseURL}/api/remove.
type RembgHTTPRemover struct {
	baseURL string
	client  *http.Client
	logger  *logging.Logger
}

// NewRembgHTTPRemover creates a remover for the rembg server at baseURL.
func NewRembgHTTPRemover(baseURL string, client *http.Client, logger *logging.Logger) *RembgHTTPRemover {
	if client == nil {
		// The first request may download the segmentation model.
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RembgHTTPRemover{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		logger:  logger.Named("rembg"),
	}
}

// Endpoint returns the URL images are posted to.
func (r *RembgHTTPRemover) Endpoint() string {
	return r.baseURL + "/api/remove"
}

// Remove uploads img as PNG and decodes the returned cut-out.
func (r *RembgHTTPRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "design.png")
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if err := EncodePNG(part, img); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint(), &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rembg server unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rembg response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rembg server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	out, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode rembg output: %w", err)
	}
	r.logger.Debug("Background removed", zap.Duration("duration", time.Since(start)))
	return out, nil
}

// CommandRemover runs the rembg CLI: "<command> i <in.png> <out.png>".
type CommandRemover struct {
	command string
	logger  *logging.Logger
}

// NewCommandRemover creates a remover that shells out to command.
func NewCommandRemover(command string, logger *logging.Logger) *CommandRemover {
	if command == "" {
		command = "rembg"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CommandRemover{command: command, logger: logger.Named("rembg")}
}

// Remove writes img to a temporary directory, runs the command and reads the result.
func (c *CommandRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	dir, err := os.MkdirTemp("", "trendmerch-rembg-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out.png")

	f, err := os.Create(in)
	if err != nil {
		return nil, fmt.Errorf("create input file: %w", err)
	}
	if err := EncodePNG(f, img); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("write input file: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.command, "i", in, out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", c.command, err, strings.TrimSpace(string(output)))
	}

	result, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("open rembg output: %w", err)
	}
	defer result.Close()

	decoded, _, err := image.Decode(result)
	if err != nil {
		return nil, fmt.Errorf("decode rembg output: %w", err)
	}
	return decoded, nil
}

var (
	_ BackgroundRemover = (*RembgHTTPRemover)(nil)
	_ BackgroundRemover = (*CommandRemover)(nil)
	_ BackgroundRemover = (*ColorKeyRemover)(nil)
)
