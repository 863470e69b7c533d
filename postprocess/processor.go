package postprocess

import (
	"bytes"
	"context"
	"errors"
	"image"

	// Decoders for RawImage payloads without a pre-decoded image.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"trendmerch/imagegen"
	"trendmerch/logging"
)

// ProcessedImage is the print-ready raster plus the stages that ran.
type ProcessedImage struct {
	Image             *image.NRGBA
	BackgroundRemoved bool
	Resized           bool
}

// Width returns the width of the final image.
func (p *ProcessedImage) Width() int { return p.Image.Bounds().Dx() }

// Height returns the height of the final image.
func (p *ProcessedImage) Height() int { return p.Image.Bounds().Dy() }

// Processor runs the post-processing stages in a fixed order:
// decode, promote to NRGBA, background removal, resize.
type Processor struct {
	remover BackgroundRemover
	logger  *logging.Logger
}

// NewProcessor creates a processor. remover may be nil when background
// removal is never requested.
func NewProcessor(remover BackgroundRemover, logger *logging.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{remover: remover, logger: logger.Named("postprocess")}
}

// Process turns raw into a ProcessedImage. With opts.Resize the result is
// exactly opts.TargetWidth x opts.TargetHeight.
func (p *Processor) Process(ctx context.Context, raw *imagegen.RawImage, opts Options) (*ProcessedImage, error) {
	if err := opts.Validate(); err != nil {
		return nil, &PostProcessError{Stage: StageResize, Err: err}
	}

	src, err := decode(raw)
	if err != nil {
		return nil, &PostProcessError{Stage: StageDecode, Err: err}
	}
	b := src.Bounds()
	p.logger.Debug("Decoded image", logging.ImageFields(StageDecode, b.Dx(), b.Dy())...)

	img := ToNRGBA(src)
	result := &ProcessedImage{Image: img}

	if opts.RemoveBackground {
		if p.remover == nil {
			return nil, &PostProcessError{Stage: StageBgRemoval, Err: errors.New("no background remover configured")}
		}
		cut, err := p.remover.Remove(ctx, img)
		if err != nil {
			return nil, &PostProcessError{Stage: StageBgRemoval, Err: err}
		}
		result.Image = ToNRGBA(cut)
		result.BackgroundRemoved = true
	}

	if opts.Resize {
		fitted, err := FitToCanvas(result.Image, opts.TargetWidth, opts.TargetHeight)
		if err != nil {
			return nil, &PostProcessError{Stage: StageResize, Err: err}
		}
		result.Image = fitted
		result.Resized = true
		p.logger.Debug("Resized for print", logging.ImageFields(StageResize, opts.TargetWidth, opts.TargetHeight)...)
	}

	return result, nil
}

func decode(raw *imagegen.RawImage) (image.Image, error) {
	if raw == nil {
		return nil, errors.New("no image")
	}
	if raw.Decoded != nil {
		return raw.Decoded, nil
	}
	if len(raw.Data) == 0 {
		return nil, errors.New("empty image payload")
	}
	img, _, err := image.Decode(bytes.NewReader(raw.Data))
	return img, err
}
