package postprocess

import (
	"image"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
)

// EncodePNG writes img as a maximally compressed PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression)); err != nil {
		return &PostProcessError{Stage: StageEncode, Err: err}
	}
	return nil
}
