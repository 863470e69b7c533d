package postprocess

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// FitDimensions returns the size of a srcW x srcH image scaled by
// min(dstW/srcW, dstH/srcH), rounded to the nearest pixel and never zero.
func FitDimensions(srcW, srcH, dstW, dstH int) (int, int) {
	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return 0, 0
	}
	// Compare srcW/srcH against dstW/dstH without floating point.
	if int64(srcW)*int64(dstH) >= int64(srcH)*int64(dstW) {
		h := roundDiv(int64(srcH)*int64(dstW), int64(srcW))
		return dstW, clamp(h, 1, dstH)
	}
	w := roundDiv(int64(srcW)*int64(dstH), int64(srcH))
	return clamp(w, 1, dstW), dstH
}

func roundDiv(num, den int64) int {
	return int((2*num + den) / (2 * den))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FitToCanvas scales img to fit within width x height with Lanczos
// resampling and centers it on a fully transparent canvas of exactly that size.
func FitToCanvas(img image.Image, width, height int) (*image.NRGBA, error) {
	b := img.Bounds()
	w, h := FitDimensions(b.Dx(), b.Dy(), width, height)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("cannot fit %dx%d image into %dx%d canvas", b.Dx(), b.Dy(), width, height)
	}

	var scaled image.Image = img
	if w != b.Dx() || h != b.Dy() {
		scaled = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	canvas := imaging.New(width, height, color.NRGBA{})
	return imaging.PasteCenter(canvas, scaled), nil
}
