package imagegen

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	// Formats inference providers return.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// RawImage is a decoded provider payload.
type RawImage struct {
	Data    []byte
	Format  string
	Width   int
	Height  int
	Decoded image.Image
}

// DecodeRaw validates a provider payload by decoding it fully. Empty or
// undecodable payloads yield a retryable BadResponse.
func DecodeRaw(data []byte) (*RawImage, error) {
	if len(data) == 0 {
		return nil, NewInferenceError(KindBadResponse, 0, errors.New("empty image payload"))
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, NewInferenceError(KindBadResponse, 0, fmt.Errorf("undecodable image payload: %w", err))
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, NewInferenceError(KindBadResponse, 0, fmt.Errorf("image has no pixels (%dx%d)", b.Dx(), b.Dy()))
	}
	return &RawImage{
		Data:    data,
		Format:  format,
		Width:   b.Dx(),
		Height:  b.Dy(),
		Decoded: img,
	}, nil
}
