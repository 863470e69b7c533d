package imagegen

import (
	"testing"
)

func TestDecodeRaw(t *testing.T) {
	img, err := DecodeRaw(pngBytes(t, 12, 7))
	if err != nil {
		t.Fatalf("DecodeRaw(png) error = %v", err)
	}
	if img.Format != "png" || img.Width != 12 || img.Height != 7 || img.Decoded == nil {
		t.Errorf("DecodeRaw(png) = %+v", img)
	}

	bad := [][]byte{nil, []byte("not an image"), pngBytes(t, 12, 7)[:40]}
	for i, data := range bad {
		_, err := DecodeRaw(data)
		if KindOf(err) != KindBadResponse {
			t.Errorf("case %d: kind = %s, want bad-response", i, KindOf(err))
		}
	}
}
