package postprocess

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"trendmerch/imagegen"
)

type stubRemover struct {
	calls int
	err   error
}

func (s *stubRemover) Remove(_ context.Context, img image.Image) (image.Image, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return img, nil
}

func typeName(v interface{}) string {
	return fmt.Sprintf("%T", v)
}

func jpegRaw(t *testing.T, w, h int) *imagegen.RawImage {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solid(w, h, color.White), nil); err != nil {
		t.Fatal(err)
	}
	return &imagegen.RawImage{Data: buf.Bytes(), Format: "jpeg", Width: w, Height: h}
}

func TestProcessor_AllStages(t *testing.T) {
	remover := &stubRemover{}
	p := NewProcessor(remover, nil)

	opts := Options{RemoveBackground: true, Resize: true, TargetWidth: 45, TargetHeight: 54}
	out, err := p.Process(context.Background(), jpegRaw(t, 20, 10), opts)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if out.Width() != 45 || out.Height() != 54 {
		t.Errorf("size = %dx%d", out.Width(), out.Height())
	}
	if !out.BackgroundRemoved || !out.Resized || remover.calls != 1 {
		t.Errorf("flags = %+v, remover calls = %d", out, remover.calls)
	}
}

func TestProcessor_SkippedStages(t *testing.T) {
	remover := &stubRemover{}
	p := NewProcessor(remover, nil)

	out, err := p.Process(context.Background(), jpegRaw(t, 20, 10), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Width() != 20 || out.Height() != 10 || out.Resized || out.BackgroundRemoved {
		t.Errorf("unexpected output %dx%d %+v", out.Width(), out.Height(), out)
	}
	if remover.calls != 0 {
		t.Error("remover called with RemoveBackground=false")
	}
	// Non-alpha JPEG input is promoted to NRGBA.
	if out.Image.NRGBAAt(0, 0).A != 255 {
		t.Error("promoted image lost opacity")
	}
}

func TestProcessor_UsesPreDecodedImage(t *testing.T) {
	raw := &imagegen.RawImage{Decoded: solid(3, 3, color.Black)}
	out, err := NewProcessor(nil, nil).Process(context.Background(), raw, Options{})
	if err != nil || out.Width() != 3 {
		t.Fatalf("Process() = %v, %v", out, err)
	}
}

func TestProcessor_StageErrors(t *testing.T) {
	tests := []struct {
		name    string
		remover BackgroundRemover
		raw     *imagegen.RawImage
		opts    Options
		stage   string
	}{
		{"undecodable", nil, &imagegen.RawImage{Data: []byte("junk")}, Options{}, StageDecode},
		{"nil raw", nil, nil, Options{}, StageDecode},
		{"remover fails", &stubRemover{err: errors.New("rembg down")}, nil, Options{RemoveBackground: true}, StageBgRemoval},
		{"no remover", nil, nil, Options{RemoveBackground: true}, StageBgRemoval},
		{"bad canvas", nil, nil, Options{Resize: true, TargetWidth: 0, TargetHeight: 10}, StageResize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if raw == nil && tt.stage != StageDecode {
				raw = jpegRaw(t, 4, 4)
			}
			_, err := NewProcessor(tt.remover, nil).Process(context.Background(), raw, tt.opts)
			var ppErr *PostProcessError
			if !errors.As(err, &ppErr) {
				t.Fatalf("error = %v, want *PostProcessError", err)
			}
			if ppErr.Stage != tt.stage || StageOf(err) != tt.stage {
				t.Errorf("stage = %s, want %s", ppErr.Stage, tt.stage)
			}
		})
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, solid(7, 5, color.NRGBA{G: 255, A: 128})); err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds().Dx() != 7 || decoded.Bounds().Dy() != 5 {
		t.Errorf("bounds = %v", decoded.Bounds())
	}
	if _, _, _, a := decoded.At(0, 0).RGBA(); a>>8 != 128 {
		t.Errorf("alpha = %d, want 128", a>>8)
	}
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("DefaultOptions invalid: %v", err)
	}
	if err := (Options{Resize: false, TargetWidth: -1}).Validate(); err != nil {
		t.Error("dimensions must not matter when resize is off")
	}
	if err := (Options{Resize: true, TargetWidth: 30000, TargetHeight: 10}).Validate(); err == nil {
		t.Error("expected error for oversized canvas")
	}
}
