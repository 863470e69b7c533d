package naming

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriter_Write(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	w, err := NewWriter(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	img := image.NewNRGBA(image.Rect(0, 0, 12, 9))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})

	rec, err := w.Write(img, OutputRecord{
		Filename:  "solar-eclipse_20240408_180000.png",
		Topic:     "Solar Eclipse",
		Style:     "vaporwave",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if rec.Path != filepath.Join(dir, "solar-eclipse_20240408_180000.png") || rec.Width != 12 || rec.Height != 9 {
		t.Errorf("record = %+v", rec)
	}

	f, err := os.Open(rec.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 12 || cfg.Height != 9 {
		t.Errorf("file is %dx%d", cfg.Width, cfg.Height)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want only the design", len(entries))
	}
}

func TestWriter_RejectsBadInput(t *testing.T) {
	if _, err := NewWriter("", nil); err == nil {
		t.Error("expected error for empty dir")
	}

	w, _ := NewWriter(t.TempDir(), nil)
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))

	if _, err := w.Write(nil, OutputRecord{Filename: "a.png"}); err == nil {
		t.Error("expected error for nil image")
	}
	for _, name := range []string{"", "../escape.png", "sub/dir.png"} {
		if _, err := w.Write(img, OutputRecord{Filename: name}); err == nil {
			t.Errorf("expected error for filename %q", name)
		}
	}
}
