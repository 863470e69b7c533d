package naming

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"trendmerch/logging"
	"trendmerch/postprocess"
)

// OutputRecord describes a design written to disk.
type OutputRecord struct {
	Filename  string
	Path      string
	Topic     string
	Style     string
	CreatedAt time.Time
	Width     int
	Height    int
}

// Writer stores designs as PNG files in one directory.
type Writer struct {
	dir    string
	logger *logging.Logger
}

// NewWriter creates a Writer for dir. The directory is created on first write.
func NewWriter(dir string, logger *logging.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("naming: output directory cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{dir: dir, logger: logger.Named("writer")}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes img to a temporary file next to the target and renames it
// into place, so a failed write never leaves a partial PNG behind. Path,
// Width and Height of rec are filled in.
func (w *Writer) Write(img image.Image, rec OutputRecord) (OutputRecord, error) {
	if img == nil {
		return rec, fmt.Errorf("naming: image cannot be nil")
	}
	if rec.Filename == "" || filepath.Base(rec.Filename) != rec.Filename {
		return rec, fmt.Errorf("naming: invalid filename %q", rec.Filename)
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return rec, fmt.Errorf("naming: create output directory: %w", err)
	}

	target := filepath.Join(w.dir, rec.Filename)
	tmp, err := os.CreateTemp(w.dir, ".tmp-*.png")
	if err != nil {
		return rec, fmt.Errorf("naming: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := postprocess.EncodePNG(tmp, img); err != nil {
		tmp.Close()
		return rec, fmt.Errorf("naming: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return rec, fmt.Errorf("naming: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return rec, fmt.Errorf("naming: move into place: %w", err)
	}

	b := img.Bounds()
	rec.Path = target
	rec.Width = b.Dx()
	rec.Height = b.Dy()

	w.logger.Info("Design saved",
		zap.String("path", target),
		zap.Int("width", rec.Width),
		zap.Int("height", rec.Height))
	return rec, nil
}
