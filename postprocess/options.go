// Package postprocess turns generated images into print-ready transparent
// PNG canvases: optional background removal, then fit-and-center resizing.
package postprocess

import "fmt"

// Default print canvas.
const (
	DefaultTargetWidth  = 4500
	DefaultTargetHeight = 5400
)

// maxDimension bounds the canvas to keep memory use sane (an NRGBA canvas
// needs 4 bytes per pixel).
const maxDimension = 20000

// Options selects which stages run.
type Options struct {
	RemoveBackground bool
	Resize           bool
	TargetWidth      int
	TargetHeight     int
}

// DefaultOptions enables every stage with the default print canvas.
func DefaultOptions() Options {
	return Options{
		RemoveBackground: true,
		Resize:           true,
		TargetWidth:      DefaultTargetWidth,
		TargetHeight:     DefaultTargetHeight,
	}
}

// Validate checks the target canvas when resizing is enabled.
func (o Options) Validate() error {
	if !o.Resize {
		return nil
	}
	if o.TargetWidth < 1 || o.TargetHeight < 1 || o.TargetWidth > maxDimension || o.TargetHeight > maxDimension {
		return fmt.Errorf("postprocess: invalid target canvas %dx%d", o.TargetWidth, o.TargetHeight)
	}
	return nil
}
