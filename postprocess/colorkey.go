package postprocess

import (
	"context"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// DefaultColorKeyTolerance is the per-channel distance treated as background.
const DefaultColorKeyTolerance = 32

// ColorKeyRemover is an offline remover: it flood-fills from the image border,
// clearing every connected pixel whose color is within Tolerance of the
// top-left corner. It suits generated designs on flat backgrounds.
type ColorKeyRemover struct {
	Tolerance uint8
}

// NewColorKeyRemover creates a ColorKeyRemover.
func NewColorKeyRemover(tolerance uint8) *ColorKeyRemover {
	return &ColorKeyRemover{Tolerance: tolerance}
}

// Remove returns a copy of img with the border-connected background cleared.
func (r *ColorKeyRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	dst := ToNRGBA(img)
	b := dst.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return dst, nil
	}

	key := dst.NRGBAAt(b.Min.X, b.Min.Y)
	visited := make([]bool, w*h)
	stack := make([]image.Point, 0, 2*(w+h))

	push := func(x, y int) {
		i := y*w + x
		if visited[i] {
			return
		}
		visited[i] = true
		if r.matches(dst.NRGBAAt(b.Min.X+x, b.Min.Y+y), key) {
			stack = append(stack, image.Point{X: x, Y: y})
		}
	}

	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}

	for n := 0; len(stack) > 0; n++ {
		if n%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		dst.SetNRGBA(b.Min.X+p.X, b.Min.Y+p.Y, color.NRGBA{})

		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < w-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < h-1 {
			push(p.X, p.Y+1)
		}
	}
	return dst, nil
}

func (r *ColorKeyRemover) matches(c, key color.NRGBA) bool {
	if c.A == 0 {
		return true
	}
	t := int(r.Tolerance)
	return absDiff(c.R, key.R) <= t && absDiff(c.G, key.G) <= t && absDiff(c.B, key.B) <= t
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

// ToNRGBA returns a copy of img as *image.NRGBA with its origin at (0,0).
func ToNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
