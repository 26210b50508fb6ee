package tile

import (
	"errors"
	"image"
)

// Tiling errors
var (
	ErrEmptyTile   = errors.New("tile has no pixels")
	ErrEmptyCanvas = errors.New("canvas has no pixels")
)

// Grid returns the number of tile columns and rows needed to cover a
// width x height canvas with tw x th tiles.
func Grid(tw, th, width, height int) (cols, rows int) {
	cols = (width + tw - 1) / tw
	rows = (height + th - 1) / th
	return cols, rows
}

// Tile builds a width x height canvas by repeating pattern from the top-left
// corner. Placements that extend past the canvas are truncated; a pattern
// larger than the canvas yields one clipped placement.
func Tile(pattern image.Image, width, height int) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyCanvas
	}
	src := Opaque(pattern)
	tw, th := src.Rect.Dx(), src.Rect.Dy()
	if tw == 0 || th == 0 {
		return nil, ErrEmptyTile
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	cols, rows := Grid(tw, th, width, height)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			copyTile(src, canvas, j*tw, i*th)
		}
	}
	return canvas, nil
}

// copyTile copies src into dst at (xoff, yoff), clipped to dst's extent
func copyTile(src, dst *image.RGBA, xoff, yoff int) {
	w := min(src.Rect.Dx(), dst.Rect.Dx()-xoff)
	h := min(src.Rect.Dy(), dst.Rect.Dy()-yoff)
	if w <= 0 || h <= 0 {
		return
	}
	for y := 0; y < h; y++ {
		srcIdx := y * src.Stride
		dstIdx := (yoff+y)*dst.Stride + xoff*4
		copy(dst.Pix[dstIdx:dstIdx+w*4], src.Pix[srcIdx:srcIdx+w*4])
	}
}
