package tile

import (
	"image"
	"image/draw"
)

// SpacingOptions controls the layout of a spacing sheet
type SpacingOptions struct {
	Width, Height int
	Copies        int // copies of each tile per row
	Margin        int // left/top margin in pixels
	RowHeight     int
	Pitch         int // base horizontal distance between copies
	Spacing       int // extra distance added per row
}

// DefaultSpacingOptions matches the classic 600x400 illustration
func DefaultSpacingOptions() SpacingOptions {
	return SpacingOptions{
		Width:     600,
		Height:    400,
		Copies:    8,
		Margin:    10,
		RowHeight: 100,
		Pitch:     100,
		Spacing:   10,
	}
}

// SpacingSheet pastes each tile in its own row, repeated with a horizontal
// pitch that grows by Spacing per row. Viewed with diverged eyes the rows
// with a wider pitch appear further away.
func SpacingSheet(tiles []image.Image, opts SpacingOptions) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, ErrEmptyCanvas
	}
	sheet := image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height))
	draw.Draw(sheet, sheet.Bounds(), image.Black, image.Point{}, draw.Src)

	for j, t := range tiles {
		src := Opaque(t)
		if src.Rect.Empty() {
			return nil, ErrEmptyTile
		}
		pitch := opts.Pitch + j*opts.Spacing
		y := opts.Margin + j*opts.RowHeight
		for i := 0; i < opts.Copies; i++ {
			x := opts.Margin + i*pitch
			if x >= opts.Width || y >= opts.Height {
				break
			}
			copyTile(src, sheet, x, y)
		}
	}
	return sheet, nil
}
