package tile

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"

	"github.com/gogpu/gg"
)

// PlaceDots draws the geometry and colors of n dots for a width x height tile
// from rng. The radius is min(width, height)/100 for every dot. Centers are
// drawn from [0, width-r) x [0, height-r) so no dot crosses the right or
// bottom edge; the left and top edges are not guarded. A negative n yields
// no dots.
func PlaceDots(width, height, n int, rng *rand.Rand) []Dot {
	r := min(width, height) / 100
	dots := make([]Dot, max(n, 0))
	for i := range dots {
		x := rng.IntN(width - r)
		y := rng.IntN(height - r)
		dots[i] = Dot{
			X:      x,
			Y:      y,
			Radius: r,
			R:      uint8(rng.IntN(256)),
			G:      uint8(rng.IntN(256)),
			B:      uint8(rng.IntN(256)),
		}
	}
	return dots
}

// RandomDots renders a random dot tile: an opaque black background with n
// filled discs placed by PlaceDots. Discs have hard edges, so every pixel is
// either black or exactly one dot's color. The same rng state always yields
// the same pixels.
func RandomDots(width, height, n int, rng *rand.Rand) (*image.RGBA, []Dot, error) {
	if width <= 0 || height <= 0 {
		return nil, nil, ErrEmptyTile
	}
	if n < 0 {
		return nil, nil, fmt.Errorf("dot count must not be negative, got %d", n)
	}
	dots := PlaceDots(width, height, n, rng)

	dc := gg.NewContext(width, height)
	defer dc.Close()
	dc.ClearWithColor(gg.Black)

	for _, d := range dots {
		col := gg.FromColor(color.RGBA{R: d.R, G: d.G, B: d.B, A: 0xff})
		for dy := -d.Radius; dy <= d.Radius; dy++ {
			hw := discHalfWidth(d.Radius, dy)
			for dx := -hw; dx <= hw; dx++ {
				dc.SetPixel(d.X+dx, d.Y+dy, col)
			}
		}
	}

	return Opaque(dc.Image()), dots, nil
}

// discHalfWidth returns the half width of row dy of a disc of radius r,
// covering the pixels with dx*dx + dy*dy <= r*r + r
func discHalfWidth(r, dy int) int {
	return int(math.Sqrt(float64(r*r + r - dy*dy)))
}
